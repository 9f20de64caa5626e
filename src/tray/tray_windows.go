//go:build windows

package tray

import (
	"log"

	"fyne.io/fyne/v2"
	"github.com/getlantern/systray"
)

// Start registers the tray icon. The Win32 messages of the tray window are
// pumped by the Fyne event loop on the same thread, so Start must be called
// from the main goroutine before the app runs.
func Start(_ fyne.App, actions Actions) (*Tray, error) {
	t := newTray(actions)
	done := make(chan struct{})
	t.stop = func() {
		close(done)
		systray.Quit()
	}
	systray.Register(func() { onReady(t, done) }, func() {})
	return t, nil
}

func onReady(t *Tray, done <-chan struct{}) {
	systray.SetIcon(ICO(IconPNG()))
	systray.SetTitle(Title)
	systray.SetTooltip(Tooltip)

	for _, e := range menu {
		if e.item == ItemQuit {
			systray.AddSeparator()
		}
		mi := systray.AddMenuItem(e.label, e.tooltip)
		go func(item Item, clicked <-chan struct{}) {
			for {
				select {
				case <-clicked:
					t.handle(item)
				case <-done:
					return
				}
			}
		}(e.item, mi.ClickedCh)
	}
	log.Printf("Tray icon ready")
}
