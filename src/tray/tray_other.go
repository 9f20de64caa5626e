//go:build !windows

package tray

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Start installs the tray menu through the Fyne desktop driver. Apps without
// tray support get a Tray whose actions are never triggered.
func Start(a fyne.App, actions Actions) (*Tray, error) {
	t := newTray(actions)
	desk, ok := a.(desktop.App)
	if !ok {
		log.Printf("System tray not supported by this driver")
		return t, nil
	}

	items := make([]*fyne.MenuItem, 0, len(menu))
	for _, e := range menu {
		item := e.item
		mi := fyne.NewMenuItem(e.label, func() { t.handle(item) })
		mi.IsQuit = item == ItemQuit
		items = append(items, mi)
	}
	desk.SetSystemTrayMenu(fyne.NewMenu(Title, items...))
	desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", IconPNG()))
	return t, nil
}
