//go:build windows

package hotkey

import (
	"fmt"
	"log"

	gohook "github.com/robotn/gohook"
)

// Listen registers combo (e.g. "Ctrl+Alt+V") and calls callback on every
// activation until the returned Listener is released.
func Listen(combo string, callback func()) (*Listener, error) {
	l, err := newListener(combo, callback)
	if err != nil {
		return nil, err
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("hotkey %s: global hook unavailable", combo)
	}
	log.Printf("Hotkey listener configured for: %s", combo)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for {
			select {
			case <-l.done:
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Printf("Hotkey event channel closed")
					return
				}
				switch ev.Kind {
				case gohook.KeyDown:
					l.keyDown(ev.Rawcode)
				case gohook.KeyUp:
					l.keyUp(ev.Rawcode)
				}
			}
		}
	}()
	return l, nil
}

func endHook() { gohook.End() }
