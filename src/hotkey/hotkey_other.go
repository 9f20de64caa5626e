//go:build !windows

package hotkey

import "fmt"

// Listen validates combo but cannot register it: the hook reports X11 or
// macOS keycodes here, which the key table does not map.
func Listen(combo string, callback func()) (*Listener, error) {
	if _, err := newListener(combo, callback); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("hotkey %s: %w", combo, ErrUnsupported)
}

func endHook() {}
