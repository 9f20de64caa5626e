package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// ErrUnsupported is returned by Listen on platforms whose hook keycodes are
// not covered by the key table.
var ErrUnsupported = errors.New("global hotkeys are only supported on Windows")

// Listener is a registered process-wide hotkey. Release unregisters it.
type Listener struct {
	combo    string
	keys     []keyState
	callback func()
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

func newListener(combo string, callback func()) (*Listener, error) {
	l := &Listener{combo: combo, callback: callback, done: make(chan struct{})}
	for _, name := range parseHotkey(combo) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %s: unknown key %q", combo, name)
		}
		l.keys = append(l.keys, keyState{name: name, rawcodes: rawcodes})
	}
	if len(l.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q: no keys", combo)
	}
	return l, nil
}

// Release stops listening. It is safe to call more than once.
func (l *Listener) Release() {
	l.once.Do(func() {
		close(l.done)
		endHook()
		log.Printf("Hotkey listener released: %s", l.combo)
	})
}

func (l *Listener) keyDown(rawcode uint16) {
	l.mu.Lock()
	l.mark(rawcode, true)
	for i := range l.keys {
		if !l.keys[i].pressed {
			l.mu.Unlock()
			return
		}
	}
	for i := range l.keys {
		l.keys[i].pressed = false
	}
	l.mu.Unlock()

	log.Printf("Hotkey activated: %s", l.combo)
	if l.callback != nil {
		l.callback()
	}
}

func (l *Listener) keyUp(rawcode uint16) {
	l.mu.Lock()
	l.mark(rawcode, false)
	l.mu.Unlock()
}

func (l *Listener) mark(rawcode uint16, pressed bool) {
	for i := range l.keys {
		for _, rc := range l.keys[i].rawcodes {
			if rc == rawcode {
				l.keys[i].pressed = pressed
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+v" to normalized key names
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// namedKeys maps key names to Windows virtual-key codes, which is what the
// hook reports as Rawcode on Windows.
var namedKeys = map[string][]uint16{
	// Modifiers: left and right variants
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its virtual key code rawcodes.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "win" || name == "super" {
		name = "cmd"
	}
	if codes, ok := namedKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}
	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", name)
	return nil
}
