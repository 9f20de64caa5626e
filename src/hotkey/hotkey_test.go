package hotkey

import (
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		{"a", []uint16{65}},
		{"v", []uint16{86}},
		{"z", []uint16{90}},

		{"0", []uint16{48}},
		{"9", []uint16{57}},

		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},

		{"f25", nil},
		{"f01", nil},
		{"unknown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Fatalf("keyNameToRawcodes(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+V", []string{"ctrl", "alt", "v"}},
		{"Ctrl+Shift+O", []string{"ctrl", "shift", "o"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Control+V", []string{"ctrl", "v"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Ctrl++V", []string{"ctrl", "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseHotkey(%q) returned %v, expected %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestListenerCombination(t *testing.T) {
	fired := 0
	l, err := newListener("Ctrl+Alt+V", func() { fired++ })
	if err != nil {
		t.Fatalf("newListener: %v", err)
	}

	l.keyDown(162) // left ctrl
	l.keyDown(86)  // v
	if fired != 0 {
		t.Fatal("fired before all keys were down")
	}
	l.keyDown(165) // right alt
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	// State resets after activation; a lone key must not refire.
	l.keyDown(86)
	if fired != 1 {
		t.Fatalf("fired = %d after lone key, want 1", fired)
	}

	l.keyUp(86)
	l.keyDown(163)
	l.keyDown(164)
	if fired != 1 {
		t.Fatalf("fired = %d with v released, want 1", fired)
	}
	l.keyDown(86)
	if fired != 2 {
		t.Fatalf("fired = %d, want 2", fired)
	}
}

func TestNewListenerRejectsUnknownKeys(t *testing.T) {
	if _, err := newListener("Ctrl+Banana", nil); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := newListener("", nil); err == nil {
		t.Error("expected error for empty combo")
	}
}
