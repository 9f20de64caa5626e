//go:build !windows

package hotkey

import (
	"errors"
	"testing"
)

func TestListenUnsupportedOffWindows(t *testing.T) {
	l, err := Listen("Ctrl+Shift+V", func() {})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if l != nil {
		t.Error("expected no listener")
	}

	if _, err := Listen("Ctrl+Banana", nil); err == nil || errors.Is(err, ErrUnsupported) {
		t.Errorf("invalid combo err = %v, want a parse error", err)
	}
}
