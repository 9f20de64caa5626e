package clipboard

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryItem(t *testing.T) {
	item := NewMemoryItem().
		With(MediaTypeText, []byte("hi")).
		With(MediaTypePNG, []byte{1}).
		With(MediaTypeText, []byte("again"))

	types := item.Types()
	if len(types) != 2 || types[0] != MediaTypeText || types[1] != MediaTypePNG {
		t.Errorf("Types() = %v", types)
	}
	got, err := item.Get(context.Background(), MediaTypeText)
	if err != nil || string(got) != "again" {
		t.Errorf("Get(text) = %q, %v", got, err)
	}
	if _, err := item.Get(context.Background(), "image/jpeg"); !errors.Is(err, ErrTypeNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrTypeNotFound", err)
	}
}

func TestUninitializedSystem(t *testing.T) {
	s := &System{initErr: ErrUnavailable}
	if s.CanRead() {
		t.Error("expected CanRead false")
	}
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Read err = %v", err)
	}
	if err := s.WriteText(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("WriteText err = %v", err)
	}
}

func TestSystemWriteRead(t *testing.T) {
	s, err := Init()
	if err != nil {
		t.Skipf("clipboard unavailable in this environment: %v", err)
	}
	if err := s.WriteText(context.Background(), "test text"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	items, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	got, err := items[0].Get(context.Background(), MediaTypeText)
	if err != nil || string(got) != "test text" {
		t.Errorf("text = %q, %v", got, err)
	}
}
