package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

const (
	MediaTypePNG  = "image/png"
	MediaTypeText = "text/plain"
)

var (
	// ErrUnavailable is returned when the platform clipboard could not be initialized.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrTypeNotFound is returned by Item.Get for a type the item does not carry.
	ErrTypeNotFound = errors.New("clipboard type not found")
)

// Item is one clipboard entry exposing its available media types.
type Item interface {
	Types() []string
	Get(ctx context.Context, mediaType string) ([]byte, error)
}

type Reader interface {
	Read(ctx context.Context) ([]Item, error)
}

type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// MemoryItem is an Item backed by in-memory data, keyed by media type.
type MemoryItem struct {
	types []string
	data  map[string][]byte
}

func NewMemoryItem() *MemoryItem {
	return &MemoryItem{data: make(map[string][]byte)}
}

// With adds data under mediaType and returns the item for chaining.
func (m *MemoryItem) With(mediaType string, data []byte) *MemoryItem {
	if _, ok := m.data[mediaType]; !ok {
		m.types = append(m.types, mediaType)
	}
	m.data[mediaType] = data
	return m
}

func (m *MemoryItem) Types() []string { return append([]string(nil), m.types...) }

func (m *MemoryItem) Get(ctx context.Context, mediaType string) ([]byte, error) {
	data, ok := m.data[mediaType]
	if !ok {
		return nil, fmt.Errorf("%s: %w", mediaType, ErrTypeNotFound)
	}
	return data, nil
}

// System is the platform clipboard.
type System struct {
	initErr error
	writeMu sync.Mutex
}

// Init initializes the platform clipboard. The returned System is usable
// even on failure; its operations then report ErrUnavailable.
func Init() (*System, error) {
	s := &System{}
	if err := clipboard.Init(); err != nil {
		s.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s, s.initErr
}

// CanRead reports whether reading the clipboard is supported.
func (s *System) CanRead() bool { return s.initErr == nil }

// Read returns the current clipboard contents as a single item carrying an
// image/png and/or text/plain type.
func (s *System) Read(ctx context.Context) ([]Item, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item := NewMemoryItem()
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		item.With(MediaTypePNG, img)
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		item.With(MediaTypeText, text)
	}
	if len(item.types) == 0 {
		return nil, nil
	}
	return []Item{item}, nil
}

// WriteText performs a mutex-guarded clipboard write and reports success
// only if reading the clipboard back returns the same text.
func (s *System) WriteText(ctx context.Context, text string) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	done := clipboard.Write(clipboard.FmtText, []byte(text))
	if done == nil {
		return errors.New("clipboard write rejected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if got := clipboard.Read(clipboard.FmtText); string(got) != text {
		return errors.New("clipboard write not visible after write")
	}
	return nil
}
