// Package tray exposes the acquisition actions in the system tray.
package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"clipboard-ocr/src/imageref"
)

const (
	Title   = "Clipboard OCR"
	Tooltip = "Clipboard OCR: recognize text in images"

	iconSize = 32
)

type Item int

const (
	ItemShow Item = iota
	ItemPaste
	ItemCapture
	ItemQuit
)

type entry struct {
	item    Item
	label   string
	tooltip string
}

var menu = []entry{
	{ItemShow, "Show window", "Bring the window to the front"},
	{ItemPaste, "Paste from clipboard", "Recognize the image on the clipboard"},
	{ItemCapture, "Capture screen", "Recognize text on the whole screen"},
	{ItemQuit, "Quit", "Quit the application"},
}

// Actions are invoked from tray callbacks, which do not run on the UI
// goroutine. Nil actions are ignored.
type Actions struct {
	Show    func()
	Paste   func()
	Capture func()
	Quit    func()
}

// Tray is a running tray menu. Release detaches the actions; clicks that
// arrive afterwards are dropped.
type Tray struct {
	actions  Actions
	released atomic.Bool
	stop     func()
}

func newTray(actions Actions) *Tray {
	return &Tray{actions: actions}
}

func (t *Tray) handle(item Item) {
	if t.released.Load() {
		return
	}
	var f func()
	switch item {
	case ItemShow:
		f = t.actions.Show
	case ItemPaste:
		f = t.actions.Paste
	case ItemCapture:
		f = t.actions.Capture
	case ItemQuit:
		f = t.actions.Quit
	}
	if f != nil {
		f()
	}
}

func (t *Tray) Release() {
	if t.released.Swap(true) {
		return
	}
	if t.stop != nil {
		t.stop()
	}
}

// IconPNG draws the tray icon: a dashed selection frame around lines of text.
func IconPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	frame := image.NewUniform(color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff})
	ink := image.NewUniform(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})

	for i := 2; i < iconSize-2; i += 4 {
		fill(img, image.Rect(i, 2, i+2, 4), frame)
		fill(img, image.Rect(i, iconSize-4, i+2, iconSize-2), frame)
		fill(img, image.Rect(2, i, 4, i+2), frame)
		fill(img, image.Rect(iconSize-4, i, iconSize-2, i+2), frame)
	}
	for i, width := range []int{20, 16, 18} {
		y := 9 + i*6
		fill(img, image.Rect(7, y, 7+width, y+3), ink)
	}

	data, err := imageref.EncodePNG(img)
	if err != nil {
		return nil
	}
	return data
}

func fill(img draw.Image, r image.Rectangle, src image.Image) {
	draw.Draw(img, r, src, image.Point{}, draw.Src)
}

// ICO wraps PNG data in a single-image .ico container, the format the
// Windows tray expects.
func ICO(png []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR: reserved, type 1 (icon), one image.
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(png)), 22})
	buf.Write(png)
	return buf.Bytes()
}
