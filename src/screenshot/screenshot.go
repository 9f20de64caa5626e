package screenshot

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/kbinani/screenshot"

	"clipboard-ocr/src/imageref"
)

// Region represents a screen region to capture
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Region) rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	r := Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Width <= 0 || r.Height <= 0 {
		return Region{}, fmt.Errorf("invalid region dimensions: width=%d, height=%d", r.Width, r.Height)
	}
	return r, nil
}

// VirtualScreen returns the union of all active display bounds.
func VirtualScreen() (Region, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Region{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return Region{X: union.Min.X, Y: union.Min.Y, Width: union.Dx(), Height: union.Dy()}, nil
}

// CaptureScreen captures the entire virtual screen across all active displays.
func CaptureScreen() (imageref.Blob, error) {
	r, err := VirtualScreen()
	if err != nil {
		return imageref.Blob{}, err
	}
	return CaptureRegion(r)
}

// CaptureRegion captures a region of the virtual screen as a PNG blob.
func CaptureRegion(region Region) (imageref.Blob, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return imageref.Blob{}, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}

	img, err := screenshot.CaptureRect(region.rect())
	if err != nil {
		return imageref.Blob{}, fmt.Errorf("failed to capture region: %w", err)
	}

	data, err := imageref.EncodePNG(img)
	if err != nil {
		return imageref.Blob{}, err
	}

	name := fmt.Sprintf("screen-%s.png", time.Now().Format("20060102-150405"))
	return imageref.Blob{Name: name, MediaType: imageref.MediaTypePNG, Data: data}, nil
}
