// Package recognizer is the boundary to the external OCR engines.
package recognizer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Image is what a recognizer receives: the blob behind a displayable reference.
type Image struct {
	ID        string
	Name      string
	MediaType string
	Data      []byte
}

// Result holds the recognized text exactly as the engine produced it.
type Result struct {
	Text     string
	Language string
	Engine   string
	Duration time.Duration
}

// Progress is one progress tick. Value is in [0,1].
type Progress struct {
	Status string
	Value  float64
}

type ProgressObserver interface {
	OnProgress(p Progress)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress) { f(p) }

// LogProgress writes progress ticks to the standard logger.
var LogProgress ProgressObserver = ProgressFunc(func(p Progress) {
	log.Printf("OCR progress: %s %.0f%%", p.Status, p.Value*100)
})

// Recognizer converts an image to text. Language is passed through unchanged
// and may combine codes with '+', e.g. "eng+spa".
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img Image, language string, obs ProgressObserver) (Result, error)
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, img Image, language string, obs ProgressObserver) (Result, error)

func (f Func) Name() string { return "func" }

func (f Func) Recognize(ctx context.Context, img Image, language string, obs ProgressObserver) (Result, error) {
	return f(ctx, img, language, obs)
}

// SplitLanguages turns "eng+spa" into ["eng", "spa"].
func SplitLanguages(language string) []string {
	var out []string
	for _, part := range strings.Split(language, "+") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Report sends a progress tick to obs if it is set.
func Report(obs ProgressObserver, status string, value float64) {
	if obs != nil {
		obs.OnProgress(Progress{Status: status, Value: value})
	}
}

// ValidateImage rejects images without data.
func ValidateImage(img Image) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("image %s is empty", img.ID)
	}
	return nil
}
