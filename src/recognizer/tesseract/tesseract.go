// Package tesseract recognizes text with a local tesseract installation.
// It links tesseract and leptonica through cgo, so only the binaries that
// select an engine import it.
package tesseract

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"

	"clipboard-ocr/src/imageref"
	"clipboard-ocr/src/recognizer"
)

const Name = "tesseract"

// Engine runs tesseract with a fresh client per call. Trained data is located
// by tesseract itself (TESSDATA_PREFIX).
type Engine struct {
	clientFactory func() *gosseract.Client
}

func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return Name }

// Version reports the linked tesseract version.
func (e *Engine) Version() string { return gosseract.Version() }

func (e *Engine) Recognize(ctx context.Context, img recognizer.Image, language string, obs recognizer.ProgressObserver) (recognizer.Result, error) {
	if err := recognizer.ValidateImage(img); err != nil {
		return recognizer.Result{}, err
	}
	start := time.Now()
	recognizer.Report(obs, "initializing tesseract", 0)

	data, err := input(img)
	if err != nil {
		return recognizer.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return recognizer.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if langs := recognizer.SplitLanguages(language); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return recognizer.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	recognizer.Report(obs, "loading image", 0.25)
	if err := c.SetImageFromBytes(data); err != nil {
		return recognizer.Result{}, fmt.Errorf("set image: %w", err)
	}

	recognizer.Report(obs, "recognizing text", 0.5)
	text, err := c.Text()
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	recognizer.Report(obs, "recognizing text", 1)

	return recognizer.Result{Text: text, Language: language, Engine: Name, Duration: time.Since(start)}, nil
}

// input passes formats leptonica reads natively and normalizes the rest to PNG.
func input(img recognizer.Image) ([]byte, error) {
	switch img.MediaType {
	case "image/png", "image/jpeg", "image/tiff", "image/bmp":
		return img.Data, nil
	}
	data, err := imageref.ToPNG(imageref.Blob{Name: img.Name, MediaType: img.MediaType, Data: img.Data})
	if err != nil {
		return nil, fmt.Errorf("normalize image: %w", err)
	}
	return data, nil
}
