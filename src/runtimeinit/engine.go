package runtimeinit

import (
	"fmt"
	"log"

	"clipboard-ocr/src/config"
	"clipboard-ocr/src/logutil"
	"clipboard-ocr/src/recognizer"
	"clipboard-ocr/src/recognizer/tesseract"
)

// NewRecognizer builds the engine selected by OCR_ENGINE.
func NewRecognizer(cfg *config.Config) (recognizer.Recognizer, error) {
	switch cfg.Engine {
	case config.EngineOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required. Checked key file %s and OPENROUTER_API_KEY env var", cfg.APIKeyPath)
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("MODEL is required. Please set it in your .env file")
		}
		log.Printf("Using OpenRouter model %s (key %s)", cfg.Model, logutil.RedactKey(cfg.APIKey))
		return recognizer.NewOpenRouter(recognizer.OpenRouterConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
		})
	case config.EngineTesseract, "":
		t := tesseract.New()
		log.Printf("Using tesseract %s", t.Version())
		return t, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}
