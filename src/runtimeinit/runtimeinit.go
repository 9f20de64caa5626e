// Package runtimeinit performs the startup sequence shared by the GUI and the CLI.
package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"clipboard-ocr/src/config"
	"clipboard-ocr/src/recognizer"
)

const defaultPingTimeout = 15 * time.Second

// Pinger is implemented by engines that can verify their credentials up front.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(cfg *config.Config)
	// NewRecognizer defaults to the package-level NewRecognizer.
	NewRecognizer func(cfg *config.Config) (recognizer.Recognizer, error)
	// Ping verifies remote engines before returning.
	Ping        bool
	PingTimeout time.Duration
}

// Bootstrap loads configuration, sets up logging and builds the configured
// recognizer.
func Bootstrap(opts Options) (*config.Config, recognizer.Recognizer, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg)
	}

	newRecognizer := opts.NewRecognizer
	if newRecognizer == nil {
		newRecognizer = NewRecognizer
	}
	rec, err := newRecognizer(cfg)
	if err != nil {
		return nil, nil, err
	}

	if p, ok := rec.(Pinger); ok && opts.Ping {
		timeout := opts.PingTimeout
		if timeout <= 0 {
			timeout = defaultPingTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("startup check failed: %w. Please verify your API key and network connectivity", err)
		}
		log.Printf("%s ping succeeded", rec.Name())
	}

	log.Printf("Engine: %s, language: %s, OCR deadline: %ds", rec.Name(), cfg.Language, cfg.OCRDeadlineSec)
	return cfg, rec, nil
}
