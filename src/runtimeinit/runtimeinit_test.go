package runtimeinit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"clipboard-ocr/src/config"
	"clipboard-ocr/src/recognizer"
)

type pingingRecognizer struct {
	recognizer.Func
	err    error
	pinged bool
}

func (p *pingingRecognizer) Ping(ctx context.Context) error {
	p.pinged = true
	return p.err
}

func noop(ctx context.Context, img recognizer.Image, language string, obs recognizer.ProgressObserver) (recognizer.Result, error) {
	return recognizer.Result{}, nil
}

func TestBootstrapAppliesOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("OCR_LANGUAGE", "eng")

	var logged *config.Config
	var built *config.Config
	cfg, rec, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{LanguageOverride: "spa"},
		SetupLogging: func(c *config.Config) { logged = c },
		NewRecognizer: func(c *config.Config) (recognizer.Recognizer, error) {
			built = c
			return recognizer.Func(noop), nil
		},
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if cfg.Language != "spa" {
		t.Errorf("language = %q, want spa", cfg.Language)
	}
	if rec == nil || logged != cfg || built != cfg {
		t.Error("logging and recognizer must receive the loaded config")
	}
}

func TestBootstrapPing(t *testing.T) {
	tests := []struct {
		name    string
		ping    bool
		err     error
		wantErr bool
		pinged  bool
	}{
		{name: "ping ok", ping: true, pinged: true},
		{name: "ping fails", ping: true, err: errors.New("401"), wantErr: true, pinged: true},
		{name: "ping disabled", ping: false, err: errors.New("401"), pinged: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pingingRecognizer{Func: noop, err: tt.err}
			_, _, err := Bootstrap(Options{
				Ping:          tt.ping,
				NewRecognizer: func(*config.Config) (recognizer.Recognizer, error) { return p, nil },
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "startup check failed") {
				t.Errorf("err = %v", err)
			}
			if p.pinged != tt.pinged {
				t.Errorf("pinged = %v, want %v", p.pinged, tt.pinged)
			}
		})
	}
}

func TestBootstrapRecognizerError(t *testing.T) {
	_, _, err := Bootstrap(Options{
		NewRecognizer: func(*config.Config) (recognizer.Recognizer, error) {
			return nil, errors.New("MODEL is required")
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRecognizer(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
	}{
		{name: "missing key", cfg: config.Config{Engine: config.EngineOpenRouter, Model: "m"}},
		{name: "missing model", cfg: config.Config{Engine: config.EngineOpenRouter, APIKey: "k"}},
		{name: "openrouter", cfg: config.Config{Engine: config.EngineOpenRouter, APIKey: "k", Model: "m"}, wantName: "openrouter"},
		{name: "unknown engine", cfg: config.Config{Engine: "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecognizer(&tt.cfg)
			if tt.wantName == "" {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRecognizer: %v", err)
			}
			if r.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", r.Name(), tt.wantName)
			}
		})
	}
}
