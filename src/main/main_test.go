package main

import (
	"testing"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"clipboard-ocr", "-lang", "spa", "-api-key-path", "/tmp/key"},
			out:  []string{"clipboard-ocr", "--lang", "spa", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"clipboard-ocr", "-engine=openrouter", "-api-key-path=/tmp/key"},
			out:  []string{"clipboard-ocr", "--engine=openrouter", "--api-key-path=/tmp/key"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"clipboard-ocr", "--lang", "eng", "-v", "--other"},
			out:  []string{"clipboard-ocr", "--lang", "eng", "-v", "--other"},
		},
		{
			name: "Empty",
			in:   nil,
			out:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--lang", "eng+spa", "--engine", "openrouter", "--api-key-path", "/tmp/key", "-v"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.language != "eng+spa" {
		t.Fatalf("Expected language=eng+spa, got %q", opts.language)
	}
	if opts.engine != "openrouter" {
		t.Fatalf("Expected engine=openrouter, got %q", opts.engine)
	}
	if opts.apiKeyPath != "/tmp/key" {
		t.Fatalf("Expected apiKeyPath=/tmp/key, got %q", opts.apiKeyPath)
	}
	if !opts.verbose {
		t.Fatal("Expected verbose=true")
	}
}
