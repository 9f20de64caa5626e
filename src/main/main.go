package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"clipboard-ocr/src/clipboard"
	"clipboard-ocr/src/config"
	"clipboard-ocr/src/hotkey"
	"clipboard-ocr/src/logutil"
	"clipboard-ocr/src/runtimeinit"
	"clipboard-ocr/src/session"
	"clipboard-ocr/src/tray"
	"clipboard-ocr/src/ui"
)

const appID = "com.example.clipboard-ocr"

type mainOptions struct {
	apiKeyPath string
	engine     string
	language   string
	verbose    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"clipboard-ocr"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clipboard-ocr",
		Short:         "Extract text from pasted, selected or captured images",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or openrouter (overrides OCR_ENGINE)")
	cmd.Flags().StringVar(&opts.language, "lang", "", "Recognition language, e.g. eng, spa or eng+spa (overrides OCR_LANGUAGE)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"api-key-path", "engine", "lang", "verbose"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

func runGUI(opts mainOptions) error {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	cfg, rec, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			EngineOverride:     opts.engine,
			LanguageOverride:   opts.language,
		},
		SetupLogging: func(cfg *config.Config) {
			if opts.verbose {
				logutil.SetupVerbose(os.Stderr)
				return
			}
			logutil.Setup(cfg.EnableFileLogging)
		},
		Ping: true,
	})
	if err != nil {
		return err
	}

	// Without a platform clipboard the session falls back to Ctrl+V, the
	// file picker and the window clipboard.
	clip, err := clipboard.Init()
	if err != nil {
		log.Printf("Clipboard unavailable: %v", err)
	}

	a := app.NewWithID(appID)
	w, err := ui.New(a, ui.Options{
		Session: session.Options{
			Recognizer:      rec,
			ClipboardReader: clip,
			ClipboardWriter: clip,
			Language:        cfg.Language,
			CopyResetDelay:  time.Duration(cfg.CopyResetMS) * time.Millisecond,
			Deadline:        time.Duration(cfg.OCRDeadlineSec) * time.Second,
			Workers:         cfg.Workers,
		},
		Languages: cfg.Languages,
	})
	if err != nil {
		return err
	}

	log.Printf("Clipboard OCR initialized")

	if cfg.Hotkey != "" {
		startHotkey(w.Controller(), cfg.Hotkey)
	}
	startTray(a, w)

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		fyne.Do(a.Quit)
	}()

	w.ShowAndRun()
	return nil
}

// startHotkey registers the process-wide paste hotkey for the lifetime of the session.
func startHotkey(ctrl *session.Controller, combo string) {
	l, err := hotkey.Listen(combo, func() {
		go func() {
			if err := ctrl.Paste(context.Background()); err != nil && !errors.Is(err, session.ErrNoImage) {
				log.Printf("Hotkey paste: %v", err)
			}
		}()
	})
	if err != nil {
		log.Printf("Hotkey %s not registered: %v", combo, err)
		return
	}
	ctrl.Track(l)
}

// startTray mirrors the window's acquisition actions in the system tray.
func startTray(a fyne.App, w *ui.Window) {
	ctrl := w.Controller()
	t, err := tray.Start(a, tray.Actions{
		Show: func() {
			fyne.Do(func() {
				w.Window().Show()
				w.Window().RequestFocus()
			})
		},
		Paste: func() {
			go func() {
				if err := ctrl.PasteFromClipboard(context.Background()); err != nil {
					log.Printf("Tray paste: %v", err)
				}
			}()
		},
		Capture: func() { go w.CaptureScreen() },
		Quit:    func() { fyne.Do(a.Quit) },
	})
	if err != nil {
		log.Printf("System tray unavailable: %v", err)
		return
	}
	ctrl.Track(t)
}
