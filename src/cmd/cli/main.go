package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clipboard-ocr/src/clipboard"
	"clipboard-ocr/src/config"
	"clipboard-ocr/src/imageref"
	"clipboard-ocr/src/logutil"
	"clipboard-ocr/src/recognizer"
	"clipboard-ocr/src/runtimeinit"
	"clipboard-ocr/src/screenshot"
	"clipboard-ocr/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath   string
	fromClip   bool
	screen     bool
	region     string
	language   string
	engine     string
	copyText   bool
	jsonOutput bool
	verbose    bool
	apiKeyPath string
}

// newRecognizer is replaced in tests.
var newRecognizer = runtimeinit.NewRecognizer

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
		args = []string{"clipocr"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clipocr",
		Short:         "Extract text from an image file, stdin, the clipboard or the screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to image file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.fromClip, "clipboard", false, "Read the image from the clipboard")
	cmd.Flags().BoolVar(&opts.screen, "screen", false, "Capture the whole screen")
	cmd.Flags().StringVar(&opts.region, "region", "", "Capture a screen region given as x,y,width,height")
	cmd.Flags().StringVar(&opts.language, "lang", "", "Recognition language, e.g. eng, spa or eng+spa")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or openrouter")
	cmd.Flags().BoolVar(&opts.copyText, "copy", false, "Copy the recognized text to the clipboard")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.MarkFlagsMutuallyExclusive("file", "clipboard", "screen", "region")

	return cmd
}

var legacyFlags = []string{"file", "clipboard", "screen", "region", "lang", "engine", "copy", "json", "verbose", "api-key-path"}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range legacyFlags {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.filePath == "" && !opts.fromClip && !opts.screen && opts.region == "" {
		return fmt.Errorf("one of --file, --clipboard, --screen or --region is required")
	}
	cfg, rec, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			EngineOverride:     opts.engine,
			LanguageOverride:   opts.language,
		},
		// Configure logging BEFORE any other operations.
		SetupLogging: func(cfg *config.Config) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
				return
			}
			logutil.SetupVerbose(stderr)
			fmt.Fprintf(stderr, "[verbose] Config loaded: engine=%s lang=%s\n", cfg.Engine, cfg.Language)
			if cfg.Engine == config.EngineOpenRouter {
				fmt.Fprintf(stderr, "[verbose] Model=%s, API key path: %s\n", cfg.Model, cfg.APIKeyPath)
			}
		},
		NewRecognizer: newRecognizer,
	})
	if err != nil {
		return err
	}
	failures := &failureRecorder{Recognizer: rec}

	var clip *clipboard.System
	if opts.fromClip || opts.copyText {
		clip, err = clipboard.Init()
		if err != nil {
			return fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	view := newHeadlessView()
	sopts := session.Options{
		Recognizer:     failures,
		View:           view,
		Dispatch:       session.Inline,
		Language:       cfg.Language,
		CopyResetDelay: time.Duration(cfg.CopyResetMS) * time.Millisecond,
		Deadline:       time.Duration(cfg.OCRDeadlineSec) * time.Second,
	}
	if clip != nil {
		sopts.ClipboardReader = clip
		sopts.ClipboardWriter = clip
	}
	ctrl, err := session.New(sopts)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	source, err := acquire(ctx, ctrl, opts, stdin, stderr)
	if err != nil {
		if n, ok := view.notice(); ok {
			return fmt.Errorf("%s", n)
		}
		return err
	}

	if err := view.waitRecognized(ctx); err != nil {
		return err
	}
	st := ctrl.Snapshot()
	res, recErr := failures.last()
	if recErr != nil {
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] OCR failed: %v\n", recErr)
		}
		return fmt.Errorf("OCR failed: %w", recErr)
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] OCR completed in %v, extracted %d characters\n", res.Duration, len(st.Text))
	}

	if opts.copyText {
		if err := copyText(ctx, ctrl, view); err != nil {
			return err
		}
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] Text copied to clipboard\n")
		}
	}

	return outputResult(stdout, st.Text, source, st.Language, rec.Name(), res.Duration, opts.jsonOutput)
}

// acquire feeds the selected image source into the session and returns a
// description of the source.
func acquire(ctx context.Context, ctrl *session.Controller, opts cliOptions, stdin io.Reader, stderr io.Writer) (string, error) {
	switch {
	case opts.fromClip:
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] Reading image from clipboard\n")
		}
		return "clipboard", ctrl.PasteFromClipboard(ctx)
	case opts.screen || opts.region != "":
		var (
			blob imageref.Blob
			err  error
		)
		if opts.region != "" {
			region, perr := screenshot.ParseRegion(opts.region)
			if perr != nil {
				return "", perr
			}
			blob, err = screenshot.CaptureRegion(region)
		} else {
			blob, err = screenshot.CaptureScreen()
		}
		if err != nil {
			return "", err
		}
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] Captured %s (%d bytes)\n", blob.Name, len(blob.Data))
		}
		return "screen", ctrl.Accept(blob)
	default:
		blob, err := readImage(opts.filePath, stdin)
		if err != nil {
			return "", err
		}
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] Read %d bytes (%s)\n", len(blob.Data), blob.MediaType)
		}
		if err := ctrl.SelectFiles(blob); err != nil {
			return "", fmt.Errorf("input is not a supported image: %w", err)
		}
		return opts.filePath, nil
	}
}

func readImage(filePath string, stdin io.Reader) (imageref.Blob, error) {
	var (
		data []byte
		err  error
		name = filepath.Base(filePath)
	)
	if filePath == "-" {
		name = "stdin"
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return imageref.Blob{}, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return imageref.Blob{}, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return imageref.Blob{}, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return imageref.Blob{}, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return imageref.NewBlob(name, data), nil
}

func copyText(ctx context.Context, ctrl *session.Controller, view *headlessView) error {
	if err := ctrl.Copy(ctx); err != nil {
		if errors.Is(err, session.ErrNothingToCopy) {
			return nil
		}
		return fmt.Errorf("failed to copy text: %w", err)
	}
	status, err := view.waitCopied(ctx)
	if err != nil {
		return err
	}
	if status != session.CopySuccess {
		return fmt.Errorf("failed to write to clipboard")
	}
	return nil
}

type OCRResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Language  string  `json:"language"`
	Engine    string  `json:"engine"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(w io.Writer, text, source, language, engine string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(w, text)
		return err
	}
	result := OCRResult{
		Text:      text,
		Source:    source,
		Language:  language,
		Engine:    engine,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len(text),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// failureRecorder keeps the outcome of the last recognition; the session only
// exposes the fixed error text.
type failureRecorder struct {
	recognizer.Recognizer

	mu  sync.Mutex
	res recognizer.Result
	err error
}

func (f *failureRecorder) Recognize(ctx context.Context, img recognizer.Image, language string, obs recognizer.ProgressObserver) (recognizer.Result, error) {
	start := time.Now()
	res, err := f.Recognizer.Recognize(ctx, img, language, obs)
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	f.mu.Lock()
	f.res, f.err = res, err
	f.mu.Unlock()
	return res, err
}

func (f *failureRecorder) last() (recognizer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res, f.err
}

// headlessView turns session view updates into completion signals.
type headlessView struct {
	recognized chan struct{}
	copied     chan session.CopyStatus

	mu      sync.Mutex
	notices []session.Notice
}

func newHeadlessView() *headlessView {
	return &headlessView{
		recognized: make(chan struct{}, 1),
		copied:     make(chan session.CopyStatus, 1),
	}
}

func (v *headlessView) ShowImage(ref imageref.Ref) {
	log.Printf("Image %s (%s, %d bytes)", ref.URL, ref.MediaType, ref.Size)
}

func (v *headlessView) ShowText(string) {}

func (v *headlessView) ShowProcessing(processing bool) {
	if processing {
		return
	}
	select {
	case v.recognized <- struct{}{}:
	default:
	}
}

func (v *headlessView) ShowCopyStatus(status session.CopyStatus) {
	if status != session.CopySuccess && status != session.CopyError {
		return
	}
	select {
	case v.copied <- status:
	default:
	}
}

func (v *headlessView) Notify(n session.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *headlessView) notice() (session.Notice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notices) == 0 {
		return 0, false
	}
	return v.notices[len(v.notices)-1], true
}

func (v *headlessView) waitRecognized(ctx context.Context) error {
	select {
	case <-v.recognized:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *headlessView) waitCopied(ctx context.Context) (session.CopyStatus, error) {
	select {
	case s := <-v.copied:
		return s, nil
	case <-ctx.Done():
		return session.CopyIdle, ctx.Err()
	}
}
