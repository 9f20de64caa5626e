package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"clipboard-ocr/src/imageref"
	"clipboard-ocr/src/recognizer"
	"clipboard-ocr/src/session"
)

type stressOptions struct {
	n        int
	workers  int
	maxDelay time.Duration
	deadline time.Duration
	interval time.Duration
}

type report struct {
	launched   int
	recognized int64
	cancelled  int64
	final      string
	want       string
	elapsed    time.Duration
}

func (r report) ok() bool { return r.final == r.want }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-session",
		Short:         "Stress overlapping recognitions against one session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(io.Discard)
			r, err := runWithOptions(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "launched=%d recognized=%d cancelled=%d final=%q want=%q elapsed=%s\n",
				r.launched, r.recognized, r.cancelled, r.final, r.want, r.elapsed)
			if !r.ok() {
				return fmt.Errorf("stale result won: got %q, want %q", r.final, r.want)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of images to accept")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "recognition workers")
	cmd.Flags().DurationVar(&opts.maxDelay, "max-delay", 50*time.Millisecond, "maximum simulated recognition time")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Millisecond, "pause between accepted images")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 10*time.Second, "overall timeout")

	return cmd
}

// runWithOptions accepts n images in quick succession. Each simulated
// recognition takes a random time, so completions arrive out of order; the
// session must end up showing the text of the last image.
func runWithOptions(ctx context.Context, opts stressOptions) (report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.n <= 0 {
		return report{}, fmt.Errorf("n must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, opts.deadline)
	defer cancel()

	var recognized, cancelled int64
	rec := recognizer.Func(func(ctx context.Context, img recognizer.Image, language string, obs recognizer.ProgressObserver) (recognizer.Result, error) {
		delay := time.Duration(0)
		if opts.maxDelay > 0 {
			delay = time.Duration(rand.Int63n(int64(opts.maxDelay)))
		}
		select {
		case <-time.After(delay):
			atomic.AddInt64(&recognized, 1)
			return recognizer.Result{Text: img.Name}, nil
		case <-ctx.Done():
			atomic.AddInt64(&cancelled, 1)
			return recognizer.Result{}, ctx.Err()
		}
	})

	ctrl, err := session.New(session.Options{Recognizer: rec, Workers: opts.workers})
	if err != nil {
		return report{}, err
	}
	defer ctrl.Close()

	start := time.Now()
	var want string
	for i := 0; i < opts.n; i++ {
		want = fmt.Sprintf("image-%d.png", i)
		blob := imageref.Blob{Name: want, MediaType: imageref.MediaTypePNG, Data: []byte{byte(i)}}
		if err := ctrl.Accept(blob); err != nil {
			return report{}, err
		}
		if opts.interval > 0 {
			time.Sleep(opts.interval)
		}
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for ctrl.Snapshot().Processing() {
		select {
		case <-ctx.Done():
			return report{}, fmt.Errorf("session still processing: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	return report{
		launched:   opts.n,
		recognized: atomic.LoadInt64(&recognized),
		cancelled:  atomic.LoadInt64(&cancelled),
		final:      ctrl.Snapshot().Text,
		want:       want,
		elapsed:    time.Since(start),
	}, nil
}
