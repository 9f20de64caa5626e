package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"clipboard-ocr/src/recognizer"
)

// ErrSuperseded is reported to a queued job replaced by a newer submission.
var ErrSuperseded = errors.New("recognition superseded by a newer image")

// ResultCallback is invoked on OCR completion (from a worker goroutine).
// The caller is responsible for posting the result back to its own state safely.
type ResultCallback func(res recognizer.Result, err error)

// Pool runs recognitions on a fixed set of workers with a 1-slot input queue.
// A submission never blocks: a newer job replaces the queued one, whose
// callback receives ErrSuperseded.
type Pool struct {
	rec    recognizer.Recognizer
	jobs   chan job
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Job describes one recognition request.
type Job struct {
	Image    recognizer.Image
	Language string
	Observer recognizer.ProgressObserver
}

type job struct {
	Job
	ctx context.Context
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0.
func New(rec recognizer.Recognizer, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{rec: rec, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting %s OCR for %s (%d bytes, lang=%s)", p.rec.Name(), j.Image.ID, len(j.Image.Data), j.Language)
				res, err := p.run(j)
				log.Printf("Worker: OCR completed for %s, text length=%d, err=%v", j.Image.ID, len(res.Text), err)
				j.cb(res, err)
			}
		}()
	}
}

// Submit enqueues a job, replacing any job still waiting in the queue.
// It returns false once the pool is closed.
func (p *Pool) Submit(ctx context.Context, jb Job, cb ResultCallback) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	next := job{Job: jb, ctx: ctx, cb: cb}
	for {
		select {
		case p.jobs <- next:
			return true
		default:
		}
		select {
		case old := <-p.jobs:
			log.Printf("Worker: dropping queued job %s", old.Image.ID)
			go old.cb(recognizer.Result{}, ErrSuperseded)
		default:
		}
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(j job) (res recognizer.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in recognizer: %v\n%s", r, debug.Stack())
			res, err = recognizer.Result{}, fmt.Errorf("recognizer panic: %v", r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		return recognizer.Result{}, err
	}
	return recognizeWithContext(j.ctx, p.rec, j.Job)
}

// recognizeWithContext honours ctx even when the engine itself does not
// (tesseract runs to completion in C).
func recognizeWithContext(ctx context.Context, rec recognizer.Recognizer, j Job) (recognizer.Result, error) {
	// Fast path: nothing can cancel ctx.
	if ctx.Done() == nil {
		return rec.Recognize(ctx, j.Image, j.Language, j.Observer)
	}
	type outcome struct {
		res recognizer.Result
		err error
	}
	resCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- outcome{err: fmt.Errorf("recognizer panic: %v", r)}
			}
		}()
		res, err := rec.Recognize(ctx, j.Image, j.Language, j.Observer)
		resCh <- outcome{res, err}
	}()
	select {
	case o := <-resCh:
		return o.res, o.err
	case <-ctx.Done():
		// The engine keeps running in the background; its result is dropped.
		return recognizer.Result{}, ctx.Err()
	}
}
