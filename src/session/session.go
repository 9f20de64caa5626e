package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"clipboard-ocr/src/clipboard"
	"clipboard-ocr/src/imageref"
	"clipboard-ocr/src/logutil"
	"clipboard-ocr/src/recognizer"
	"clipboard-ocr/src/worker"
)

const (
	DefaultLanguage       = "eng"
	DefaultCopyResetDelay = 2 * time.Second
)

// View renders session changes. Its methods are invoked through the
// session's Dispatcher and must not call back into the Controller
// synchronously.
type View interface {
	ShowImage(ref imageref.Ref)
	ShowText(text string)
	ShowProcessing(processing bool)
	ShowCopyStatus(status CopyStatus)
	Notify(n Notice)
}

// ProgressView is optionally implemented by views that display recognition progress.
type ProgressView interface {
	ShowProgress(p recognizer.Progress)
}

// Dispatcher runs f on the goroutine that owns the view.
type Dispatcher func(f func())

// Inline runs f immediately on the calling goroutine.
func Inline(f func()) { f() }

// LegacyCopier copies by selecting all text in the editing surface and
// issuing the platform copy command. It reports whether the copy succeeded.
type LegacyCopier interface {
	SelectAllAndCopy() bool
}

// Subscription is a scoped registration released when the session closes.
type Subscription interface {
	Release()
}

// ReleaseFunc adapts a function to Subscription.
type ReleaseFunc func()

func (f ReleaseFunc) Release() { f() }

type Options struct {
	Recognizer recognizer.Recognizer
	View       View
	Dispatch   Dispatcher

	// ClipboardReader backs the paste and clipboard-read paths. Reading is
	// offered only when it is set and, if it has a CanRead method, that
	// reports true.
	ClipboardReader clipboard.Reader
	ClipboardWriter clipboard.Writer
	Legacy          LegacyCopier

	Language       string
	CopyResetDelay time.Duration
	// Deadline bounds each recognition; zero means no deadline.
	Deadline time.Duration
	Workers  int
}

// Controller owns the session state and orchestrates
// acquire -> recognize -> display/copy. It is safe for concurrent use.
type Controller struct {
	opts Options
	view View
	refs *imageref.Registry
	pool *worker.Pool

	mu         sync.Mutex
	state      State
	token      uint64
	inflight   map[uint64]context.CancelFunc
	copySeq    uint64
	resetTimer *time.Timer
	subs       []Subscription
	closed     bool
}

func New(opts Options) (*Controller, error) {
	if opts.Recognizer == nil {
		return nil, errors.New("Recognizer is required")
	}
	if opts.Dispatch == nil {
		opts.Dispatch = Inline
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.CopyResetDelay <= 0 {
		opts.CopyResetDelay = DefaultCopyResetDelay
	}
	view := opts.View
	if view == nil {
		view = nopView{}
	}

	canRead := opts.ClipboardReader != nil
	if cr, ok := opts.ClipboardReader.(interface{ CanRead() bool }); ok {
		canRead = cr.CanRead()
	}

	c := &Controller{
		opts:     opts,
		view:     view,
		refs:     imageref.NewRegistry(),
		pool:     worker.New(opts.Recognizer, opts.Workers),
		inflight: make(map[uint64]context.CancelFunc),
		state: State{
			Language:         opts.Language,
			CanReadClipboard: canRead,
		},
	}
	log.Printf("Session created: engine=%s lang=%s clipboard-read=%v", opts.Recognizer.Name(), opts.Language, canRead)
	return c, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resolve returns the blob behind a live image reference.
func (c *Controller) Resolve(ref imageref.Ref) (imageref.Blob, error) {
	return c.refs.Resolve(ref)
}

// Accept makes blob the current image and starts recognizing it.
func (c *Controller) Accept(blob imageref.Blob) error {
	if !imageref.IsImageType(blob.MediaType) {
		return fmt.Errorf("%q: %w", blob.MediaType, ErrNotImage)
	}
	if len(blob.Data) == 0 {
		return fmt.Errorf("empty %s: %w", blob.MediaType, ErrNotImage)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.setPhase(PhaseProcessing); err != nil {
		return err
	}

	prev := c.state.Image
	ref := c.refs.Create(blob)
	if !prev.IsZero() {
		c.refs.Revoke(prev)
	}
	c.state.Image = ref
	c.state.Text = ""

	// Superseded recognitions can no longer update state; stop waiting on them.
	for t, cancel := range c.inflight {
		cancel()
		delete(c.inflight, t)
	}
	c.token++
	token := c.token

	ctx, cancel := c.requestContext()
	c.inflight[token] = cancel

	c.post(func(v View) {
		v.ShowImage(ref)
		v.ShowText("")
		v.ShowProcessing(true)
	})
	log.Printf("Accepted image %s (%s, %d bytes), request %d", ref.URL, ref.MediaType, ref.Size, token)

	job := worker.Job{
		Image: recognizer.Image{
			ID:        ref.ID,
			Name:      blob.Name,
			MediaType: blob.MediaType,
			Data:      blob.Data,
		},
		Language: c.state.Language,
		Observer: c.progressObserver(token),
	}
	// Submitted under the lock so queue order matches token order.
	if !c.pool.Submit(ctx, job, func(res recognizer.Result, err error) {
		c.complete(token, res, err)
	}) {
		cancel()
		delete(c.inflight, token)
		return ErrClosed
	}
	return nil
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	if c.opts.Deadline > 0 {
		return context.WithTimeout(context.Background(), c.opts.Deadline)
	}
	return context.WithCancel(context.Background())
}

func (c *Controller) complete(token uint64, res recognizer.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cancel, ok := c.inflight[token]; ok {
		cancel()
		delete(c.inflight, token)
	}
	if c.closed {
		return
	}
	if token != c.token || errors.Is(err, worker.ErrSuperseded) {
		log.Printf("Discarding stale result for request %d (latest %d)", token, c.token)
		return
	}

	if err != nil {
		log.Printf("OCR failed for request %d: %v", token, err)
		c.state.Text = RecognitionErrorText
	} else {
		log.Printf("OCR extracted text (%d chars) in %v: %q", len(res.Text), res.Duration, logutil.SanitizeForLog(res.Text))
		c.state.Text = res.Text
	}
	if err := c.setPhase(PhaseIdle); err != nil {
		log.Printf("complete: %v", err)
	}

	text := c.state.Text
	c.post(func(v View) {
		v.ShowText(text)
		v.ShowProcessing(false)
	})
}

func (c *Controller) progressObserver(token uint64) recognizer.ProgressObserver {
	return recognizer.ProgressFunc(func(p recognizer.Progress) {
		recognizer.LogProgress.OnProgress(p)
		pv, ok := c.view.(ProgressView)
		if !ok {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || token != c.token {
			return
		}
		c.opts.Dispatch(func() { pv.ShowProgress(p) })
	})
}

// HandlePaste accepts the first image found in a paste event's items.
// Pastes without an image are ignored.
func (c *Controller) HandlePaste(ctx context.Context, items []clipboard.Item) error {
	blob, ok, err := firstImage(ctx, items)
	if err != nil {
		log.Printf("Paste: %v", err)
		return err
	}
	if !ok {
		log.Printf("Paste: no image in %d item(s)", len(items))
		return ErrNoImage
	}
	return c.Accept(blob)
}

// Paste handles a paste event whose items are the current clipboard contents.
func (c *Controller) Paste(ctx context.Context) error {
	if c.opts.ClipboardReader == nil {
		return clipboard.ErrUnavailable
	}
	items, err := c.opts.ClipboardReader.Read(ctx)
	if err != nil {
		log.Printf("Paste: %v", err)
		return err
	}
	return c.HandlePaste(ctx, items)
}

// PasteFromClipboard reads the clipboard on explicit user request and
// accepts the first image found, notifying the user when there is none or
// when access fails.
func (c *Controller) PasteFromClipboard(ctx context.Context) error {
	c.mu.Lock()
	canRead := c.state.CanReadClipboard
	c.mu.Unlock()

	if !canRead {
		c.notify(NoticeClipboardDenied)
		return clipboard.ErrUnavailable
	}
	items, err := c.opts.ClipboardReader.Read(ctx)
	if err != nil {
		log.Printf("Error accessing clipboard: %v", err)
		c.notify(NoticeClipboardDenied)
		return fmt.Errorf("read clipboard: %w", err)
	}
	blob, ok, err := firstImage(ctx, items)
	if err != nil {
		log.Printf("Error accessing clipboard: %v", err)
		c.notify(NoticeClipboardDenied)
		return fmt.Errorf("read clipboard: %w", err)
	}
	if !ok {
		c.notify(NoticeNoImage)
		return ErrNoImage
	}
	return c.Accept(blob)
}

// SelectFiles accepts the first selected file if it is an image.
func (c *Controller) SelectFiles(files ...imageref.Blob) error {
	if len(files) == 0 {
		return nil
	}
	f := files[0]
	if f.MediaType == "" {
		f.MediaType = imageref.DetectMediaType(f.Name, f.Data)
	}
	if !imageref.IsImageType(f.MediaType) {
		log.Printf("Ignoring non-image file %q (%s)", f.Name, f.MediaType)
		return fmt.Errorf("%s: %w", f.Name, ErrNotImage)
	}
	return c.Accept(f)
}

func firstImage(ctx context.Context, items []clipboard.Item) (imageref.Blob, bool, error) {
	for _, item := range items {
		for _, t := range item.Types() {
			if !imageref.IsImageType(t) {
				continue
			}
			data, err := item.Get(ctx, t)
			if err != nil {
				return imageref.Blob{}, false, err
			}
			return imageref.Blob{Name: "clipboard", MediaType: t, Data: data}, true, nil
		}
	}
	return imageref.Blob{}, false, nil
}

// SetText replaces the recognized text with the user's edit.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Text = text
}

// SetLanguage changes the language used for the next recognition.
func (c *Controller) SetLanguage(language string) {
	language = strings.TrimSpace(language)
	if language == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Language = language
}

// Copy copies the current text to the clipboard. It returns once the
// status is copying; the outcome is reported through the view.
func (c *Controller) Copy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	text := c.state.Text
	if strings.TrimSpace(text) == "" {
		return ErrNothingToCopy
	}
	if c.state.CopyStatus == CopyCopying {
		return ErrCopyInProgress
	}
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	if err := c.setCopyStatus(CopyCopying); err != nil {
		return err
	}
	c.copySeq++
	go c.runCopy(ctx, c.copySeq, text)
	return nil
}

func (c *Controller) runCopy(ctx context.Context, seq uint64, text string) {
	ok := c.writeText(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.copySeq {
		return
	}
	status := CopySuccess
	if !ok {
		status = CopyError
		c.post(func(v View) { v.Notify(NoticeCopyFailed) })
	}
	if err := c.setCopyStatus(status); err != nil {
		log.Printf("copy: %v", err)
		return
	}
	c.resetTimer = time.AfterFunc(c.opts.CopyResetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.copySeq {
			return
		}
		if err := c.setCopyStatus(CopyIdle); err != nil {
			log.Printf("copy reset: %v", err)
		}
	})
}

func (c *Controller) writeText(ctx context.Context, text string) bool {
	if w := c.opts.ClipboardWriter; w != nil {
		err := w.WriteText(ctx, text)
		if err == nil {
			log.Printf("Copied %d chars to clipboard", len(text))
			return true
		}
		log.Printf("Clipboard write failed, trying legacy copy: %v", err)
	}
	if c.opts.Legacy != nil && c.opts.Legacy.SelectAllAndCopy() {
		log.Printf("Copied %d chars with legacy copy", len(text))
		return true
	}
	log.Printf("Copy failed")
	return false
}

// Track registers a subscription to release on Close.
func (c *Controller) Track(sub Subscription) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Release()
		return
	}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

// Close releases subscriptions, revokes the current image reference,
// abandons in-flight recognitions and stops the worker pool.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	for t, cancel := range c.inflight {
		cancel()
		delete(c.inflight, t)
	}
	if !c.state.Image.IsZero() {
		c.refs.Revoke(c.state.Image)
		c.state.Image = imageref.Ref{}
	}
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Release()
	}
	c.pool.Close()
	log.Printf("Session closed")
}

// setPhase and setCopyStatus must be called with c.mu held.
func (c *Controller) setPhase(next Phase) error {
	if !c.state.Phase.canTransition(next) {
		return fmt.Errorf("phase %s -> %s: %w", c.state.Phase, next, ErrInvalidTransition)
	}
	c.state.Phase = next
	return nil
}

func (c *Controller) setCopyStatus(next CopyStatus) error {
	if !c.state.CopyStatus.canTransition(next) {
		return fmt.Errorf("copy %s -> %s: %w", c.state.CopyStatus, next, ErrInvalidTransition)
	}
	c.state.CopyStatus = next
	c.post(func(v View) { v.ShowCopyStatus(next) })
	return nil
}

func (c *Controller) notify(n Notice) {
	log.Printf("Notice: %s", n)
	c.opts.Dispatch(func() { c.view.Notify(n) })
}

func (c *Controller) post(f func(v View)) {
	v := c.view
	c.opts.Dispatch(func() { f(v) })
}

type nopView struct{}

func (nopView) ShowImage(imageref.Ref)    {}
func (nopView) ShowText(string)           {}
func (nopView) ShowProcessing(bool)       {}
func (nopView) ShowCopyStatus(CopyStatus) {}
func (nopView) Notify(Notice)             {}
