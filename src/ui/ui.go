// Package ui binds the session controller to a Fyne window.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"clipboard-ocr/src/imageref"
	"clipboard-ocr/src/recognizer"
	"clipboard-ocr/src/screenshot"
	"clipboard-ocr/src/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	Title = "Clipboard OCR"

	copyLabel = "Copy text"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Options configure the window. Session options are passed through to the
// controller; View, Dispatch and Legacy are filled in by the window.
type Options struct {
	Session   session.Options
	Languages []string

	// Dispatch and DispatchWait post work to the Fyne main goroutine.
	// They default to fyne.Do and fyne.DoAndWait.
	Dispatch     func(func())
	DispatchWait func(func())
}

// Window is the application window. It implements session.View and
// session.LegacyCopier.
type Window struct {
	win  fyne.Window
	ctrl *session.Controller

	do     func(func())
	doWait func(func())

	preview    *canvas.Image
	hint       *widget.Label
	language   *widget.Select
	pasteBtn   *widget.Button
	fileBtn    *widget.Button
	captureBtn *widget.Button
	editor     *widget.Entry
	copyBtn    *widget.Button
	status     *widget.Label
	progress   *widget.ProgressBar

	// suppressEdit is set while the editor is updated from the session so the
	// change is not echoed back as a user edit.
	suppressEdit bool
}

func New(a fyne.App, opts Options) (*Window, error) {
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = fyne.Do
	}
	doWait := opts.DispatchWait
	if doWait == nil {
		doWait = fyne.DoAndWait
	}

	w := &Window{
		win:    a.NewWindow(Title),
		do:     dispatch,
		doWait: doWait,
	}

	sopts := opts.Session
	sopts.View = w
	sopts.Legacy = w
	sopts.Dispatch = dispatch
	ctrl, err := session.New(sopts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	w.ctrl = ctrl

	w.build(opts.Languages)
	w.registerPaste()
	w.win.SetOnClosed(ctrl.Close)
	return w, nil
}

// Controller returns the session behind the window.
func (w *Window) Controller() *session.Controller { return w.ctrl }

// Window returns the underlying Fyne window.
func (w *Window) Window() fyne.Window { return w.win }

// ShowAndRun shows the window and runs the Fyne event loop.
func (w *Window) ShowAndRun() {
	w.win.ShowAndRun()
}

func (w *Window) build(languages []string) {
	st := w.ctrl.Snapshot()

	w.preview = &canvas.Image{FillMode: canvas.ImageFillContain}
	w.preview.SetMinSize(fyne.NewSize(480, 270))
	w.preview.Hide()
	w.hint = widget.NewLabel("Paste an image with Ctrl+V, select a file or capture the screen.")
	w.hint.Wrapping = fyne.TextWrapWord

	languages = languageOptions(languages, st.Language)
	w.language = widget.NewSelect(languages, func(selected string) {
		w.ctrl.SetLanguage(selected)
	})
	w.language.SetSelected(st.Language)

	w.pasteBtn = widget.NewButton("Paste from clipboard", func() {
		go func() {
			if err := w.ctrl.PasteFromClipboard(context.Background()); err != nil {
				log.Printf("Paste from clipboard: %v", err)
			}
		}()
	})
	if !st.CanReadClipboard {
		w.pasteBtn.Hide()
	}
	w.fileBtn = widget.NewButton("Select file", w.openFile)
	w.captureBtn = widget.NewButton("Capture screen", func() {
		go w.CaptureScreen()
	})

	w.editor = widget.NewMultiLineEntry()
	w.editor.Wrapping = fyne.TextWrapWord
	w.editor.SetMinRowsVisible(8)
	w.editor.OnChanged = func(text string) {
		if w.suppressEdit {
			return
		}
		w.ctrl.SetText(text)
	}
	w.editor.Hide()

	w.copyBtn = widget.NewButton(copyLabel, func() {
		if err := w.ctrl.Copy(context.Background()); err != nil {
			log.Printf("Copy: %v", err)
		}
	})
	w.copyBtn.Importance = widget.HighImportance
	w.copyBtn.Hide()

	w.status = widget.NewLabel("")
	w.progress = widget.NewProgressBar()
	w.progress.Hide()

	toolbar := container.NewHBox(
		widget.NewLabel("Language:"), w.language,
		w.pasteBtn, w.fileBtn, w.captureBtn,
	)
	body := container.NewVBox(
		toolbar,
		w.hint,
		w.preview,
		w.status,
		w.progress,
		w.editor,
		w.copyBtn,
	)
	w.win.SetContent(container.NewVScroll(body))
	w.win.Resize(fyne.NewSize(720, 640))
}

// languageOptions returns the selector choices, making sure current is one of them.
func languageOptions(languages []string, current string) []string {
	out := make([]string, 0, len(languages)+1)
	seen := make(map[string]bool)
	for _, l := range append(append([]string(nil), languages...), current) {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// registerPaste binds the paste shortcut (Ctrl+V, Cmd+V on macOS, Shift+Insert)
// on the window canvas to a paste of the current clipboard contents. Drivers
// deliver these keys as fyne.ShortcutPaste, matched by shortcut name.
func (w *Window) registerPaste() {
	shortcut := &fyne.ShortcutPaste{}
	c := w.win.Canvas()
	c.AddShortcut(shortcut, func(fyne.Shortcut) {
		go func() {
			if err := w.ctrl.Paste(context.Background()); err != nil && !errors.Is(err, session.ErrNoImage) {
				log.Printf("Paste: %v", err)
			}
		}()
	})
	w.ctrl.Track(session.ReleaseFunc(func() {
		c.RemoveShortcut(shortcut)
	}))
}

func (w *Window) openFile() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			log.Printf("File dialog: %v", err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			log.Printf("Failed to read %s: %v", r.URI(), err)
			return
		}
		blob := imageref.Blob{Name: r.URI().Name(), MediaType: r.URI().MimeType(), Data: data}
		if !imageref.IsImageType(blob.MediaType) {
			blob.MediaType = imageref.DetectMediaType(blob.Name, data)
		}
		if err := w.ctrl.SelectFiles(blob); err != nil {
			log.Printf("Select file: %v", err)
		}
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	d.Show()
}

// CaptureScreen grabs the whole screen and accepts it as the session image.
// It blocks, so callers on the UI goroutine run it in a goroutine.
func (w *Window) CaptureScreen() {
	blob, err := screenshot.CaptureScreen()
	if err != nil {
		log.Printf("Screen capture failed: %v", err)
		w.do(func() { w.status.SetText("Screen capture failed") })
		return
	}
	if err := w.ctrl.Accept(blob); err != nil {
		log.Printf("Accept capture: %v", err)
	}
}

func (w *Window) ShowImage(ref imageref.Ref) {
	blob, err := w.ctrl.Resolve(ref)
	if err != nil {
		log.Printf("ShowImage: %v", err)
		return
	}
	img, _, err := imageref.Decode(blob)
	if err != nil {
		// The recognizer may still read formats the preview cannot decode.
		log.Printf("Preview unavailable for %s: %v", ref.URL, err)
		w.preview.Image = nil
		w.preview.Hide()
	} else {
		w.preview.Image = img
		w.preview.Show()
	}
	w.hint.Hide()
	w.preview.Refresh()
}

func (w *Window) ShowText(text string) {
	w.suppressEdit = true
	w.editor.SetText(text)
	w.suppressEdit = false
	if text == "" {
		w.editor.Hide()
		w.copyBtn.Hide()
		return
	}
	w.editor.Show()
	w.copyBtn.Show()
}

func (w *Window) ShowProcessing(processing bool) {
	if processing {
		w.status.SetText("Processing image...")
		w.progress.SetValue(0)
		w.progress.Show()
		return
	}
	w.status.SetText("")
	w.progress.Hide()
}

func (w *Window) ShowProgress(p recognizer.Progress) {
	w.progress.SetValue(p.Value)
	if p.Status != "" {
		w.status.SetText("Processing image: " + p.Status)
	}
}

func (w *Window) ShowCopyStatus(status session.CopyStatus) {
	switch status {
	case session.CopyCopying:
		w.copyBtn.SetText("Copying...")
		w.copyBtn.Disable()
	case session.CopySuccess:
		w.copyBtn.SetText("Copied!")
		w.copyBtn.Enable()
	case session.CopyError:
		w.copyBtn.SetText("Copy failed")
		w.copyBtn.Enable()
	default:
		w.copyBtn.SetText(copyLabel)
		w.copyBtn.Enable()
	}
}

func (w *Window) Notify(n session.Notice) {
	dialog.ShowInformation(Title, n.String(), w.win)
}

// SelectAllAndCopy selects the editor text and issues the copy shortcut
// through the window clipboard.
func (w *Window) SelectAllAndCopy() bool {
	ok := false
	w.doWait(func() {
		cb := w.win.Clipboard()
		if cb == nil {
			return
		}
		w.editor.TypedShortcut(&fyne.ShortcutSelectAll{})
		w.editor.TypedShortcut(&fyne.ShortcutCopy{Clipboard: cb})
		ok = w.editor.Text != "" && cb.Content() == w.editor.Text
	})
	return ok
}
