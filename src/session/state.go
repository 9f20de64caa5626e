package session

import (
	"errors"
	"fmt"

	"clipboard-ocr/src/imageref"
)

var (
	ErrNoImage           = errors.New("no image found")
	ErrNotImage          = errors.New("not an image")
	ErrNothingToCopy     = errors.New("nothing to copy")
	ErrCopyInProgress    = errors.New("copy already in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrClosed            = errors.New("session closed")
)

// RecognitionErrorText replaces the recognized text when the recognizer fails.
const RecognitionErrorText = "Error processing image"

// Phase is the recognition state of the session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProcessing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// A newer image may arrive while processing, so processing -> processing is legal.
func (p Phase) canTransition(next Phase) bool {
	switch p {
	case PhaseIdle:
		return next == PhaseProcessing
	case PhaseProcessing:
		return true
	}
	return false
}

// CopyStatus is the state of the copy-to-clipboard action.
type CopyStatus int

const (
	CopyIdle CopyStatus = iota
	CopyCopying
	CopySuccess
	CopyError
)

func (s CopyStatus) String() string {
	switch s {
	case CopyIdle:
		return "idle"
	case CopyCopying:
		return "copying"
	case CopySuccess:
		return "success"
	case CopyError:
		return "error"
	default:
		return "unknown"
	}
}

func (s CopyStatus) canTransition(next CopyStatus) bool {
	switch s {
	case CopyIdle:
		return next == CopyCopying
	case CopyCopying:
		return next == CopySuccess || next == CopyError
	case CopySuccess, CopyError:
		return next == CopyIdle || next == CopyCopying
	}
	return false
}

// Notice is a user-visible message raised by the session.
type Notice int

const (
	NoticeNoImage Notice = iota + 1
	NoticeClipboardDenied
	NoticeCopyFailed
)

func (n Notice) String() string {
	switch n {
	case NoticeNoImage:
		return "No image found on the clipboard."
	case NoticeClipboardDenied:
		return "Could not access the clipboard. Try pasting with Ctrl+V or selecting a file."
	case NoticeCopyFailed:
		return "Could not copy the text. Select it and copy it manually."
	default:
		return fmt.Sprintf("notice(%d)", int(n))
	}
}

// State is a snapshot of the session.
type State struct {
	Image            imageref.Ref
	Text             string
	Phase            Phase
	CopyStatus       CopyStatus
	Language         string
	CanReadClipboard bool
}

func (s State) Processing() bool { return s.Phase == PhaseProcessing }

func (s State) HasImage() bool { return !s.Image.IsZero() }
