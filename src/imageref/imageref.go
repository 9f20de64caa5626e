// Package imageref holds acquired image blobs and the short-lived, revocable
// references the UI displays them through.
package imageref

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MediaTypePNG = "image/png"
	urlScheme    = "blob:"
)

var ErrRevoked = errors.New("image reference revoked")

// Blob is in-memory image data, independent of any displayable reference.
type Blob struct {
	Name      string
	MediaType string
	Data      []byte
}

// NewBlob builds a blob and fills its media type from the file name or,
// failing that, from the content.
func NewBlob(name string, data []byte) Blob {
	return Blob{Name: name, MediaType: DetectMediaType(name, data), Data: data}
}

// IsImageType reports whether a media type names an image.
func IsImageType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// DetectMediaType prefers the extension and falls back to content sniffing.
func DetectMediaType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return stripParams(t)
		}
	}
	if len(data) == 0 {
		return ""
	}
	return stripParams(http.DetectContentType(data))
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Ref is a displayable handle for a blob, valid until revoked.
type Ref struct {
	ID        string
	URL       string
	Name      string
	MediaType string
	Size      int
}

func (r Ref) IsZero() bool { return r.ID == "" }

// Registry owns the blobs behind live references.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Blob
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Blob)}
}

// Create registers blob and returns a fresh reference to it.
func (r *Registry) Create(b Blob) Ref {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = b
	r.mu.Unlock()
	return Ref{ID: id, URL: urlScheme + id, Name: b.Name, MediaType: b.MediaType, Size: len(b.Data)}
}

// Revoke releases the blob behind ref. It reports whether ref was live.
func (r *Registry) Revoke(ref Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[ref.ID]; !ok {
		return false
	}
	delete(r.entries, ref.ID)
	return true
}

// Resolve returns the blob behind a live reference.
func (r *Registry) Resolve(ref Ref) (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.entries[ref.ID]
	if !ok {
		return Blob{}, fmt.Errorf("%s: %w", ref.URL, ErrRevoked)
	}
	return b, nil
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Decode decodes the blob with any registered format.
func Decode(b Blob) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(b.Data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", b.MediaType, err)
	}
	return img, format, nil
}

// DecodeConfig returns dimensions without decoding the full image.
func DecodeConfig(b Blob) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b.Data))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode config %s: %w", b.MediaType, err)
	}
	return cfg, nil
}

// ToPNG returns the blob as PNG bytes, re-encoding other formats.
func ToPNG(b Blob) ([]byte, error) {
	if b.MediaType == MediaTypePNG {
		return b.Data, nil
	}
	img, _, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
