// Package intake obtains patient summary documents from files, standard input
// or HTTP uploads. It enforces size and media-type limits, decodes the JSON
// text and performs the minimal shape check before a bundle is handed to the
// summary extractor.
package intake

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrEmptyDocument      = errors.New("document is empty")
	ErrFileTooLarge       = errors.New("document exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// DefaultMaxSize is the document size limit used when none is configured (5 MB).
const DefaultMaxSize = 5 * 1024 * 1024

// AllowedContentTypes lists the media types a summary document may be sent as.
var AllowedContentTypes = map[string]bool{
	"application/json":         true,
	"application/fhir+json":    true,
	"text/plain":               true,
	"text/json":                true,
	"application/octet-stream": true,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a decoded bundle together with what is known about its origin.
type Document struct {
	ID         string
	Name       string
	Size       int64
	Hash       string
	ReceivedAt time.Time
	Bundle     *fhir.Bundle
}

// Reader reads and decodes documents. It is safe for concurrent use.
type Reader struct {
	maxSize int64
	logger  zerolog.Logger
}

// NewReader returns a Reader limited to maxSize bytes per document. A
// non-positive maxSize selects DefaultMaxSize.
func NewReader(maxSize int64, logger zerolog.Logger) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Reader{maxSize: maxSize, logger: logger}
}

// MaxSize returns the per-document size limit in bytes.
func (r *Reader) MaxSize() int64 {
	return r.maxSize
}

// ReadFile reads the document at path. The name "-" reads standard input.
func (r *Reader) ReadFile(path string) (*Document, error) {
	if path == "-" {
		return r.ReadFrom("stdin", os.Stdin, "")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("intake: open %s: %w", path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > r.maxSize {
		return nil, fmt.Errorf("intake: %s is %d bytes: %w", path, info.Size(), ErrFileTooLarge)
	}
	return r.ReadFrom(filepath.Base(path), f, "")
}

// ReadFrom reads one document from src. An empty contentType is accepted;
// otherwise it must be one of AllowedContentTypes, unless the name carries a
// .json extension.
func (r *Reader) ReadFrom(name string, src io.Reader, contentType string) (*Document, error) {
	if err := checkContentType(name, contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(src, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("intake: reading %s: %w", name, err)
	}
	if int64(len(data)) > r.maxSize {
		return nil, fmt.Errorf("intake: %s: %w", name, ErrFileTooLarge)
	}

	return r.Decode(name, data)
}

// Decode decodes an in-memory document.
func (r *Reader) Decode(name string, data []byte) (*Document, error) {
	size := int64(len(data))
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("intake: %s: %w", name, ErrEmptyDocument)
	}

	b, err := fhir.DecodeBundle(data)
	if err != nil {
		return nil, fmt.Errorf("intake: %s: %w", name, err)
	}

	h := sha256.Sum256(data)
	doc := &Document{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       size,
		Hash:       fmt.Sprintf("%x", h),
		ReceivedAt: time.Now().UTC(),
		Bundle:     b,
	}

	if n := b.CountKind(fhir.KindPatient); n > 1 {
		r.logger.Warn().
			Str("document", name).
			Str("document_id", doc.ID).
			Int("patients", n).
			Msg("bundle holds more than one Patient; only the first is summarised and all other entries are attributed to it")
	}

	r.logger.Debug().
		Str("document", name).
		Str("document_id", doc.ID).
		Int64("size", size).
		Int("entries", len(b.Entry)).
		Msg("document decoded")

	return doc, nil
}

func checkContentType(name, contentType string) error {
	if contentType == "" || strings.EqualFold(filepath.Ext(name), ".json") {
		return nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("intake: %q: %w", contentType, ErrInvalidContentType)
	}
	if !AllowedContentTypes[mt] {
		return fmt.Errorf("intake: %s: %w", mt, ErrInvalidContentType)
	}
	return nil
}
