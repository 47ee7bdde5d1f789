// Package export serialises summaries for other programs to consume.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"go.yaml.in/yaml/v3"

	"github.com/ehr/epsviewer/internal/domain/summary"
	"github.com/ehr/epsviewer/internal/platform/render"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNotDecodable  = errors.New("format cannot be decoded")
)

// ParseFormat accepts "text", "json", "yaml" or "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the media type of the encoded output.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=UTF-8"
	case FormatYAML:
		return "application/yaml; charset=UTF-8"
	default:
		return "text/plain; charset=UTF-8"
	}
}

// Encode writes s to w in the given format.
func Encode(w io.Writer, s *summary.Summary, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("export: json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("export: yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("export: yaml: %w", err)
		}
		return nil
	case FormatText:
		return render.Text(w, s)
	}
	return fmt.Errorf("export: %w: %q", ErrUnknownFormat, f)
}

// Decode reads a summary previously written by Encode. Text output cannot be
// read back.
func Decode(r io.Reader, f Format) (*summary.Summary, error) {
	var s summary.Summary
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("export: json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("export: yaml: %w", err)
		}
	case FormatText:
		return nil, fmt.Errorf("export: %s: %w", f, ErrNotDecodable)
	default:
		return nil, fmt.Errorf("export: %w: %q", ErrUnknownFormat, f)
	}
	return &s, nil
}
