package fhir

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// ErrNotBundle is returned when a document's top-level resourceType is not
// "Bundle".
var ErrNotBundle = errors.New("document is not a FHIR Bundle")

// bundleHeader is the minimal shape a document must have before it is
// decoded as a Bundle.
type bundleHeader struct {
	ResourceType string `json:"resourceType" validate:"required,eq=Bundle"`
}

var shape = validator.New()

// DecodeBundle checks the top-level discriminator of a JSON document and
// decodes it into a Bundle. The check runs first so that a non-bundle
// document is reported as such instead of failing on some nested field.
func DecodeBundle(data []byte) (*Bundle, error) {
	var hdr bundleHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("fhir: invalid JSON: %w", err)
	}
	if err := shape.Struct(hdr); err != nil {
		if hdr.ResourceType == "" {
			return nil, fmt.Errorf("%w: resourceType is missing", ErrNotBundle)
		}
		return nil, fmt.Errorf("%w: resourceType is %q", ErrNotBundle, hdr.ResourceType)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("fhir: decode bundle: %w", err)
	}
	return &b, nil
}
