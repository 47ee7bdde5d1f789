package fhir

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMissingResourceType is returned when a resource object carries no
// "resourceType" discriminator.
var ErrMissingResourceType = errors.New("resource has no resourceType")

// Bundle represents a FHIR Bundle resource. A nil Entry means the document
// had no entry list at all; an empty, non-nil Entry is a present but empty
// list.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry wraps at most one resource together with its origin
// identifier (fullUrl).
type BundleEntry struct {
	FullURL  string
	Resource Resource
}

type bundleEntryWire struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// UnmarshalJSON decodes the entry and dispatches its resource on the
// resourceType discriminator.
func (e *BundleEntry) UnmarshalJSON(data []byte) error {
	var w bundleEntryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.FullURL = w.FullURL
	e.Resource = nil

	raw := bytes.TrimSpace(w.Resource)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	res, err := DecodeResource(raw)
	if err != nil {
		if e.FullURL != "" {
			return fmt.Errorf("entry %s: %w", e.FullURL, err)
		}
		return err
	}
	e.Resource = res
	return nil
}

// MarshalJSON writes the entry with the resource's discriminator restored.
func (e BundleEntry) MarshalJSON() ([]byte, error) {
	w := bundleEntryWire{FullURL: e.FullURL}
	if e.Resource != nil {
		raw, err := MarshalResource(e.Resource)
		if err != nil {
			return nil, err
		}
		w.Resource = raw
	}
	return json.Marshal(w)
}

// DecodeResource reads the resourceType discriminator of a single resource
// object and decodes it into the matching concrete type.
func DecodeResource(raw []byte) (Resource, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	var res Resource
	switch kind := ResourceKind(probe.ResourceType); kind {
	case "":
		return nil, ErrMissingResourceType
	case KindPatient:
		res = &Patient{}
	case KindAllergyIntolerance:
		res = &AllergyIntolerance{}
	case KindMedicationStatement:
		res = &MedicationStatement{}
	case KindCondition:
		res = &Condition{}
	default:
		return &OtherResource{Type: kind, Raw: append([]byte(nil), raw...)}, nil
	}

	if err := json.Unmarshal(raw, res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.ResourceType, err)
	}
	return res, nil
}

// MarshalResource encodes a resource including its resourceType.
func MarshalResource(res Resource) ([]byte, error) {
	switch r := res.(type) {
	case *Patient:
		return json.Marshal(struct {
			ResourceType ResourceKind `json:"resourceType"`
			*Patient
		}{KindPatient, r})
	case *AllergyIntolerance:
		return json.Marshal(struct {
			ResourceType ResourceKind `json:"resourceType"`
			*AllergyIntolerance
		}{KindAllergyIntolerance, r})
	case *MedicationStatement:
		return json.Marshal(struct {
			ResourceType ResourceKind `json:"resourceType"`
			*MedicationStatement
		}{KindMedicationStatement, r})
	case *Condition:
		return json.Marshal(struct {
			ResourceType ResourceKind `json:"resourceType"`
			*Condition
		}{KindCondition, r})
	case *OtherResource:
		return r.Raw, nil
	default:
		return nil, fmt.Errorf("unsupported resource %T", res)
	}
}

// CountKind returns how many entries carry a resource of the given kind.
func (b *Bundle) CountKind(kind ResourceKind) int {
	if b == nil {
		return 0
	}
	n := 0
	for _, e := range b.Entry {
		if e.Resource != nil && e.Resource.Kind() == kind {
			n++
		}
	}
	return n
}
