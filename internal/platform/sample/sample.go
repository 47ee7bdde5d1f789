// Package sample ships a demonstration European Patient Summary bundle used
// by the CLI "sample" command, the sample summary endpoint and tests.
package sample

import (
	_ "embed"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

//go:embed eps_bundle.json
var bundleJSON []byte

// BundleJSON returns a copy of the raw sample document.
func BundleJSON() []byte {
	return append([]byte(nil), bundleJSON...)
}

// Bundle decodes the sample document. Each call returns a fresh value.
func Bundle() (*fhir.Bundle, error) {
	return fhir.DecodeBundle(bundleJSON)
}
