package export

import (
	"mime"
	"strconv"
	"strings"
)

// acceptTypes maps media types a client may list in Accept to the format
// served for them.
var acceptTypes = map[string]Format{
	"text/plain":            FormatText,
	"text/*":                FormatText,
	"application/json":      FormatJSON,
	"application/fhir+json": FormatJSON,
	"application/yaml":      FormatYAML,
	"application/x-yaml":    FormatYAML,
	"text/yaml":             FormatYAML,
}

// Negotiate picks the output format for an Accept header. An empty header or
// a wildcard selects fallback. It reports false when the header lists only
// media types no format can be served as.
func Negotiate(accept string, fallback Format) (Format, bool) {
	if strings.TrimSpace(accept) == "" {
		return fallback, true
	}

	best, bestQ := fallback, -1.0
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if q, err = strconv.ParseFloat(v, 64); err != nil {
				continue
			}
		}
		if q <= 0 || q <= bestQ {
			continue
		}

		switch {
		case mt == "*/*":
			best, bestQ = fallback, q
		case mt == "application/*":
			best, bestQ = FormatJSON, q
			if fallback != FormatText {
				best = fallback
			}
		default:
			if f, ok := acceptTypes[mt]; ok {
				best, bestQ = f, q
			}
		}
	}
	return best, bestQ > 0
}
