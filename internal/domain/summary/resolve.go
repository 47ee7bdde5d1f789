package summary

import (
	"strconv"
	"strings"
	"time"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

const (
	// UnknownLabel is used when neither a coding nor fallback text is present.
	UnknownLabel = "Unknown"
	// UnknownPatient is the display name of a subject without any name entry.
	UnknownPatient = "Unknown Patient"
)

// ResolveLabel returns the display of the first coding, else its code, else
// the fallback text, else UnknownLabel.
func ResolveLabel(codings []fhir.Coding, fallback string) string {
	if len(codings) > 0 {
		if d := strings.TrimSpace(codings[0].Display); d != "" {
			return d
		}
		if c := strings.TrimSpace(codings[0].Code); c != "" {
			return c
		}
	}
	if f := strings.TrimSpace(fallback); f != "" {
		return f
	}
	return UnknownLabel
}

// ResolveConcept builds a Concept from a CodeableConcept. A nil concept
// resolves to UnknownLabel.
func ResolveConcept(cc *fhir.CodeableConcept) Concept {
	if cc == nil {
		return Concept{Label: UnknownLabel}
	}
	c := Concept{
		Label: ResolveLabel(cc.Coding, cc.Text),
		Text:  cc.Text,
	}
	if len(cc.Coding) > 0 {
		c.System = cc.Coding[0].System
		c.Code = cc.Coding[0].Code
		c.Display = cc.Coding[0].Display
	}
	return c
}

// ResolveDisplayName joins the prefixes, given names and family name of the
// subject's first name entry.
func ResolveDisplayName(s Subject) string {
	if len(s.Names) == 0 {
		return UnknownPatient
	}
	n := s.Names[0]

	var parts []string
	for _, seg := range [...]string{
		strings.Join(n.Prefix, " "),
		strings.Join(n.Given, " "),
		n.Family,
	} {
		if seg = strings.TrimSpace(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

type dateLayout struct {
	parse  string
	render string
}

// Ordered most to least precise. Fractional seconds are accepted by the
// parser without being named in the layout.
var dateLayouts = []dateLayout{
	{time.RFC3339, "2 January 2006"},
	{"2006-01-02T15:04:05", "2 January 2006"},
	{"2006-01-02T15:04", "2 January 2006"},
	{"2006-01-02", "2 January 2006"},
	{"2006-01", "January 2006"},
	{"2006", "2006"},
}

// FormatDate renders an ISO 8601 date or date-time as a long-form date such
// as "15 March 1985". Partial dates keep their precision. Unparsable input is
// returned unchanged and empty input yields UnknownLabel.
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return UnknownLabel
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.parse, s); err == nil {
			return t.Format(l.render)
		}
	}
	return raw
}

// SeverityCategory groups severity and criticality tokens for display.
type SeverityCategory string

const (
	SeverityHigh     SeverityCategory = "high"
	SeverityModerate SeverityCategory = "moderate"
	SeverityLow      SeverityCategory = "low"
	SeverityNeutral  SeverityCategory = "neutral"
)

// ClassifySeverity maps a severity or criticality token to its category.
func ClassifySeverity(token string) SeverityCategory {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "high", "severe":
		return SeverityHigh
	case "moderate":
		return SeverityModerate
	case "low", "mild":
		return SeverityLow
	default:
		return SeverityNeutral
	}
}

// StatusCategory groups lifecycle and clinical status tokens for display.
type StatusCategory string

const (
	StatusActive    StatusCategory = "active"
	StatusCompleted StatusCategory = "completed"
	StatusHalted    StatusCategory = "halted"
	StatusPaused    StatusCategory = "paused"
	StatusNeutral   StatusCategory = "neutral"
)

// ClassifyStatus maps a status token to its category.
func ClassifyStatus(token string) StatusCategory {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "active":
		return StatusActive
	case "completed":
		return StatusCompleted
	case "stopped", "entered-in-error":
		return StatusHalted
	case "on-hold":
		return StatusPaused
	default:
		return StatusNeutral
	}
}

var periodUnits = map[string]string{
	"s":   "second",
	"min": "minute",
	"h":   "hour",
	"d":   "day",
	"wk":  "week",
	"mo":  "month",
	"a":   "year",
}

// DescribeRepeat renders a repeat rule as "2x per day" or "1x per 8 hours".
// It returns "" when frequency, period or unit is missing.
func DescribeRepeat(r *RepeatRule) string {
	if r == nil || r.Frequency <= 0 || r.Period <= 0 || r.PeriodUnit == "" {
		return ""
	}
	unit, ok := periodUnits[r.PeriodUnit]
	if !ok {
		unit = r.PeriodUnit
	}
	freq := strconv.Itoa(r.Frequency) + "x per "
	if r.Period == 1 {
		return freq + unit
	}
	period := strconv.FormatFloat(r.Period, 'f', -1, 64)
	if ok {
		unit += "s"
	}
	return freq + period + " " + unit
}
