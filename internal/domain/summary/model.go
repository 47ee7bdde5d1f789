package summary

import (
	"fmt"
	"strings"
)

// Concept is a coded value with its human-readable label already resolved.
type Concept struct {
	Label   string `json:"label" yaml:"label"`
	System  string `json:"system,omitempty" yaml:"system,omitempty"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Display string `json:"display,omitempty" yaml:"display,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
}

type Identifier struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	System string `json:"system,omitempty" yaml:"system,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
}

type PersonName struct {
	Use    string   `json:"use,omitempty" yaml:"use,omitempty"`
	Prefix []string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Given  []string `json:"given,omitempty" yaml:"given,omitempty"`
	Family string   `json:"family,omitempty" yaml:"family,omitempty"`
}

// Contact channels a subject can be reached on. Any other system value of the
// source document is carried through verbatim.
const (
	ChannelPhone = "phone"
	ChannelEmail = "email"
)

type ContactPoint struct {
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Use     string `json:"use,omitempty" yaml:"use,omitempty"`
}

type PostalAddress struct {
	Use        string   `json:"use,omitempty" yaml:"use,omitempty"`
	Lines      []string `json:"lines,omitempty" yaml:"lines,omitempty"`
	City       string   `json:"city,omitempty" yaml:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	State      string   `json:"state,omitempty" yaml:"state,omitempty"`
	Country    string   `json:"country,omitempty" yaml:"country,omitempty"`
}

// String renders the address on one line: street lines, postal code and
// city, state, country.
func (a PostalAddress) String() string {
	var parts []string
	if len(a.Lines) > 0 {
		parts = append(parts, strings.Join(a.Lines, ", "))
	}
	if locality := strings.TrimSpace(a.PostalCode + " " + a.City); locality != "" {
		parts = append(parts, locality)
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

// Subject is the person the summary is about.
type Subject struct {
	ID          string          `json:"id,omitempty" yaml:"id,omitempty"`
	Source      string          `json:"source,omitempty" yaml:"source,omitempty"`
	DisplayName string          `json:"displayName" yaml:"displayName"`
	Identifiers []Identifier    `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	Names       []PersonName    `json:"names,omitempty" yaml:"names,omitempty"`
	Gender      string          `json:"gender,omitempty" yaml:"gender,omitempty"`
	BirthDate   string          `json:"birthDate,omitempty" yaml:"birthDate,omitempty"`
	Telecom     []ContactPoint  `json:"telecom,omitempty" yaml:"telecom,omitempty"`
	Addresses   []PostalAddress `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// Contacts returns the contact points on the given channel, in document order.
func (s Subject) Contacts(channel string) []ContactPoint {
	var out []ContactPoint
	for _, cp := range s.Telecom {
		if cp.Channel == channel {
			out = append(out, cp)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Ordered vocabularies
// ---------------------------------------------------------------------------

// Criticality of an allergy or intolerance, ordered from least to most
// critical.
type Criticality int

const (
	CriticalityUnassessed Criticality = iota
	CriticalityLow
	CriticalityHigh
)

var criticalityTokens = [...]string{
	CriticalityUnassessed: "unable-to-assess",
	CriticalityLow:        "low",
	CriticalityHigh:       "high",
}

// ParseCriticality maps a criticality token to its level. Absent or
// unrecognised tokens are treated as unassessed.
func ParseCriticality(token string) Criticality {
	for i, t := range criticalityTokens {
		if strings.EqualFold(strings.TrimSpace(token), t) {
			return Criticality(i)
		}
	}
	return CriticalityUnassessed
}

func (c Criticality) String() string {
	if c < 0 || int(c) >= len(criticalityTokens) {
		return fmt.Sprintf("Criticality(%d)", int(c))
	}
	return criticalityTokens[c]
}

func (c Criticality) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(criticalityTokens) {
		return nil, fmt.Errorf("summary: invalid criticality %d", int(c))
	}
	return []byte(criticalityTokens[c]), nil
}

func (c *Criticality) UnmarshalText(text []byte) error {
	for i, t := range criticalityTokens {
		if string(text) == t {
			*c = Criticality(i)
			return nil
		}
	}
	return fmt.Errorf("summary: unknown criticality %q", text)
}

// ReactionSeverity is the severity of a single reaction, ordered from
// unspecified to severe.
type ReactionSeverity int

const (
	ReactionUnspecified ReactionSeverity = iota
	ReactionMild
	ReactionModerate
	ReactionSevere
)

var reactionSeverityTokens = [...]string{
	ReactionUnspecified: "unspecified",
	ReactionMild:        "mild",
	ReactionModerate:    "moderate",
	ReactionSevere:      "severe",
}

// ParseReactionSeverity maps a severity token to its level; anything else is
// unspecified.
func ParseReactionSeverity(token string) ReactionSeverity {
	for i, t := range reactionSeverityTokens {
		if strings.EqualFold(strings.TrimSpace(token), t) {
			return ReactionSeverity(i)
		}
	}
	return ReactionUnspecified
}

func (s ReactionSeverity) String() string {
	if s < 0 || int(s) >= len(reactionSeverityTokens) {
		return fmt.Sprintf("ReactionSeverity(%d)", int(s))
	}
	return reactionSeverityTokens[s]
}

func (s ReactionSeverity) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(reactionSeverityTokens) {
		return nil, fmt.Errorf("summary: invalid reaction severity %d", int(s))
	}
	return []byte(reactionSeverityTokens[s]), nil
}

func (s *ReactionSeverity) UnmarshalText(text []byte) error {
	for i, t := range reactionSeverityTokens {
		if string(text) == t {
			*s = ReactionSeverity(i)
			return nil
		}
	}
	return fmt.Errorf("summary: unknown reaction severity %q", text)
}

// TreatmentStatus is the lifecycle status of a medication statement.
type TreatmentStatus string

const (
	TreatmentActive         TreatmentStatus = "active"
	TreatmentCompleted      TreatmentStatus = "completed"
	TreatmentStopped        TreatmentStatus = "stopped"
	TreatmentOnHold         TreatmentStatus = "on-hold"
	TreatmentEnteredInError TreatmentStatus = "entered-in-error"
	TreatmentIntended       TreatmentStatus = "intended"
	TreatmentNotTaken       TreatmentStatus = "not-taken"
	TreatmentUnknown        TreatmentStatus = "unknown"
)

var treatmentStatuses = map[string]TreatmentStatus{
	"active":           TreatmentActive,
	"completed":        TreatmentCompleted,
	"stopped":          TreatmentStopped,
	"on-hold":          TreatmentOnHold,
	"entered-in-error": TreatmentEnteredInError,
	"intended":         TreatmentIntended,
	"not-taken":        TreatmentNotTaken,
	"unknown":          TreatmentUnknown,
}

// ParseTreatmentStatus normalises a status token; unrecognised or absent
// tokens become TreatmentUnknown.
func ParseTreatmentStatus(token string) TreatmentStatus {
	if s, ok := treatmentStatuses[strings.ToLower(strings.TrimSpace(token))]; ok {
		return s
	}
	return TreatmentUnknown
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Sensitivity is an allergy or intolerance record.
type Sensitivity struct {
	ID                 string      `json:"id,omitempty" yaml:"id,omitempty"`
	Source             string      `json:"source,omitempty" yaml:"source,omitempty"`
	Substance          Concept     `json:"substance" yaml:"substance"`
	ClinicalStatus     string      `json:"clinicalStatus,omitempty" yaml:"clinicalStatus,omitempty"`
	VerificationStatus string      `json:"verificationStatus,omitempty" yaml:"verificationStatus,omitempty"`
	Criticality        Criticality `json:"criticality" yaml:"criticality"`
	Reactions          []Reaction  `json:"reactions,omitempty" yaml:"reactions,omitempty"`
	RecordedDate       string      `json:"recordedDate,omitempty" yaml:"recordedDate,omitempty"`
}

// MostSevereReaction returns the highest severity across all reactions.
func (s Sensitivity) MostSevereReaction() ReactionSeverity {
	max := ReactionUnspecified
	for _, r := range s.Reactions {
		if r.Severity > max {
			max = r.Severity
		}
	}
	return max
}

type Reaction struct {
	Manifestations []string         `json:"manifestations,omitempty" yaml:"manifestations,omitempty"`
	Severity       ReactionSeverity `json:"severity" yaml:"severity"`
}

// Treatment is a medication statement.
type Treatment struct {
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	Source     string          `json:"source,omitempty" yaml:"source,omitempty"`
	Medication Concept         `json:"medication" yaml:"medication"`
	Status     TreatmentStatus `json:"status" yaml:"status"`
	StartDate  string          `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate    string          `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Dosage     *Dosage         `json:"dosage,omitempty" yaml:"dosage,omitempty"`
}

type Dosage struct {
	Text   string      `json:"text,omitempty" yaml:"text,omitempty"`
	Route  *Concept    `json:"route,omitempty" yaml:"route,omitempty"`
	Dose   *Dose       `json:"dose,omitempty" yaml:"dose,omitempty"`
	Repeat *RepeatRule `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

type Dose struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// RepeatRule is "Frequency times per Period PeriodUnit". Zero fields were
// absent in the source.
type RepeatRule struct {
	Frequency  int     `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Period     float64 `json:"period,omitempty" yaml:"period,omitempty"`
	PeriodUnit string  `json:"periodUnit,omitempty" yaml:"periodUnit,omitempty"`
}

// Finding is a condition, problem or diagnosis.
type Finding struct {
	ID                 string   `json:"id,omitempty" yaml:"id,omitempty"`
	Source             string   `json:"source,omitempty" yaml:"source,omitempty"`
	Problem            Concept  `json:"problem" yaml:"problem"`
	ClinicalStatus     string   `json:"clinicalStatus,omitempty" yaml:"clinicalStatus,omitempty"`
	VerificationStatus string   `json:"verificationStatus,omitempty" yaml:"verificationStatus,omitempty"`
	Severity           *Concept `json:"severity,omitempty" yaml:"severity,omitempty"`
	OnsetDate          string   `json:"onsetDate,omitempty" yaml:"onsetDate,omitempty"`
	RecordedDate       string   `json:"recordedDate,omitempty" yaml:"recordedDate,omitempty"`
}

// Summary is the flat, presentation-ready view of one patient summary
// document. The three lists keep the bundle's entry order and are never nil
// once produced by Extract.
type Summary struct {
	Subject       Subject       `json:"subject" yaml:"subject"`
	Sensitivities []Sensitivity `json:"sensitivities" yaml:"sensitivities"`
	Treatments    []Treatment   `json:"treatments" yaml:"treatments"`
	Findings      []Finding     `json:"findings" yaml:"findings"`
	LastUpdated   string        `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
}
