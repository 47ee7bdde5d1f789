package summary

import (
	"errors"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

var (
	// ErrMalformedInput is returned when the bundle carries no entry list.
	ErrMalformedInput = errors.New("summary: bundle has no entry list")
	// ErrMissingSubject is returned when no entry holds a Patient.
	ErrMissingSubject = errors.New("summary: bundle has no Patient entry")
)

// Extractor turns a decoded bundle into a Summary. It is safe for concurrent
// use because it holds no mutable state.
//
// Entries are attributed to the summary by presence in the bundle alone;
// subject references are not compared against the extracted Patient.
type Extractor struct{}

// NewExtractor creates a new summary extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var defaultExtractor = NewExtractor()

// Extract is shorthand for NewExtractor().Extract(b).
func Extract(b *fhir.Bundle) (*Summary, error) {
	return defaultExtractor.Extract(b)
}

// Extract walks the bundle entries once. The first Patient becomes the
// subject; allergies, medication statements and conditions are collected in
// entry order. The bundle is never modified.
func (x *Extractor) Extract(b *fhir.Bundle) (*Summary, error) {
	if b == nil || b.Entry == nil {
		return nil, ErrMalformedInput
	}

	s := &Summary{
		Sensitivities: []Sensitivity{},
		Treatments:    []Treatment{},
		Findings:      []Finding{},
	}
	var subject *Subject

	for _, entry := range b.Entry {
		switch res := entry.Resource.(type) {
		case *fhir.Patient:
			if subject == nil {
				subject = x.subject(res, entry.FullURL)
			}
		case *fhir.AllergyIntolerance:
			s.Sensitivities = append(s.Sensitivities, x.sensitivity(res, entry.FullURL))
		case *fhir.MedicationStatement:
			s.Treatments = append(s.Treatments, x.treatment(res, entry.FullURL))
		case *fhir.Condition:
			s.Findings = append(s.Findings, x.finding(res, entry.FullURL))
		}
	}

	if subject == nil {
		return nil, ErrMissingSubject
	}
	s.Subject = *subject
	if b.Meta != nil {
		s.LastUpdated = b.Meta.LastUpdated
	}
	return s, nil
}

func (x *Extractor) subject(p *fhir.Patient, source string) *Subject {
	sub := &Subject{
		ID:        p.ID,
		Source:    source,
		Gender:    p.Gender,
		BirthDate: p.BirthDate,
	}
	for _, id := range p.Identifier {
		ident := Identifier{System: id.System, Value: id.Value}
		if id.Type != nil {
			ident.Type = ResolveLabel(id.Type.Coding, id.Type.Text)
		}
		sub.Identifiers = append(sub.Identifiers, ident)
	}
	for _, n := range p.Name {
		sub.Names = append(sub.Names, PersonName{
			Use:    n.Use,
			Prefix: cloneStrings(n.Prefix),
			Given:  cloneStrings(n.Given),
			Family: n.Family,
		})
	}
	for _, t := range p.Telecom {
		sub.Telecom = append(sub.Telecom, ContactPoint{Channel: t.System, Value: t.Value, Use: t.Use})
	}
	for _, a := range p.Address {
		sub.Addresses = append(sub.Addresses, PostalAddress{
			Use:        a.Use,
			Lines:      cloneStrings(a.Line),
			City:       a.City,
			PostalCode: a.PostalCode,
			State:      a.State,
			Country:    a.Country,
		})
	}
	sub.DisplayName = ResolveDisplayName(*sub)
	return sub
}

func (x *Extractor) sensitivity(a *fhir.AllergyIntolerance, source string) Sensitivity {
	out := Sensitivity{
		ID:                 a.ID,
		Source:             source,
		Substance:          ResolveConcept(a.Code),
		ClinicalStatus:     a.ClinicalStatus.FirstCode(),
		VerificationStatus: a.VerificationStatus.FirstCode(),
		Criticality:        ParseCriticality(a.Criticality),
		RecordedDate:       a.RecordedDate,
	}
	for _, r := range a.Reaction {
		var names []string
		for i := range r.Manifestation {
			names = append(names, ResolveLabel(r.Manifestation[i].Coding, r.Manifestation[i].Text))
		}
		out.Reactions = append(out.Reactions, Reaction{
			Manifestations: names,
			Severity:       ParseReactionSeverity(r.Severity),
		})
	}
	return out
}

func (x *Extractor) treatment(m *fhir.MedicationStatement, source string) Treatment {
	out := Treatment{
		ID:        m.ID,
		Source:    source,
		Status:    ParseTreatmentStatus(m.Status),
		StartDate: m.EffectiveDateTime,
	}

	switch {
	case m.MedicationCodeableConcept != nil:
		out.Medication = ResolveConcept(m.MedicationCodeableConcept)
	case m.MedicationReference != nil:
		out.Medication = Concept{Label: ResolveLabel(nil, m.MedicationReference.Display)}
	default:
		out.Medication = Concept{Label: UnknownLabel}
	}

	if p := m.EffectivePeriod; p != nil {
		if out.StartDate == "" {
			out.StartDate = p.Start
		}
		out.EndDate = p.End
	}

	if len(m.Dosage) > 0 {
		out.Dosage = dosage(&m.Dosage[0])
	}
	return out
}

// dosage projects the first dosage instruction of a medication statement.
func dosage(d *fhir.Dosage) *Dosage {
	out := &Dosage{Text: d.Text}
	if d.Route != nil {
		route := ResolveConcept(d.Route)
		out.Route = &route
	}
	if len(d.DoseAndRate) > 0 {
		if q := d.DoseAndRate[0].DoseQuantity; q != nil && q.Value != nil {
			out.Dose = &Dose{Value: *q.Value, Unit: q.Unit}
		}
	}
	if d.Timing != nil && d.Timing.Repeat != nil {
		rep := d.Timing.Repeat
		rule := &RepeatRule{PeriodUnit: rep.PeriodUnit}
		if rep.Frequency != nil {
			rule.Frequency = *rep.Frequency
		}
		if rep.Period != nil {
			rule.Period = *rep.Period
		}
		out.Repeat = rule
	}
	return out
}

func (x *Extractor) finding(c *fhir.Condition, source string) Finding {
	out := Finding{
		ID:                 c.ID,
		Source:             source,
		Problem:            ResolveConcept(c.Code),
		ClinicalStatus:     c.ClinicalStatus.FirstCode(),
		VerificationStatus: c.VerificationStatus.FirstCode(),
		OnsetDate:          c.OnsetDateTime,
		RecordedDate:       c.RecordedDate,
	}
	if c.Severity != nil {
		sev := ResolveConcept(c.Severity)
		out.Severity = &sev
	}
	return out
}

// cloneStrings copies s so the summary never aliases the bundle. Empty input
// yields nil.
func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
