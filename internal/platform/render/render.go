// Package render prints a summary for a human reader at a terminal.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ehr/epsviewer/internal/domain/summary"
)

// Messages shown for sections without entries.
const (
	NoAllergies   = "No known allergies"
	NoMedications = "No current medications recorded"
	NoConditions  = "No active conditions recorded"
	UnknownRoute  = "Unknown route"
)

// Options controls terminal output.
type Options struct {
	// Color enables ANSI colours for severity and status tags.
	Color bool
}

// Text writes s without colours.
func Text(w io.Writer, s *summary.Summary) error {
	return Write(w, s, Options{})
}

// Write writes a patient header followed by the allergy, medication and
// condition sections.
func Write(w io.Writer, s *summary.Summary, opts Options) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw, tags: newTagger(opts.Color)}

	p.header(s)
	p.allergies(s.Sensitivities)
	p.medications(s.Treatments)
	p.conditions(s.Findings)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

type printer struct {
	w    *bufio.Writer
	tags *tagger
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) header(s *summary.Summary) {
	sub := s.Subject
	name := sub.DisplayName
	if name == "" {
		name = summary.ResolveDisplayName(sub)
	}
	p.line("%s", name)
	p.line("%s", strings.Repeat("=", len([]rune(name))))

	p.line("Born:    %s", summary.FormatDate(sub.BirthDate))
	if sub.Gender != "" {
		p.line("Gender:  %s", capitalize(sub.Gender))
	}
	for _, id := range sub.Identifiers {
		label := id.Type
		if label == "" {
			label = "ID"
		}
		p.line("%s: %s", label, id.Value)
	}
	for _, cp := range sub.Contacts(summary.ChannelPhone) {
		p.line("Phone:   %s", withUse(cp.Value, cp.Use))
	}
	for _, cp := range sub.Contacts(summary.ChannelEmail) {
		p.line("Email:   %s", withUse(cp.Value, cp.Use))
	}
	for _, a := range sub.Addresses {
		if addr := a.String(); addr != "" {
			p.line("Address: %s", addr)
		}
	}
	if s.LastUpdated != "" {
		p.line("Last updated: %s", summary.FormatDate(s.LastUpdated))
	}
}

func (p *printer) section(title string, n int, singular, plural string) {
	p.line("")
	p.line("%s (%s)", title, english.Plural(n, singular, plural))
	p.line("%s", strings.Repeat("-", len(title)))
}

func (p *printer) table(header []string, rows [][]string) {
	t := tablewriter.NewWriter(p.w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	t.AppendBulk(rows)
	t.Render()
}

func (p *printer) allergies(list []summary.Sensitivity) {
	p.section("Allergies & Intolerances", len(list), "allergy", "allergies")
	if len(list) == 0 {
		p.line("%s", NoAllergies)
		return
	}

	rows := make([][]string, 0, len(list))
	for _, a := range list {
		var reactions []string
		for _, r := range a.Reactions {
			desc := strings.Join(r.Manifestations, ", ")
			if r.Severity != summary.ReactionUnspecified {
				desc += " " + p.tags.severity(r.Severity.String())
			}
			reactions = append(reactions, strings.TrimSpace(desc))
		}
		rows = append(rows, []string{
			a.Substance.Label,
			p.tags.severity(a.Criticality.String()),
			p.tags.status(a.ClinicalStatus),
			strings.Join(reactions, "; "),
			optionalDate(a.RecordedDate),
		})
	}
	p.table([]string{"Substance", "Criticality", "Status", "Reactions", "Recorded"}, rows)
}

func (p *printer) medications(list []summary.Treatment) {
	p.section("Current Medications", len(list), "medication", "medications")
	if len(list) == 0 {
		p.line("%s", NoMedications)
		return
	}

	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{
			m.Medication.Label,
			p.tags.status(string(m.Status)),
			describeDosage(m.Dosage),
			optionalDate(m.StartDate),
		})
	}
	p.table([]string{"Medication", "Status", "Dosage", "Since"}, rows)
}

func (p *printer) conditions(list []summary.Finding) {
	p.section("Active Conditions", len(list), "condition", "conditions")
	if len(list) == 0 {
		p.line("%s", NoConditions)
		return
	}

	rows := make([][]string, 0, len(list))
	for _, c := range list {
		severity := ""
		if c.Severity != nil {
			severity = p.tags.severity(c.Severity.Label)
		}
		rows = append(rows, []string{
			c.Problem.Label,
			p.tags.status(c.ClinicalStatus),
			c.VerificationStatus,
			severity,
			optionalDate(c.OnsetDate),
		})
	}
	p.table([]string{"Condition", "Status", "Verification", "Severity", "Onset"}, rows)
}

// describeDosage joins the dose, route, frequency and free text of a dosage.
func describeDosage(d *summary.Dosage) string {
	if d == nil {
		return ""
	}
	var parts []string
	if d.Dose != nil {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%g %s", d.Dose.Value, d.Dose.Unit)))
	}
	route := UnknownRoute
	if d.Route != nil && d.Route.Label != summary.UnknownLabel {
		route = d.Route.Label
	}
	parts = append(parts, route)
	if rep := summary.DescribeRepeat(d.Repeat); rep != "" {
		parts = append(parts, rep)
	}
	if d.Text != "" {
		parts = append(parts, "("+d.Text+")")
	}
	return strings.Join(parts, ", ")
}

func optionalDate(raw string) string {
	if raw == "" {
		return ""
	}
	return summary.FormatDate(raw)
}

func withUse(value, use string) string {
	if use == "" {
		return value
	}
	return value + " (" + use + ")"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// tagger formats severity and status tokens as bracketed tags, coloured by
// category when enabled.
type tagger struct {
	severities map[summary.SeverityCategory]*color.Color
	statuses   map[summary.StatusCategory]*color.Color
}

func newTagger(enabled bool) *tagger {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &tagger{
		severities: map[summary.SeverityCategory]*color.Color{
			summary.SeverityHigh:     mk(color.FgRed, color.Bold),
			summary.SeverityModerate: mk(color.FgYellow),
			summary.SeverityLow:      mk(color.FgGreen),
			summary.SeverityNeutral:  mk(color.Reset),
		},
		statuses: map[summary.StatusCategory]*color.Color{
			summary.StatusActive:    mk(color.FgGreen),
			summary.StatusCompleted: mk(color.FgBlue),
			summary.StatusHalted:    mk(color.FgRed),
			summary.StatusPaused:    mk(color.FgYellow),
			summary.StatusNeutral:   mk(color.Reset),
		},
	}
}

func (t *tagger) severity(token string) string {
	if token == "" {
		return ""
	}
	return t.severities[summary.ClassifySeverity(token)].Sprint("[" + token + "]")
}

func (t *tagger) status(token string) string {
	if token == "" {
		return ""
	}
	return t.statuses[summary.ClassifyStatus(token)].Sprint("[" + token + "]")
}
