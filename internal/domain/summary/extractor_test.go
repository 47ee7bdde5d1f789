package summary

import (
	"errors"
	"testing"

	"github.com/ehr/epsviewer/internal/platform/fhir"
	"github.com/ehr/epsviewer/internal/platform/sample"
)

// endToEndBundle has one patient, two allergies (one high with a severe
// reaction, one without criticality), one active medication taken once a day
// and two active conditions.
const endToEndBundle = `{
  "resourceType": "Bundle",
  "type": "document",
  "meta": {"lastUpdated": "2024-01-15T10:30:00Z"},
  "entry": [
    {"fullUrl": "urn:uuid:allergy-1", "resource": {
      "resourceType": "AllergyIntolerance", "id": "allergy-1",
      "code": {"coding": [{"system": "http://snomed.info/sct", "code": "387517004", "display": "Penicillin"}]},
      "clinicalStatus": {"coding": [{"code": "active"}]},
      "criticality": "high",
      "reaction": [{"manifestation": [{"coding": [{"display": "Hives"}]}], "severity": "severe"}]
    }},
    {"fullUrl": "urn:uuid:patient-1", "resource": {
      "resourceType": "Patient", "id": "patient-1",
      "name": [{"prefix": ["Dr."], "given": ["Maria", "Elena"], "family": "Schmidt"}],
      "birthDate": "1985-03-15", "gender": "female"
    }},
    {"fullUrl": "urn:uuid:condition-1", "resource": {
      "resourceType": "Condition", "id": "condition-1",
      "code": {"coding": [{"display": "Hypertension"}]},
      "clinicalStatus": {"coding": [{"code": "active"}]},
      "severity": {"coding": [{"display": "Severe"}]}
    }},
    {"fullUrl": "urn:uuid:allergy-2", "resource": {
      "resourceType": "AllergyIntolerance", "id": "allergy-2",
      "code": {"text": "Peanuts"}
    }},
    {"fullUrl": "urn:uuid:medication-1", "resource": {
      "resourceType": "MedicationStatement", "id": "medication-1",
      "medicationCodeableConcept": {"coding": [{"code": "C09AA02", "display": "Enalapril"}]},
      "status": "active",
      "dosage": [{"timing": {"repeat": {"frequency": 1, "period": 1, "periodUnit": "d"}}}]
    }},
    {"fullUrl": "urn:uuid:observation-1", "resource": {"resourceType": "Observation", "id": "observation-1"}},
    {"fullUrl": "urn:uuid:condition-2", "resource": {
      "resourceType": "Condition", "id": "condition-2",
      "code": {"coding": [{"display": "Type 2 Diabetes Mellitus"}]},
      "clinicalStatus": {"coding": [{"code": "active"}]},
      "severity": {"coding": [{"display": "Mild"}]}
    }}
  ]
}`

func decode(t *testing.T, doc string) *fhir.Bundle {
	t.Helper()
	b, err := fhir.DecodeBundle([]byte(doc))
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	return b
}

func TestExtract_EndToEnd(t *testing.T) {
	s, err := NewExtractor().Extract(decode(t, endToEndBundle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Subject.ID != "patient-1" {
		t.Errorf("expected subject patient-1, got %q", s.Subject.ID)
	}
	if s.Subject.DisplayName != "Dr. Maria Elena Schmidt" {
		t.Errorf("expected display name Dr. Maria Elena Schmidt, got %q", s.Subject.DisplayName)
	}
	if s.LastUpdated != "2024-01-15T10:30:00Z" {
		t.Errorf("expected lastUpdated to be preserved, got %q", s.LastUpdated)
	}

	if len(s.Sensitivities) != 2 {
		t.Fatalf("expected 2 sensitivities, got %d", len(s.Sensitivities))
	}
	first, second := s.Sensitivities[0], s.Sensitivities[1]
	if first.Substance.Label != "Penicillin" || second.Substance.Label != "Peanuts" {
		t.Errorf("sensitivities out of order: %q, %q", first.Substance.Label, second.Substance.Label)
	}
	if first.Criticality != CriticalityHigh {
		t.Errorf("expected high criticality, got %s", first.Criticality)
	}
	if len(first.Reactions) != 1 || first.Reactions[0].Severity != ReactionSevere {
		t.Fatalf("expected one severe reaction, got %+v", first.Reactions)
	}
	if first.Reactions[0].Manifestations[0] != "Hives" {
		t.Errorf("expected manifestation Hives, got %q", first.Reactions[0].Manifestations[0])
	}
	if second.Criticality != CriticalityUnassessed {
		t.Errorf("expected default criticality, got %s", second.Criticality)
	}
	if second.Reactions != nil {
		t.Errorf("expected no reactions, got %+v", second.Reactions)
	}

	if len(s.Treatments) != 1 {
		t.Fatalf("expected 1 treatment, got %d", len(s.Treatments))
	}
	tr := s.Treatments[0]
	if tr.Status != TreatmentActive {
		t.Errorf("expected active treatment, got %q", tr.Status)
	}
	if tr.Dosage == nil || tr.Dosage.Repeat == nil {
		t.Fatal("expected a dosage with a repeat rule")
	}
	if got := DescribeRepeat(tr.Dosage.Repeat); got != "1x per day" {
		t.Errorf("expected 1x per day, got %q", got)
	}

	if len(s.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(s.Findings))
	}
	for i, want := range []string{"Severe", "Mild"} {
		f := s.Findings[i]
		if f.ClinicalStatus != "active" {
			t.Errorf("finding %d: expected active, got %q", i, f.ClinicalStatus)
		}
		if f.Severity == nil || f.Severity.Label != want {
			t.Errorf("finding %d: expected severity %s, got %+v", i, want, f.Severity)
		}
	}
}

func TestExtract_MalformedInput(t *testing.T) {
	x := NewExtractor()

	if _, err := x.Extract(nil); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for nil bundle, got %v", err)
	}

	b := decode(t, `{"resourceType": "Bundle", "type": "document"}`)
	if _, err := x.Extract(b); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput without entry list, got %v", err)
	}
}

func TestExtract_MissingSubject(t *testing.T) {
	tests := map[string]string{
		"empty entry list": `{"resourceType": "Bundle", "entry": []}`,
		"no patient": `{"resourceType": "Bundle", "entry": [
			{"resource": {"resourceType": "Condition", "id": "c1"}},
			{"resource": {"resourceType": "Practitioner", "id": "p1"}}
		]}`,
		"entry without resource": `{"resourceType": "Bundle", "entry": [{"fullUrl": "urn:uuid:x"}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(decode(t, doc))
			if !errors.Is(err, ErrMissingSubject) {
				t.Errorf("expected ErrMissingSubject, got %v", err)
			}
		})
	}
}

func TestExtract_FirstPatientWins(t *testing.T) {
	b := &fhir.Bundle{
		ResourceType: "Bundle",
		Entry: []fhir.BundleEntry{
			{FullURL: "urn:uuid:a", Resource: &fhir.Patient{ID: "a", Name: []fhir.HumanName{{Family: "Alpha"}}}},
			{FullURL: "urn:uuid:c", Resource: &fhir.Condition{ID: "c"}},
			{FullURL: "urn:uuid:b", Resource: &fhir.Patient{ID: "b", Name: []fhir.HumanName{{Family: "Beta"}}}},
		},
	}

	s, err := Extract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Subject.ID != "a" || s.Subject.Source != "urn:uuid:a" {
		t.Errorf("expected first patient a, got %q from %q", s.Subject.ID, s.Subject.Source)
	}
	if s.Subject.DisplayName != "Alpha" {
		t.Errorf("expected display name Alpha, got %q", s.Subject.DisplayName)
	}
	// Entries are not checked against the subject reference.
	if len(s.Findings) != 1 {
		t.Errorf("expected 1 finding, got %d", len(s.Findings))
	}
}

func TestExtract_PreservesEntryOrder(t *testing.T) {
	var entries []fhir.BundleEntry
	entries = append(entries, fhir.BundleEntry{Resource: &fhir.Patient{ID: "p"}})
	ids := []string{"m3", "m1", "m2", "m5", "m4"}
	for _, id := range ids {
		entries = append(entries,
			fhir.BundleEntry{Resource: &fhir.MedicationStatement{ID: id}},
			fhir.BundleEntry{Resource: &fhir.AllergyIntolerance{ID: "a-" + id}},
			fhir.BundleEntry{Resource: &fhir.Condition{ID: "c-" + id}},
		)
	}

	s, err := Extract(&fhir.Bundle{ResourceType: "Bundle", Entry: entries})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range ids {
		if s.Treatments[i].ID != id {
			t.Errorf("treatment %d: expected %s, got %s", i, id, s.Treatments[i].ID)
		}
		if s.Sensitivities[i].ID != "a-"+id {
			t.Errorf("sensitivity %d: expected a-%s, got %s", i, id, s.Sensitivities[i].ID)
		}
		if s.Findings[i].ID != "c-"+id {
			t.Errorf("finding %d: expected c-%s, got %s", i, id, s.Findings[i].ID)
		}
	}
}

func TestExtract_EmptyListsAreNotNil(t *testing.T) {
	s, err := Extract(&fhir.Bundle{Entry: []fhir.BundleEntry{{Resource: &fhir.Patient{}}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Sensitivities == nil || s.Treatments == nil || s.Findings == nil {
		t.Error("expected empty, non-nil entity lists")
	}
	if s.Subject.DisplayName != UnknownPatient {
		t.Errorf("expected %q, got %q", UnknownPatient, s.Subject.DisplayName)
	}
	if s.LastUpdated != "" {
		t.Errorf("expected no lastUpdated, got %q", s.LastUpdated)
	}
}

func TestExtract_TreatmentDetails(t *testing.T) {
	ten := 10.0
	b := &fhir.Bundle{Entry: []fhir.BundleEntry{
		{Resource: &fhir.Patient{}},
		{Resource: &fhir.MedicationStatement{
			ID:                  "by-reference",
			MedicationReference: &fhir.Reference{Reference: "Medication/1", Display: "Aspirin 100mg"},
			Status:              "on-hold",
			EffectivePeriod:     &fhir.Period{Start: "2023-01-01", End: "2023-06-30"},
			Dosage: []fhir.Dosage{{
				Text:        "one tablet",
				DoseAndRate: []fhir.DoseAndRate{{DoseQuantity: &fhir.Quantity{Value: &ten, Unit: "mg"}}},
			}, {
				Text: "ignored second dosage",
			}},
		}},
		{Resource: &fhir.MedicationStatement{ID: "bare", Status: "invented-status"}},
	}}

	s, err := Extract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref := s.Treatments[0]
	if ref.Medication.Label != "Aspirin 100mg" {
		t.Errorf("expected label from reference display, got %q", ref.Medication.Label)
	}
	if ref.Status != TreatmentOnHold {
		t.Errorf("expected on-hold, got %q", ref.Status)
	}
	if ref.StartDate != "2023-01-01" || ref.EndDate != "2023-06-30" {
		t.Errorf("expected period dates, got %q..%q", ref.StartDate, ref.EndDate)
	}
	if ref.Dosage == nil || ref.Dosage.Text != "one tablet" {
		t.Fatalf("expected first dosage only, got %+v", ref.Dosage)
	}
	if ref.Dosage.Dose == nil || ref.Dosage.Dose.Value != 10 || ref.Dosage.Dose.Unit != "mg" {
		t.Errorf("expected dose 10 mg, got %+v", ref.Dosage.Dose)
	}
	if ref.Dosage.Route != nil || ref.Dosage.Repeat != nil {
		t.Errorf("expected no route or repeat, got %+v", ref.Dosage)
	}

	bare := s.Treatments[1]
	if bare.Medication.Label != UnknownLabel {
		t.Errorf("expected %q, got %q", UnknownLabel, bare.Medication.Label)
	}
	if bare.Status != TreatmentUnknown {
		t.Errorf("expected unknown status, got %q", bare.Status)
	}
	if bare.Dosage != nil {
		t.Errorf("expected no dosage, got %+v", bare.Dosage)
	}
}

func TestExtract_DoesNotAliasInput(t *testing.T) {
	b := decode(t, endToEndBundle)
	s, err := Extract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Subject.Names[0].Given[0] = "Changed"
	p := b.Entry[1].Resource.(*fhir.Patient)
	if p.Name[0].Given[0] != "Maria" {
		t.Errorf("summary shares memory with the bundle: given name is %q", p.Name[0].Given[0])
	}
}

func TestExtract_Sample(t *testing.T) {
	b, err := sample.Bundle()
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	s, err := Extract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Subject.DisplayName != "Dr. Maria Elena Schmidt" {
		t.Errorf("expected Dr. Maria Elena Schmidt, got %q", s.Subject.DisplayName)
	}
	if len(s.Subject.Identifiers) != 1 || s.Subject.Identifiers[0].Type != "National identifier" {
		t.Errorf("unexpected identifiers %+v", s.Subject.Identifiers)
	}
	if got := s.Subject.Contacts(ChannelEmail); len(got) != 1 || got[0].Value != "maria.schmidt@email.com" {
		t.Errorf("unexpected email contacts %+v", got)
	}
	if len(s.Sensitivities) != 2 || len(s.Treatments) != 2 || len(s.Findings) != 2 {
		t.Errorf("expected 2/2/2 entries, got %d/%d/%d", len(s.Sensitivities), len(s.Treatments), len(s.Findings))
	}
	if s.Treatments[1].Dosage.Route.Label != "Oral" {
		t.Errorf("expected Oral route, got %q", s.Treatments[1].Dosage.Route.Label)
	}
	if s.Treatments[1].Dosage.Dose != nil {
		t.Errorf("expected no dose for Metformin, got %+v", s.Treatments[1].Dosage.Dose)
	}
}
