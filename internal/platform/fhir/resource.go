package fhir

// ResourceKind is the value of a resource's "resourceType" discriminator.
type ResourceKind string

const (
	KindBundle              ResourceKind = "Bundle"
	KindPatient             ResourceKind = "Patient"
	KindAllergyIntolerance  ResourceKind = "AllergyIntolerance"
	KindMedicationStatement ResourceKind = "MedicationStatement"
	KindCondition           ResourceKind = "Condition"
	KindOperationOutcome    ResourceKind = "OperationOutcome"
)

// Resource is the closed set of resource shapes a bundle entry can carry.
// Only the types in this package implement it; anything the model does not
// know about decodes to *OtherResource.
type Resource interface {
	Kind() ResourceKind
	isResource()
}

type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// FirstCode returns the code of the first coding, or "" when the concept is
// absent or has no codings.
func (cc *CodeableConcept) FirstCode() string {
	if cc == nil || len(cc.Coding) == 0 {
		return ""
	}
	return cc.Coding[0].Code
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Type       string   `json:"type,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	District   string   `json:"district,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
	Rank   int    `json:"rank,omitempty"`
}

// Period bounds are kept as the raw date/dateTime strings of the document.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// ---------------------------------------------------------------------------
// Resources
// ---------------------------------------------------------------------------

type Patient struct {
	ID         string         `json:"id,omitempty"`
	Meta       *Meta          `json:"meta,omitempty"`
	Identifier []Identifier   `json:"identifier,omitempty"`
	Name       []HumanName    `json:"name,omitempty"`
	Gender     string         `json:"gender,omitempty"`
	BirthDate  string         `json:"birthDate,omitempty"`
	Address    []Address      `json:"address,omitempty"`
	Telecom    []ContactPoint `json:"telecom,omitempty"`
}

type AllergyIntolerance struct {
	ID                 string            `json:"id,omitempty"`
	Meta               *Meta             `json:"meta,omitempty"`
	Patient            *Reference        `json:"patient,omitempty"`
	Code               *CodeableConcept  `json:"code,omitempty"`
	ClinicalStatus     *CodeableConcept  `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept  `json:"verificationStatus,omitempty"`
	Criticality        string            `json:"criticality,omitempty"` // low | high | unable-to-assess
	Reaction           []AllergyReaction `json:"reaction,omitempty"`
	RecordedDate       string            `json:"recordedDate,omitempty"`
}

type AllergyReaction struct {
	Manifestation []CodeableConcept `json:"manifestation,omitempty"`
	Severity      string            `json:"severity,omitempty"` // mild | moderate | severe
}

type MedicationStatement struct {
	ID                        string           `json:"id,omitempty"`
	Meta                      *Meta            `json:"meta,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	MedicationReference       *Reference       `json:"medicationReference,omitempty"`
	Status                    string           `json:"status,omitempty"`
	EffectiveDateTime         string           `json:"effectiveDateTime,omitempty"`
	EffectivePeriod           *Period          `json:"effectivePeriod,omitempty"`
	Dosage                    []Dosage         `json:"dosage,omitempty"`
}

type Dosage struct {
	Text        string           `json:"text,omitempty"`
	Timing      *Timing          `json:"timing,omitempty"`
	Route       *CodeableConcept `json:"route,omitempty"`
	DoseAndRate []DoseAndRate    `json:"doseAndRate,omitempty"`
}

type Timing struct {
	Repeat *TimingRepeat `json:"repeat,omitempty"`
}

type TimingRepeat struct {
	Frequency  *int     `json:"frequency,omitempty"`
	Period     *float64 `json:"period,omitempty"`
	PeriodUnit string   `json:"periodUnit,omitempty"` // s | min | h | d | wk | mo | a
}

type DoseAndRate struct {
	DoseQuantity *Quantity `json:"doseQuantity,omitempty"`
}

type Condition struct {
	ID                 string           `json:"id,omitempty"`
	Meta               *Meta            `json:"meta,omitempty"`
	Subject            *Reference       `json:"subject,omitempty"`
	Code               *CodeableConcept `json:"code,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
	Severity           *CodeableConcept `json:"severity,omitempty"`
	OnsetDateTime      string           `json:"onsetDateTime,omitempty"`
	RecordedDate       string           `json:"recordedDate,omitempty"`
}

// OtherResource holds any resource whose kind the model does not project.
// Raw is the resource object exactly as it appeared in the document.
type OtherResource struct {
	Type ResourceKind
	Raw  []byte
}

func (*Patient) Kind() ResourceKind             { return KindPatient }
func (*AllergyIntolerance) Kind() ResourceKind  { return KindAllergyIntolerance }
func (*MedicationStatement) Kind() ResourceKind { return KindMedicationStatement }
func (*Condition) Kind() ResourceKind           { return KindCondition }
func (r *OtherResource) Kind() ResourceKind     { return r.Type }

func (*Patient) isResource()             {}
func (*AllergyIntolerance) isResource()  {}
func (*MedicationStatement) isResource() {}
func (*Condition) isResource()           {}
func (*OtherResource) isResource()       {}
