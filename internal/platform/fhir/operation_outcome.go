package fhir

// OperationOutcome severity levels per FHIR R4 spec.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes used by the summary endpoints.
const (
	IssueTypeInvalid      = "invalid"
	IssueTypeStructure    = "structure"
	IssueTypeRequired     = "required"
	IssueTypeNotFound     = "not-found"
	IssueTypeProcessing   = "processing"
	IssueTypeThrottled    = "throttled"
	IssueTypeTooCostly    = "too-costly"
	IssueTypeException    = "exception"
	IssueTypeTimeout      = "timeout"
	IssueTypeNotSupported = "not-supported"
	IssueTypeLogin        = "login"
)

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: string(KindOperationOutcome),
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

// StructureOutcome reports a document whose shape could not be read.
func StructureOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeStructure, diagnostics)
}

// RequiredFieldOutcome creates an OperationOutcome for a missing required
// element, with the element path as the issue expression.
func RequiredFieldOutcome(field, diagnostics string) *OperationOutcome {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeRequired, diagnostics)
	oo.Issue[0].Expression = []string{field}
	return oo
}

// NotSupportedOutcome creates an OperationOutcome for unsupported media or
// formats.
func NotSupportedOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotSupported, diagnostics)
}

// InternalErrorOutcome creates an OperationOutcome for internal server errors.
func InternalErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// HasErrors returns true if the outcome contains any error or fatal issues.
func (o *OperationOutcome) HasErrors() bool {
	for _, issue := range o.Issue {
		if issue.Severity == IssueSeverityError || issue.Severity == IssueSeverityFatal {
			return true
		}
	}
	return false
}
