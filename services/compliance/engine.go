package compliance

import (
	"strings"
	"time"

	"rentline/models"
)

// EvaluationInput is everything Evaluate looks at.
type EvaluationInput struct {
	Category                models.BookingCategory
	LicenseNumber           string
	NationalInsuranceNumber string
	ReferenceDate           time.Time
	Slots                   map[SlotID]UploadState
}

// Reason says why a field or slot fails its requirement.
type Reason string

const (
	ReasonMissingLicenseNumber   Reason = "missing_license_number"
	ReasonMissingNINumber        Reason = "missing_ni_number"
	ReasonMissingUpload          Reason = "missing_upload"
	ReasonMissingIssueDate       Reason = "missing_issue_date"
	ReasonIssueDateOutOfWindow   Reason = "issue_date_out_of_window"
	ReasonMissingDocumentType    Reason = "missing_document_type"
	ReasonDisallowedDocumentType Reason = "disallowed_document_type"
)

// Field names used in violations for the two identity inputs.
const (
	FieldLicenseNumber = "licenseNumber"
	FieldNINumber      = "nationalInsuranceNumber"
)

// Violation pinpoints one unmet requirement. Field is a slot ID or one of
// the identity field names.
type Violation struct {
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
}

// SlotPayload is the normalized view of an uploaded slot.
type SlotPayload struct {
	URL          string              `json:"url"`
	IssueDate    string              `json:"issueDate,omitempty"`
	DocumentType models.DocumentType `json:"documentType,omitempty"`
}

// ComplianceResult is derived from an EvaluationInput and never mutated.
type ComplianceResult struct {
	IsComplete              bool                   `json:"isComplete"`
	LicenseNumber           string                 `json:"licenseNumber"`
	NationalInsuranceNumber string                 `json:"nationalInsuranceNumber"`
	PerSlot                 map[SlotID]SlotPayload `json:"perSlot"`
	Violations              []Violation            `json:"violations"`
}

// Evaluate computes the completion verdict and payload for the current
// checkout state. It never fails: every problem becomes a Violation and
// IsComplete=false. An unknown category is checked against the most
// restrictive catalog.
func Evaluate(in EvaluationInput) ComplianceResult {
	req, _ := RequirementsFor(in.Category)

	res := ComplianceResult{
		LicenseNumber:           strings.TrimSpace(in.LicenseNumber),
		NationalInsuranceNumber: strings.TrimSpace(in.NationalInsuranceNumber),
		PerSlot:                 make(map[SlotID]SlotPayload),
		Violations:              []Violation{},
	}

	if res.LicenseNumber == "" {
		res.Violations = append(res.Violations, Violation{Field: FieldLicenseNumber, Reason: ReasonMissingLicenseNumber})
	}
	if req.NeedsNationalInsurance && res.NationalInsuranceNumber == "" {
		res.Violations = append(res.Violations, Violation{Field: FieldNINumber, Reason: ReasonMissingNINumber})
	}

	for _, spec := range req.Slots {
		state := in.Slots[spec.ID]
		url := strings.TrimSpace(state.RemoteURL)
		if url != "" {
			res.PerSlot[spec.ID] = SlotPayload{
				URL:          url,
				IssueDate:    strings.TrimSpace(state.IssueDate),
				DocumentType: models.DocumentType(strings.TrimSpace(string(state.DocumentType))),
			}
		}
		if !spec.Required {
			continue
		}
		if url == "" {
			res.Violations = append(res.Violations, Violation{Field: string(spec.ID), Reason: ReasonMissingUpload})
			continue
		}
		if reason, ok := checkRule(spec.Rule, state, in.ReferenceDate); !ok {
			res.Violations = append(res.Violations, Violation{Field: string(spec.ID), Reason: reason})
		}
	}

	res.IsComplete = len(res.Violations) == 0
	return res
}

func checkRule(rule SlotRule, state UploadState, ref time.Time) (Reason, bool) {
	switch r := rule.(type) {
	case SimpleSlot:
		return "", true
	case DatedSlot:
		return checkIssueDate(state.IssueDate, ref, r.WindowMonths)
	case ClassifiedSlot:
		return checkDocumentType(state.DocumentType, r.Disallowed)
	case DatedClassifiedSlot:
		if reason, ok := checkIssueDate(state.IssueDate, ref, r.WindowMonths); !ok {
			return reason, false
		}
		return checkDocumentType(state.DocumentType, r.Disallowed)
	default:
		// A rule kind added without an evaluation branch must not pass.
		return ReasonMissingUpload, false
	}
}

func checkIssueDate(raw string, ref time.Time, window int) (Reason, bool) {
	if strings.TrimSpace(raw) == "" {
		return ReasonMissingIssueDate, false
	}
	issue, ok := ParseDate(raw)
	if !ok || !WithinWindow(issue, ref, window) {
		return ReasonIssueDateOutOfWindow, false
	}
	return "", true
}

func checkDocumentType(t models.DocumentType, disallowed []models.DocumentType) (Reason, bool) {
	t = models.DocumentType(strings.TrimSpace(string(t)))
	if t == "" {
		return ReasonMissingDocumentType, false
	}
	for _, d := range disallowed {
		if d == t {
			return ReasonDisallowedDocumentType, false
		}
	}
	return "", true
}

// Payload converts a complete result into the record stored on a booking.
func (r ComplianceResult) Payload(completedAt time.Time) *models.CompliancePayload {
	docs := make(map[string]models.SlotDocument, len(r.PerSlot))
	for id, p := range r.PerSlot {
		docs[string(id)] = models.SlotDocument{URL: p.URL, IssueDate: p.IssueDate, DocumentType: p.DocumentType}
	}
	return &models.CompliancePayload{
		LicenseNumber:           r.LicenseNumber,
		NationalInsuranceNumber: r.NationalInsuranceNumber,
		Documents:               docs,
		CompletedAt:             completedAt,
	}
}
