package models

import "time"

// DocumentType classifies a supporting document (proof of address etc).
// The set is open; unknown tags are carried through untouched.
type DocumentType string

const (
	DocUtilityBill      DocumentType = "utility_bill"
	DocCouncilTax       DocumentType = "council_tax"
	DocGovernmentLetter DocumentType = "government_letter"
	DocTenancyAgreement DocumentType = "tenancy_agreement"
	DocOfficialLetter   DocumentType = "official_letter"
	DocBankStatement    DocumentType = "bank_statement"
)

// KnownDocumentTypes lists the classifications offered to customers.
var KnownDocumentTypes = []DocumentType{
	DocUtilityBill,
	DocCouncilTax,
	DocGovernmentLetter,
	DocTenancyAgreement,
	DocOfficialLetter,
	DocBankStatement,
}

// SlotDocument is the persisted part of a document slot.
type SlotDocument struct {
	URL          string       `bson:"url" json:"url"`
	IssueDate    string       `bson:"issue_date,omitempty" json:"issueDate,omitempty"`
	DocumentType DocumentType `bson:"document_type,omitempty" json:"documentType,omitempty"`
}

// CompliancePayload is the snapshot stored on a booking once checkout
// documents satisfy the booking category.
type CompliancePayload struct {
	LicenseNumber           string                  `bson:"license_number" json:"licenseNumber"`
	NationalInsuranceNumber string                  `bson:"ni_number,omitempty" json:"nationalInsuranceNumber,omitempty"`
	Documents               map[string]SlotDocument `bson:"documents" json:"documents"`
	CompletedAt             time.Time               `bson:"completed_at" json:"completedAt"`
}
