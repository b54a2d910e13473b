package compliance

import (
	"fmt"

	"rentline/models"
)

// SlotID identifies a document slot. IDs are shared across categories so
// progress survives a category change.
type SlotID string

const (
	SlotLicenceFront     SlotID = "licence_front"
	SlotLicenceBack      SlotID = "licence_back"
	SlotProofOfAddress   SlotID = "proof_of_address"
	SlotBankStatement    SlotID = "bank_statement"
	SlotSecondaryLicence SlotID = "secondary_licence"
	SlotAdditional       SlotID = "additional_document"
)

// SlotRule is the requirement kind of a slot. The set of implementations
// is closed; Evaluate switches over all of them.
type SlotRule interface {
	slotRule()
}

// SimpleSlot only needs an uploaded file.
type SimpleSlot struct{}

// DatedSlot needs a file and an issue date inside the recency window.
type DatedSlot struct {
	WindowMonths int
}

// ClassifiedSlot needs a file and a permitted document type.
type ClassifiedSlot struct {
	Disallowed []models.DocumentType
}

// DatedClassifiedSlot needs a file, an in-window issue date and a
// permitted document type.
type DatedClassifiedSlot struct {
	WindowMonths int
	Disallowed   []models.DocumentType
}

func (SimpleSlot) slotRule()          {}
func (DatedSlot) slotRule()           {}
func (ClassifiedSlot) slotRule()      {}
func (DatedClassifiedSlot) slotRule() {}

// DocumentSlotSpec describes one document requirement.
type DocumentSlotSpec struct {
	ID       SlotID
	Label    string
	HelpText string
	Required bool
	Rule     SlotRule
}

// NeedsIssueDate reports whether the slot carries a recency check.
func (s DocumentSlotSpec) NeedsIssueDate() bool {
	switch s.Rule.(type) {
	case DatedSlot, DatedClassifiedSlot:
		return true
	}
	return false
}

// NeedsDocumentType reports whether the slot needs a classification.
func (s DocumentSlotSpec) NeedsDocumentType() bool {
	switch s.Rule.(type) {
	case ClassifiedSlot, DatedClassifiedSlot:
		return true
	}
	return false
}

// DisallowedTypes returns the classifications the slot rejects.
func (s DocumentSlotSpec) DisallowedTypes() []models.DocumentType {
	switch r := s.Rule.(type) {
	case ClassifiedSlot:
		return append([]models.DocumentType(nil), r.Disallowed...)
	case DatedClassifiedSlot:
		return append([]models.DocumentType(nil), r.Disallowed...)
	}
	return nil
}

// Requirements is the catalog row for one booking category.
type Requirements struct {
	Category               models.BookingCategory
	Slots                  []DocumentSlotSpec
	NeedsNationalInsurance bool
	NeedsFinancialProof    bool
	NeedsSecondaryLicense  bool
}

// Slot looks up a slot by ID.
func (r Requirements) Slot(id SlotID) (DocumentSlotSpec, bool) {
	for _, s := range r.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return DocumentSlotSpec{}, false
}

var (
	licenceFront = DocumentSlotSpec{
		ID:       SlotLicenceFront,
		Label:    "Driving Licence (Front)",
		HelpText: "A clear photo of the front of your photocard driving licence.",
		Required: true,
		Rule:     SimpleSlot{},
	}
	licenceBack = DocumentSlotSpec{
		ID:       SlotLicenceBack,
		Label:    "Driving Licence (Back)",
		HelpText: "A clear photo of the back of your photocard driving licence.",
		Required: true,
		Rule:     SimpleSlot{},
	}
	additional = DocumentSlotSpec{
		ID:       SlotAdditional,
		Label:    "Additional Document",
		HelpText: "Anything else you would like us to see. Optional.",
		Required: false,
		Rule:     SimpleSlot{},
	}
	bankStatement = DocumentSlotSpec{
		ID:       SlotBankStatement,
		Label:    "Bank Statement",
		HelpText: "A bank statement issued within the last 3 months showing your name.",
		Required: true,
		Rule:     DatedSlot{WindowMonths: DefaultWindowMonths},
	}
	secondaryLicence = DocumentSlotSpec{
		ID:       SlotSecondaryLicence,
		Label:    "Additional Driver Licence",
		HelpText: "The photocard licence of the second named driver.",
		Required: true,
		Rule:     SimpleSlot{},
	}
)

func proofOfAddress(rule SlotRule, help string) DocumentSlotSpec {
	return DocumentSlotSpec{
		ID:       SlotProofOfAddress,
		Label:    "Proof of Address",
		HelpText: help,
		Required: true,
		Rule:     rule,
	}
}

var catalog = map[models.BookingCategory]Requirements{
	models.CategoryStandard: {
		Category: models.CategoryStandard,
		Slots: []DocumentSlotSpec{
			licenceFront,
			licenceBack,
			proofOfAddress(
				DatedSlot{WindowMonths: DefaultWindowMonths},
				"A utility bill, council tax statement or bank statement dated within the last 3 months.",
			),
			additional,
		},
	},
	models.CategoryFlexiTerm: {
		Category: models.CategoryFlexiTerm,
		Slots: []DocumentSlotSpec{
			licenceFront,
			licenceBack,
			proofOfAddress(
				DatedClassifiedSlot{
					WindowMonths: DefaultWindowMonths,
					Disallowed:   []models.DocumentType{models.DocBankStatement},
				},
				"A utility bill, council tax statement or official letter dated within the last 3 months. Bank statements are not accepted here.",
			),
			bankStatement,
			additional,
		},
		NeedsNationalInsurance: true,
		NeedsFinancialProof:    true,
	},
	models.CategoryCommercialHire: {
		Category: models.CategoryCommercialHire,
		Slots: []DocumentSlotSpec{
			licenceFront,
			licenceBack,
			secondaryLicence,
			proofOfAddress(
				DatedClassifiedSlot{
					WindowMonths: DefaultWindowMonths,
					Disallowed:   []models.DocumentType{models.DocBankStatement},
				},
				"A utility bill, council tax statement or official letter dated within the last 3 months. Bank statements are not accepted here.",
			),
			bankStatement,
			additional,
		},
		NeedsNationalInsurance: true,
		NeedsFinancialProof:    true,
		NeedsSecondaryLicense:  true,
	},
}

// mostRestrictive is used when a category is not in the catalog.
const mostRestrictive = models.CategoryCommercialHire

// Categories lists every booking category in a stable order.
func Categories() []models.BookingCategory {
	return []models.BookingCategory{
		models.CategoryStandard,
		models.CategoryFlexiTerm,
		models.CategoryCommercialHire,
	}
}

// RequirementsFor returns the catalog row for category. An unknown category
// returns ErrUnknownCategory alongside the most restrictive row, so callers
// that ignore the error still validate strictly.
func RequirementsFor(category models.BookingCategory) (Requirements, error) {
	req, ok := catalog[category]
	if !ok {
		return clone(catalog[mostRestrictive]), fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return clone(req), nil
}

func clone(r Requirements) Requirements {
	out := r
	out.Slots = make([]DocumentSlotSpec, len(r.Slots))
	for i, s := range r.Slots {
		switch rule := s.Rule.(type) {
		case ClassifiedSlot:
			s.Rule = ClassifiedSlot{Disallowed: append([]models.DocumentType(nil), rule.Disallowed...)}
		case DatedClassifiedSlot:
			s.Rule = DatedClassifiedSlot{
				WindowMonths: rule.WindowMonths,
				Disallowed:   append([]models.DocumentType(nil), rule.Disallowed...),
			}
		}
		out.Slots[i] = s
	}
	return out
}
