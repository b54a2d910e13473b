package models

import "time"

// AgreementStatus tracks an agreement from draft to stored document.
type AgreementStatus string

const (
	AgreementDraft             AgreementStatus = "draft"
	AgreementPendingSignatures AgreementStatus = "pending_signatures"
	AgreementSigned            AgreementStatus = "signed"
	AgreementCompleted         AgreementStatus = "completed"
)

// SignatureParty names who signed a side of the agreement.
type SignatureParty string

const (
	PartyCustomer      SignatureParty = "customer"
	PartyAdministrator SignatureParty = "administrator"
)

// Agreement is the rental agreement record. Signature references and the
// finished document URL are separate fields and never overwrite each other.
type Agreement struct {
	ID                  string          `bson:"id" json:"id"`
	Number              string          `bson:"number" json:"number"`
	BookingID           string          `bson:"booking_id" json:"booking_id"`
	Status              AgreementStatus `bson:"status" json:"status"`
	AdministratorName   string          `bson:"administrator_name,omitempty" json:"administrator_name,omitempty"`
	CustomerSignature   *Signature      `bson:"customer_signature,omitempty" json:"customer_signature,omitempty"`
	AdminSignature      *Signature      `bson:"admin_signature,omitempty" json:"admin_signature,omitempty"`
	DocumentURL         string          `bson:"document_url,omitempty" json:"document_url,omitempty"`
	DocumentGeneratedAt *time.Time      `bson:"document_generated_at,omitempty" json:"document_generated_at,omitempty"`
	CreatedAt           time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `bson:"updated_at" json:"updated_at"`
}

// Signature is a stored reference to a signature image.
type Signature struct {
	ImageRef string    `bson:"image_ref" json:"image_ref"`
	SignedAt time.Time `bson:"signed_at" json:"signed_at"`
}

// IsFullySigned reports whether both parties have signed.
func (a *Agreement) IsFullySigned() bool {
	return a.CustomerSignature != nil && a.AdminSignature != nil
}
