// File: models/records.go
package models

import "time"

// AgreementAction names a step in an agreement's life.
type AgreementAction string

const (
	ActionOpened    AgreementAction = "opened"
	ActionSigned    AgreementAction = "signed"
	ActionGenerated AgreementAction = "generated"
)

// AgreementRecord is one entry in an agreement's history.
type AgreementRecord struct {
	ID          string          `bson:"id" json:"id"`                                   // Unique ID for the record
	AgreementID string          `bson:"agreementId" json:"agreementId"`                 // Owning agreement
	BookingID   string          `bson:"bookingId" json:"bookingId"`                     // Booking the agreement covers
	Action      AgreementAction `bson:"action" json:"action"`                           // What happened
	Party       SignatureParty  `bson:"party,omitempty" json:"party,omitempty"`         // Signer, for signed entries
	Reference   string          `bson:"reference,omitempty" json:"reference,omitempty"` // Stored signature or document URL
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
}
