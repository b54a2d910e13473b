package models

import (
	"strings"
	"time"
)

// BookingCategory decides which documents a customer must supply at checkout.
type BookingCategory string

const (
	CategoryStandard       BookingCategory = "standard"
	CategoryFlexiTerm      BookingCategory = "flexi_term"
	CategoryCommercialHire BookingCategory = "commercial_hire"
)

// ParseBookingCategory accepts the wire form of a category, case-insensitively.
func ParseBookingCategory(s string) (BookingCategory, bool) {
	switch BookingCategory(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryStandard:
		return CategoryStandard, true
	case CategoryFlexiTerm:
		return CategoryFlexiTerm, true
	case CategoryCommercialHire:
		return CategoryCommercialHire, true
	}
	return "", false
}

// Booking represents a confirmed vehicle rental.
type Booking struct {
	ID             string             `bson:"id" json:"id"`                                     // Unique booking identifier (UUID)
	Category       BookingCategory    `bson:"category" json:"category"`                         // Determines required documents
	VehicleID      string             `bson:"vehicle_id" json:"vehicle_id"`                     // Rented vehicle
	Customer       Customer           `bson:"customer" json:"customer"`                         // Renter identity
	BookedAt       time.Time          `bson:"booked_at" json:"booked_at"`                       // Reference date for document recency
	PickupAt       time.Time          `bson:"pickup_at" json:"pickup_at"`                       // Rental window start
	ReturnAt       time.Time          `bson:"return_at" json:"return_at"`                       // Rental window end
	PickupLocation string             `bson:"pickup_location" json:"pickup_location"`           // Branch or address
	ReturnLocation string             `bson:"return_location" json:"return_location"`           // Branch or address
	Status         string             `bson:"status" json:"status"`                             // e.g., "confirmed", "pending_documents"
	Compliance     *CompliancePayload `bson:"compliance,omitempty" json:"compliance,omitempty"` // Snapshot written once checkout documents are complete
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReferenceDate is the date supporting documents are measured against.
func (b *Booking) ReferenceDate() time.Time {
	if !b.BookedAt.IsZero() {
		return b.BookedAt
	}
	return b.CreatedAt
}

// Customer holds the renter's identity as captured at booking time.
type Customer struct {
	FullName      string `bson:"full_name" json:"full_name"`
	Email         string `bson:"email" json:"email"`
	Phone         string `bson:"phone" json:"phone"`
	Address       string `bson:"address" json:"address"`
	DateOfBirth   string `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	LicenseNumber string `bson:"license_number,omitempty" json:"license_number,omitempty"`
}
