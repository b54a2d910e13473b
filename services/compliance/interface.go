package compliance

import (
	"context"
	"time"

	"rentline/models"
	"rentline/services/storage"

	"go.uber.org/zap"
)

// CheckoutService runs the document step of checkout for one booking.
type CheckoutService interface {
	Start(ctx context.Context, bookingID string) (*SessionView, error)
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	Apply(ctx context.Context, sessionID string, slot SlotID, ev Event) (*SessionView, error)
	SetIdentity(ctx context.Context, sessionID, licenseNumber, niNumber string) (*SessionView, error)
	ChangeCategory(ctx context.Context, sessionID string, category models.BookingCategory) (*SessionView, error)
	UploadDocument(ctx context.Context, sessionID string, slot SlotID, file UploadFile) (*SessionView, error)
	Finalize(ctx context.Context, sessionID string) (*SessionView, error)
}

// BookingStore is the slice of the booking repository checkout needs.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	SaveCompliance(ctx context.Context, id string, payload *models.CompliancePayload) error
}

// DefaultCheckoutService implements CheckoutService on a SessionStore.
type DefaultCheckoutService struct {
	Sessions SessionStore
	Bookings BookingStore
	Storage  storage.StorageService
	Logger   *zap.Logger
	Now      func() time.Time
	// Location is the business time zone the booking date is read in.
	// Nil keeps the stored zone.
	Location *time.Location
}

// UploadFile is a customer document received from the checkout form.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}
