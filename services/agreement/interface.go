package agreement

import (
	"context"
	"time"

	"rentline/models"
	"rentline/services/storage"

	"go.uber.org/zap"
)

// AgreementService runs the signing flow and produces the final document.
type AgreementService interface {
	Open(ctx context.Context, bookingID, administratorName string) (*models.Agreement, error)
	Get(ctx context.Context, agreementID string) (*models.Agreement, error)
	Sign(ctx context.Context, agreementID string, party models.SignatureParty, signatureRef string) (*models.Agreement, error)
	Generate(ctx context.Context, agreementID string) (*models.Agreement, error)
	History(ctx context.Context, agreementID string) ([]models.AgreementRecord, error)
}

// AgreementStore is the part of the agreement repository the service uses.
type AgreementStore interface {
	Create(ctx context.Context, a *models.Agreement) (string, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.Agreement, error)
	GetByID(ctx context.Context, id string) (*models.Agreement, error)
	SetSignature(ctx context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error)
	Update(ctx context.Context, a *models.Agreement) error
}

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
}

type VehicleReader interface {
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
}

// Composer renders agreement facts. *Compositor implements it.
type Composer interface {
	Compose(ctx context.Context, facts Facts) (*ComposedDocument, error)
}

// HistoryStore keeps the agreement audit trail.
type HistoryStore interface {
	Create(ctx context.Context, record models.AgreementRecord) (string, error)
	ListByAgreementID(ctx context.Context, agreementID string) ([]models.AgreementRecord, error)
}

// GenerationQueue schedules background document generation.
type GenerationQueue interface {
	EnqueueGenerateAgreement(ctx context.Context, agreementID string) error
}

// DefaultAgreementService implements AgreementService.
type DefaultAgreementService struct {
	Agreements AgreementStore
	Bookings   BookingReader
	Vehicles   VehicleReader
	Storage    storage.StorageService
	Composer   Composer
	// Queue may be nil, in which case callers generate explicitly.
	Queue   GenerationQueue
	// Records may be nil to skip the audit trail.
	Records HistoryStore
	Company Company
	Logger  *zap.Logger
	Now     func() time.Time
}
