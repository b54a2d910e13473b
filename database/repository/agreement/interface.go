package agreementRepo

import (
	"context"
	"errors"

	"rentline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrAgreementNotFound is returned when no agreement matches.
	ErrAgreementNotFound = errors.New("agreement not found")
	// ErrDuplicateAgreement is returned when the booking already has an agreement.
	ErrDuplicateAgreement = errors.New("agreement already exists")
)

type AgreementRepository interface {
	Create(ctx context.Context, agreement *models.Agreement) (string, error)
	GetByID(ctx context.Context, id string) (*models.Agreement, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.Agreement, error)
	// SetSignature stores one party's signature and derives the status in
	// a single write. Completed agreements are not matched.
	SetSignature(ctx context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error)
	// Update replaces the stored agreement with a.
	Update(ctx context.Context, a *models.Agreement) error
	EnsureIndexes(ctx context.Context) error
}

type mongoAgreementRepo struct {
	coll *mongo.Collection
}

// NewMongoAgreementRepo returns an AgreementRepository backed by the agreements collection.
func NewMongoAgreementRepo(db *mongo.Database) AgreementRepository {
	return &mongoAgreementRepo{coll: db.Collection("agreements")}
}
