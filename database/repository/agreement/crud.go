package agreementRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 10 * time.Second

// Create inserts a new agreement in draft status and returns its ID.
func (r *mongoAgreementRepo) Create(ctx context.Context, a *models.Agreement) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = models.AgreementDraft
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: booking %s: %v", ErrDuplicateAgreement, a.BookingID, err)
		}
		return "", fmt.Errorf("failed to create agreement: %w", err)
	}
	return a.ID, nil
}

func (r *mongoAgreementRepo) GetByID(ctx context.Context, id string) (*models.Agreement, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *mongoAgreementRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.Agreement, error) {
	return r.findOne(ctx, bson.M{"booking_id": bookingID})
}

func (r *mongoAgreementRepo) findOne(ctx context.Context, filter bson.M) (*models.Agreement, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var a models.Agreement
	if err := r.coll.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAgreementNotFound
		}
		return nil, fmt.Errorf("failed to get agreement: %w", err)
	}
	return &a, nil
}

// signatureFields maps a party to its signature field and the other side's.
func signatureFields(party models.SignatureParty) (own, other string) {
	if party == models.PartyAdministrator {
		return "admin_signature", "customer_signature"
	}
	return "customer_signature", "admin_signature"
}

// SetSignature uses an update pipeline so the status is computed from the
// other party's stored signature, not from a stale read.
func (r *mongoAgreementRepo) SetSignature(ctx context.Context, id string, party models.SignatureParty, sig models.Signature) (*models.Agreement, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	own, other := signatureFields(party)
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: own, Value: bson.D{{Key: "$literal", Value: sig}}},
		{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$gt", Value: bson.A{"$" + other, nil}}},
			models.AgreementSigned,
			models.AgreementPendingSignatures,
		}}}},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}}
	filter := bson.M{"id": id, "status": bson.M{"$ne": models.AgreementCompleted}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Agreement
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAgreementNotFound
		}
		return nil, fmt.Errorf("failed to sign agreement %s: %w", id, err)
	}
	return &a, nil
}

// Update replaces the agreement document and bumps UpdatedAt.
func (r *mongoAgreementRepo) Update(ctx context.Context, a *models.Agreement) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("failed to update agreement %s: %w", a.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrAgreementNotFound
	}
	return nil
}

func (r *mongoAgreementRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_number")},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_booking")},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create agreement indexes: %w", err)
	}
	return nil
}
