package recordsRepo

import (
	"context"
	"fmt"
	"time"

	"rentline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 10 * time.Second

// Create inserts a history record and returns its ID.
func (r *mongoRecordRepo) Create(ctx context.Context, record models.AgreementRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to create agreement record: %w", err)
	}
	return record.ID, nil
}

// ListByAgreementID returns an agreement's history, oldest first.
func (r *mongoRecordRepo) ListByAgreementID(ctx context.Context, agreementID string) ([]models.AgreementRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"agreementId": agreementID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreement records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.AgreementRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode agreement records: %w", err)
	}
	return records, nil
}

func (r *mongoRecordRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "agreementId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create agreement record indexes: %w", err)
	}
	return nil
}
