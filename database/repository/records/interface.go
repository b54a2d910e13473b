package recordsRepo

import (
	"context"

	"rentline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AgreementRecordRepository stores the append-only agreement history.
type AgreementRecordRepository interface {
	Create(ctx context.Context, record models.AgreementRecord) (string, error)
	ListByAgreementID(ctx context.Context, agreementID string) ([]models.AgreementRecord, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns an AgreementRecordRepository backed by db.
func NewMongoRecordRepo(db *mongo.Database) AgreementRecordRepository {
	return &mongoRecordRepo{
		coll: db.Collection("agreement_records"),
	}
}
