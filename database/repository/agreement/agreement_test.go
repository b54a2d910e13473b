package agreementRepo

import (
	"context"
	"testing"

	"rentline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoAgreementRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create defaults to draft", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		a := &models.Agreement{Number: "RA-0001", BookingID: "bk-1"}
		id, err := NewMongoAgreementRepo(mt.DB).Create(context.Background(), a)
		require.NoError(mt, err)
		assert.Equal(mt, id, a.ID)
		assert.Equal(mt, models.AgreementDraft, a.Status)
	})

	mt.Run("create duplicate booking", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: rentline.agreements index: unique_booking",
		}))
		_, err := NewMongoAgreementRepo(mt.DB).Create(context.Background(), &models.Agreement{Number: "RA-0002", BookingID: "bk-1"})
		assert.ErrorIs(mt, err, ErrDuplicateAgreement)
	})

	mt.Run("set signature returns updated agreement", func(mt *mtest.T) {
		doc := bson.D{
			{Key: "id", Value: "ag-1"},
			{Key: "booking_id", Value: "bk-1"},
			{Key: "status", Value: "signed"},
			{Key: "customer_signature", Value: bson.D{{Key: "image_ref", Value: "https://cdn/c.png"}}},
			{Key: "admin_signature", Value: bson.D{{Key: "image_ref", Value: "https://cdn/a.png"}}},
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		a, err := NewMongoAgreementRepo(mt.DB).SetSignature(context.Background(), "ag-1", models.PartyAdministrator,
			models.Signature{ImageRef: "https://cdn/a.png"})
		require.NoError(mt, err)
		assert.Equal(mt, models.AgreementSigned, a.Status)
		assert.True(mt, a.IsFullySigned())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
	})

	mt.Run("set signature on completed agreement", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, err := NewMongoAgreementRepo(mt.DB).SetSignature(context.Background(), "ag-1", models.PartyCustomer,
			models.Signature{ImageRef: "https://cdn/c.png"})
		assert.ErrorIs(mt, err, ErrAgreementNotFound)
	})

	mt.Run("get by booking id", func(mt *mtest.T) {
		doc := bson.D{
			{Key: "id", Value: "ag-1"},
			{Key: "number", Value: "RA-0001"},
			{Key: "booking_id", Value: "bk-1"},
			{Key: "status", Value: "signed"},
			{Key: "customer_signature", Value: bson.D{{Key: "image_ref", Value: "https://cdn/sig.png"}}},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rentline.agreements", mtest.FirstBatch, doc))

		a, err := NewMongoAgreementRepo(mt.DB).GetByBookingID(context.Background(), "bk-1")
		require.NoError(mt, err)
		assert.Equal(mt, models.AgreementSigned, a.Status)
		require.NotNil(mt, a.CustomerSignature)
		assert.Equal(mt, "https://cdn/sig.png", a.CustomerSignature.ImageRef)
		assert.Nil(mt, a.AdminSignature)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rentline.agreements", mtest.FirstBatch))
		_, err := NewMongoAgreementRepo(mt.DB).GetByID(context.Background(), "nope")
		assert.ErrorIs(mt, err, ErrAgreementNotFound)
	})

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		a := &models.Agreement{ID: "ag-1", Status: models.AgreementCompleted}
		require.NoError(mt, NewMongoAgreementRepo(mt.DB).Update(context.Background(), a))
		assert.False(mt, a.UpdatedAt.IsZero())
	})

	mt.Run("update missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := NewMongoAgreementRepo(mt.DB).Update(context.Background(), &models.Agreement{ID: "nope"})
		assert.ErrorIs(mt, err, ErrAgreementNotFound)
	})
}
