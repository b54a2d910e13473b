package vehicleRepo

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

// ErrVehicleNotFound is returned when no vehicle matches.
var ErrVehicleNotFound = errors.New("vehicle not found")

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) (string, error)
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoVehicleRepo struct {
	coll *mongo.Collection
}

// NewMongoVehicleRepo returns a VehicleRepository backed by the vehicles collection.
func NewMongoVehicleRepo(db *mongo.Database) VehicleRepository {
	return &mongoVehicleRepo{coll: db.Collection("vehicles")}
}

// Create inserts a vehicle and returns its ID.
func (r *mongoVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if vehicle.ID == "" {
		vehicle.ID = uuid.New().String()
	}
	vehicle.CreatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, vehicle); err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}
	return vehicle.ID, nil
}

// GetByID returns a vehicle by its ID.
func (r *mongoVehicleRepo) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var vehicle models.Vehicle
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&vehicle); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle %s: %w", id, err)
	}
	return &vehicle, nil
}

func (r *mongoVehicleRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.D{{Key: "registration", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_registration")},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create vehicle indexes: %w", err)
	}
	return nil
}
