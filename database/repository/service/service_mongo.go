package serviceRepo

import (
	"context"
	"errors"
	"fmt"

	"agrilink/database"
	"agrilink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrServiceNotFound = errors.New("service not found")

// ServiceRepository is the read model for bookable services. The wider
// marketplace owns service CRUD; the booking core only needs lookups.
type ServiceRepository interface {
	FindByID(ctx context.Context, serviceID string) (*models.Service, error)
}

// MongoServiceRepo implements ServiceRepository using MongoDB.
type MongoServiceRepo struct {
	coll *mongo.Collection
}

// NewMongoServiceRepo constructs a new instance of MongoServiceRepo.
func NewMongoServiceRepo() *MongoServiceRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoServiceRepo{
		coll: db.Collection("services"),
	}
}

// FindByID retrieves a service document by ID.
func (repo *MongoServiceRepo) FindByID(ctx context.Context, serviceID string) (*models.Service, error) {
	var service models.Service
	filter := bson.M{"id": serviceID}
	if err := repo.coll.FindOne(ctx, filter).Decode(&service); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("error fetching service with id %s: %w", serviceID, err)
	}
	return &service, nil
}
