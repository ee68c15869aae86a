package slotRepo

import (
	"context"
	"fmt"

	"agrilink/database"
	"agrilink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSlotRepo implements SlotRepository using MongoDB. One document per
// touched (serviceId, date, time) key, guarded by a unique compound index.
type MongoSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoSlotRepo constructs a new instance of MongoSlotRepo.
func NewMongoSlotRepo() *MongoSlotRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoSlotRepo{
		coll: db.Collection("slots"),
	}
}

// keyFilter builds the identity filter for a slot key.
func keyFilter(key models.SlotKey) bson.M {
	return bson.M{
		"serviceId": key.ServiceID,
		"date":      key.Date,
		"time":      key.Time,
	}
}

// GetSlots retrieves all persisted slot records for a service on the given dates.
func (repo *MongoSlotRepo) GetSlots(ctx context.Context, serviceID string, dates []string) (map[models.SlotKey]models.Slot, error) {
	filter := bson.M{
		"serviceId": serviceID,
		"date":      bson.M{"$in": dates},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching slots for service %s: %w", serviceID, err)
	}
	defer cursor.Close(ctx)

	slots := make(map[models.SlotKey]models.Slot)
	for cursor.Next(ctx) {
		var s models.Slot
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("error decoding slot: %w", err)
		}
		slots[s.Key()] = s
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return slots, nil
}
