package notificationRepo

import (
	"context"
	"fmt"

	"agrilink/database"
	"agrilink/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationRepository stores in-app notification records delivered by the
// dispatcher worker.
type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// MongoNotificationRepo implements NotificationRepository using MongoDB.
type MongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo constructs a new instance of MongoNotificationRepo.
func NewMongoNotificationRepo() *MongoNotificationRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoNotificationRepo{
		coll: db.Collection("notifications"),
	}
}

// Insert writes a notification record.
func (repo *MongoNotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if _, err := repo.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}
