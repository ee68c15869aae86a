package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrilink/database"
	"agrilink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoBookingRepo{
		coll: db.Collection("bookings"),
	}
}

// Save inserts a new booking document.
func (repo *MongoBookingRepo) Save(ctx context.Context, booking *models.Booking) error {
	if _, err := repo.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// FindByID retrieves a booking document by ID.
func (repo *MongoBookingRepo) FindByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	filter := bson.M{"id": bookingID}
	if err := repo.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("error fetching booking with id %s: %w", bookingID, err)
	}
	return &booking, nil
}

// UpdateStatus transitions a booking's status with a conditional write. The
// filter encodes the expected prior status, so two actors racing to settle
// the same booking can never both match. A filter miss is classified by one
// read: already at the target means an earlier delivery won (no-op), any
// other status means the caller's snapshot is stale.
func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, reason string) error {
	set := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	if reason != "" {
		set["cancelReason"] = reason
	}
	filter := bson.M{"id": bookingID, "status": from}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	var cur models.Booking
	if err := repo.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&cur); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("error classifying booking %s: %w", bookingID, err)
	}
	if cur.Status == to {
		return nil
	}
	return ErrStatusConflict
}

// SetPaymentIntent records the gateway payment intent on the booking.
func (repo *MongoBookingRepo) SetPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error {
	filter := bson.M{"id": bookingID}
	update := bson.M{"$set": bson.M{
		"paymentIntentId": paymentIntentID,
		"updatedAt":       time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error setting payment intent on booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// FindStalePending lists abandoned checkouts: still PendingPayment with the
// slot hold already lapsed before the cutoff.
func (repo *MongoBookingRepo) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":        models.BookingPendingPayment,
		"holdExpiresAt": bson.M{"$lte": cutoff},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

// EnsureIndexes creates the necessary indexes on the bookings collection.
func (repo *MongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "holdExpiresAt", Value: 1}},
			Options: options.Index().SetName("status_expiry_idx"),
		},
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("service_date_idx"),
		},
	}

	_, err := repo.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
