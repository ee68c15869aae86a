package slotRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrilink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TryHold claims a slot with a single conditional write. The filter encodes
// the expected prior state (available, or held with a lapsed expiry), so two
// concurrent claimers can never both match: the storage layer picks the winner.
//
// First touch of a key has no document yet. In that case the conditional
// update matches nothing and we fall through to an insert; the unique index
// on the key turns a concurrent first-touch race into a duplicate-key error,
// after which one more CAS pass settles whether the existing record is
// claimable (expired hold) or a genuine conflict.
func (repo *MongoSlotRepo) TryHold(ctx context.Context, key models.SlotKey, actorID string, ttl time.Duration, price float64) (*models.Slot, error) {
	now := time.Now().UTC()
	expiry := now.Add(ttl)

	filter := keyFilter(key)
	filter["$or"] = []bson.M{
		{"state": models.SlotAvailable},
		{"state": models.SlotHeld, "holdExpiresAt": bson.M{"$lte": now}},
	}
	update := bson.M{
		"$set": bson.M{
			"state":         models.SlotHeld,
			"heldBy":        actorID,
			"heldAt":        now,
			"holdExpiresAt": expiry,
			"updatedAt":     now,
		},
		"$unset": bson.M{"bookingId": ""},
		"$inc":   bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < 2; attempt++ {
		var slot models.Slot
		err := repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
		if err == nil {
			return &slot, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("hold update for %s failed: %w", key, err)
		}

		// No claimable record. Either the key is untouched (insert it held)
		// or someone owns it (insert collides on the unique index).
		doc := models.Slot{
			ServiceID:     key.ServiceID,
			Date:          key.Date,
			Time:          key.Time,
			State:         models.SlotHeld,
			HeldBy:        actorID,
			HeldAt:        &now,
			HoldExpiresAt: &expiry,
			Price:         price,
			Version:       1,
			UpdatedAt:     now,
		}
		_, insErr := repo.coll.InsertOne(ctx, doc)
		if insErr == nil {
			return &doc, nil
		}
		if !mongo.IsDuplicateKeyError(insErr) {
			return nil, fmt.Errorf("hold insert for %s failed: %w", key, insErr)
		}
		// Lost the insert race; the record may still carry an expired hold.
	}
	return nil, ErrSlotConflict
}

// ConfirmBook commits a live hold to booked. The filter requires the hold to
// be owned by expectedHolder and unexpired, so a lapsed or reassigned hold
// can never be confirmed regardless of caller timing.
func (repo *MongoSlotRepo) ConfirmBook(ctx context.Context, key models.SlotKey, bookingID, expectedHolder string) error {
	now := time.Now().UTC()

	filter := keyFilter(key)
	filter["state"] = models.SlotHeld
	filter["heldBy"] = expectedHolder
	filter["holdExpiresAt"] = bson.M{"$gt": now}

	update := bson.M{
		"$set": bson.M{
			"state":     models.SlotBooked,
			"bookingId": bookingID,
			"updatedAt": now,
		},
		"$unset": bson.M{"heldBy": "", "heldAt": "", "holdExpiresAt": ""},
		"$inc":   bson.M{"version": 1},
	}

	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("confirm update for %s failed: %w", key, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// The CAS did not apply; read the record once to classify the outcome.
	var cur models.Slot
	if err := repo.coll.FindOne(ctx, keyFilter(key)).Decode(&cur); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrStaleHold
		}
		return fmt.Errorf("confirm lookup for %s failed: %w", key, err)
	}
	if cur.State == models.SlotBooked {
		if cur.BookingID == bookingID {
			// Same booking confirmed earlier; webhook redelivery.
			return nil
		}
		return ErrAlreadyBooked
	}
	return ErrStaleHold
}

// Release returns a held slot to available. A filter miss means the hold
// already expired, was reclaimed or was never ours; that is an acknowledged
// no-op, not an error.
func (repo *MongoSlotRepo) Release(ctx context.Context, key models.SlotKey, expectedHolder string) error {
	now := time.Now().UTC()

	filter := keyFilter(key)
	filter["state"] = models.SlotHeld
	filter["heldBy"] = expectedHolder

	update := bson.M{
		"$set":   bson.M{"state": models.SlotAvailable, "updatedAt": now},
		"$unset": bson.M{"heldBy": "", "heldAt": "", "holdExpiresAt": ""},
		"$inc":   bson.M{"version": 1},
	}

	if _, err := repo.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("release update for %s failed: %w", key, err)
	}
	return nil
}

// SweepExpiredHolds flips every lapsed hold back to available in one pass.
// Safe to run concurrently with live traffic: each matched document satisfies
// the same expiry condition TryHold checks.
func (repo *MongoSlotRepo) SweepExpiredHolds(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"state":         models.SlotHeld,
		"holdExpiresAt": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set":   bson.M{"state": models.SlotAvailable, "updatedAt": now},
		"$unset": bson.M{"heldBy": "", "heldAt": "", "holdExpiresAt": ""},
		"$inc":   bson.M{"version": 1},
	}

	res, err := repo.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("sweep failed: %w", err)
	}
	return res.ModifiedCount, nil
}

// AdminCancel reopens a booked slot. Only the administrative cancellation
// flow reaches this; ordinary booking traffic never transitions out of booked.
func (repo *MongoSlotRepo) AdminCancel(ctx context.Context, key models.SlotKey) error {
	now := time.Now().UTC()

	filter := keyFilter(key)
	filter["state"] = models.SlotBooked

	update := bson.M{
		"$set":   bson.M{"state": models.SlotAvailable, "updatedAt": now},
		"$unset": bson.M{"bookingId": ""},
		"$inc":   bson.M{"version": 1},
	}

	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("admin cancel for %s failed: %w", key, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotBooked
	}
	return nil
}
