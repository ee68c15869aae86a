package slotRepo

import (
	"context"
	"errors"
	"time"

	"agrilink/models"
)

// Slot state transition failures. These are contract outcomes, not storage
// faults: callers branch on them.
var (
	// ErrSlotConflict: the key is live-held by someone else or already booked.
	ErrSlotConflict = errors.New("slot is held or booked")
	// ErrStaleHold: the hold expired or was reassigned before confirmation.
	ErrStaleHold = errors.New("hold expired or reassigned")
	// ErrAlreadyBooked: the key is booked under a different booking.
	ErrAlreadyBooked = errors.New("slot already booked")
	// ErrNotBooked: admin cancel on a key that is not in booked state.
	ErrNotBooked = errors.New("slot is not booked")
)

// SlotRepository is the authoritative store of slot state. Every mutating
// operation is a single conditional write against the (serviceId, date, time)
// key; there is no read-then-write anywhere in the implementation. Two
// requests racing for the same key are serialized by the storage layer, with
// exactly one winner.
type SlotRepository interface {
	// GetSlots returns the persisted slots for the given service and dates.
	// Untouched keys have no record; callers synthesize available for them.
	GetSlots(ctx context.Context, serviceID string, dates []string) (map[models.SlotKey]models.Slot, error)

	// TryHold transitions a key from available (or expired-held) to held by
	// actorID with a fresh expiry. Lazily materializes the record on first
	// touch. Returns ErrSlotConflict when the key is live-held by another
	// actor or booked.
	TryHold(ctx context.Context, key models.SlotKey, actorID string, ttl time.Duration, price float64) (*models.Slot, error)

	// ConfirmBook transitions held(expectedHolder, unexpired) to booked.
	// Confirming a key already booked under the same bookingID is a no-op,
	// so webhook redelivery is safe. Returns ErrStaleHold or ErrAlreadyBooked
	// otherwise.
	ConfirmBook(ctx context.Context, key models.SlotKey, bookingID, expectedHolder string) error

	// Release transitions held(expectedHolder) back to available. Releasing a
	// key that is no longer held by expectedHolder is a no-op: callers such
	// as a payment-failure webhook may race with hold expiry.
	Release(ctx context.Context, key models.SlotKey, expectedHolder string) error

	// SweepExpiredHolds flips expired holds to available and returns the
	// count. Not required for correctness (readers normalize expired holds
	// themselves) but keeps the collection tidy.
	SweepExpiredHolds(ctx context.Context) (int64, error)

	// AdminCancel transitions booked back to available, clearing the booking
	// reference. Administrative escape hatch only.
	AdminCancel(ctx context.Context, key models.SlotKey) error

	EnsureIndexes() error
}
