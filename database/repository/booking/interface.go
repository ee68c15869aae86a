package bookingRepo

import (
	"context"
	"errors"
	"time"

	"agrilink/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrStatusConflict: the booking moved out of the expected status before
	// the transition applied. The caller's snapshot is stale.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

// BookingRepository persists booking records. Bookings are one-per-attempt,
// so single-record atomic writes are all the coordinator needs; cross-actor
// contention lives entirely in the slots collection.
type BookingRepository interface {
	Save(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// UpdateStatus transitions a booking from one status to another with a
	// single conditional write, the same discipline the slot store follows.
	// A booking already at the target status is a no-op; any other mismatch
	// returns ErrStatusConflict so racing settlers get exactly one winner.
	UpdateStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, reason string) error
	SetPaymentIntent(ctx context.Context, bookingID, paymentIntentID string) error
	// FindStalePending returns PendingPayment bookings whose hold expiry
	// passed before the cutoff and no payment callback ever arrived.
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	EnsureIndexes() error
}
