package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	serviceRepo "agrilink/database/repository/service"
	slotRepo "agrilink/database/repository/slot"
	"agrilink/models"
	"agrilink/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AllocationEngine governs a slot's lifecycle:
//
//	available --claim--> held --confirm--> booked
//	held --release--> available
//	held --[ttl lapses]--> available (observed, not driven)
//	booked --admin cancel--> available
//
// It wraps the slot store with validation and the hold-TTL policy. The
// store's conditional writes carry the concurrency contract; this layer never
// re-checks what the storage CAS already guarantees.
type AllocationEngine interface {
	ClaimSlot(ctx context.Context, serviceID, date, timeLabel, actorID string) (*models.ClaimTicket, error)
	ConfirmSlot(ctx context.Context, ticket *models.ClaimTicket, bookingID string) error
	ReleaseSlot(ctx context.Context, ticket *models.ClaimTicket)
	CancelBookedSlot(ctx context.Context, key models.SlotKey) error
	GetSlotGrid(ctx context.Context, serviceID, windowStart string, windowDays int) ([]models.SlotCell, error)
}

// DefaultAllocationEngine is the production implementation.
type DefaultAllocationEngine struct {
	Slots    slotRepo.SlotRepository
	Services serviceRepo.ServiceRepository
	HoldTTL  time.Duration
	// Cache backs the short-lived grid cache and the slot-updated broadcast.
	// Optional; nil disables both.
	Cache *redis.Client
}

// ClaimSlot validates the requested cell against the service's template and
// availability window, then attempts the hold. Validation failures never
// touch storage. A conflict is the normal two-users-one-cell race outcome;
// the caller re-presents the calendar and must never substitute a slot.
func (e *DefaultAllocationEngine) ClaimSlot(ctx context.Context, serviceID, date, timeLabel, actorID string) (*models.ClaimTicket, error) {
	logger := utils.GetLogger()

	svc, err := e.Services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %s: %w", serviceID, err)
	}
	if !svc.HasTimeLabel(timeLabel) || !svc.DateInWindow(date) {
		return nil, ErrInvalidSlot
	}

	key := models.SlotKey{ServiceID: serviceID, Date: date, Time: timeLabel}
	slot, err := e.Slots.TryHold(ctx, key, actorID, e.HoldTTL, svc.Price)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotConflict) {
			// Expected contention, not an error condition worth a warning.
			logger.Debug("slot claim lost race",
				zap.String("key", key.String()),
				zap.String("actor", actorID))
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("claim failed for %s: %w", key, err)
	}

	logger.Info("slot held",
		zap.String("key", key.String()),
		zap.String("actor", actorID),
		zap.Timep("expires", slot.HoldExpiresAt))
	e.slotChanged(ctx, key, models.SlotHeld)

	// The stored record keeps any per-slot price override; the service price
	// only applies to first-touch slots.
	price := slot.Price
	if price <= 0 {
		price = svc.Price
	}

	return &models.ClaimTicket{
		ServiceID: serviceID,
		Date:      date,
		Time:      timeLabel,
		ActorID:   actorID,
		ExpiresAt: *slot.HoldExpiresAt,
		Price:     price,
	}, nil
}

// ConfirmSlot commits the ticket's hold to booked. ErrHoldExpired means the
// hold lapsed or was reassigned; the caller restarts from slot selection and
// must not retry confirmation blindly. An AlreadyBooked result here means a
// CAS invariant was violated somewhere upstream, so it is logged loudly as a
// consistency-check failure before surfacing as an expired hold.
func (e *DefaultAllocationEngine) ConfirmSlot(ctx context.Context, ticket *models.ClaimTicket, bookingID string) error {
	logger := utils.GetLogger()
	key := ticket.Key()

	err := e.Slots.ConfirmBook(ctx, key, bookingID, ticket.ActorID)
	if err == nil {
		logger.Info("slot booked",
			zap.String("key", key.String()),
			zap.String("booking", bookingID))
		e.slotChanged(ctx, key, models.SlotBooked)
		return nil
	}
	if errors.Is(err, slotRepo.ErrAlreadyBooked) {
		logger.Error("consistency check failed: confirm hit a foreign booking",
			zap.String("key", key.String()),
			zap.String("booking", bookingID))
		return ErrHoldExpired
	}
	if errors.Is(err, slotRepo.ErrStaleHold) {
		return ErrHoldExpired
	}
	return fmt.Errorf("confirm failed for %s: %w", key, err)
}

// ReleaseSlot returns the ticket's hold to available. Always succeeds from
// the caller's point of view: a miss is an idempotent no-op and a storage
// fault is only logged, the expiry sweep will reclaim the hold anyway.
func (e *DefaultAllocationEngine) ReleaseSlot(ctx context.Context, ticket *models.ClaimTicket) {
	key := ticket.Key()
	if err := e.Slots.Release(ctx, key, ticket.ActorID); err != nil {
		utils.GetLogger().Warn("slot release failed, leaving hold to expire",
			zap.String("key", key.String()),
			zap.Error(err))
		return
	}
	utils.GetLogger().Info("slot released", zap.String("key", key.String()))
	e.slotChanged(ctx, key, models.SlotAvailable)
}

// CancelBookedSlot reopens a booked cell. Administrative flow only.
func (e *DefaultAllocationEngine) CancelBookedSlot(ctx context.Context, key models.SlotKey) error {
	if err := e.Slots.AdminCancel(ctx, key); err != nil {
		return fmt.Errorf("admin cancel failed for %s: %w", key, err)
	}
	utils.GetLogger().Info("booked slot reopened by admin", zap.String("key", key.String()))
	e.slotChanged(ctx, key, models.SlotAvailable)
	return nil
}
