package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrilink/config"
	bookingRepo "agrilink/database/repository/booking"
	"agrilink/models"
	"agrilink/services/allocation"
	"agrilink/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claim retry policy for transient storage failures. Contention is not
// retried; a conflict already has a winner.
const (
	claimAttempts     = 3
	claimBackoffUnit  = 200 * time.Millisecond
	gatewayCallBudget = 30 * time.Second
)

// StartBooking runs the user-visible flow. Losing the slot race is the
// common outcome when two users click the same cell near-simultaneously: it
// returns a SlotTaken outcome with no booking record and no error.
func (c *DefaultBookingCoordinator) StartBooking(ctx context.Context, req models.BookingRequest) (*models.BookingOutcome, error) {
	logger := utils.GetLogger()

	svc, err := c.Services.FindByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %s: %w", req.ServiceID, err)
	}

	ticket, err := c.claimWithRetry(ctx, req)
	if err != nil {
		if errors.Is(err, allocation.ErrSlotUnavailable) {
			return &models.BookingOutcome{
				Kind:    models.OutcomeSlotTaken,
				Message: "That slot was just taken. Please pick another slot.",
			}, nil
		}
		return nil, err
	}

	// The ticket carries the effective price, per-slot overrides included.
	amount := ticket.Price
	if amount <= 0 {
		amount = svc.Price
	}

	now := time.Now().UTC()
	record := &models.Booking{
		ID:            uuid.New().String(),
		ServiceID:     req.ServiceID,
		ProviderID:    svc.ProviderID,
		CustomerID:    req.CustomerID,
		Date:          req.Date,
		Time:          req.Time,
		PaymentMethod: req.PaymentMethod,
		Status:        models.BookingPendingPayment,
		Amount:        amount,
		HoldExpiresAt: ticket.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.Bookings.Save(ctx, record); err != nil {
		// No booking row made it in; give the slot back immediately.
		c.Engine.ReleaseSlot(ctx, ticket)
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	if req.PaymentMethod == models.PaymentCOD {
		return c.confirmCOD(ctx, ticket, record)
	}

	gwCtx, cancel := context.WithTimeout(ctx, gatewayCallBudget)
	defer cancel()
	redirect, err := c.Gateway.InitiatePayment(gwCtx, record.Amount, config.AppConfig.Currency, record.ID)
	if err != nil {
		logger.Warn("payment initiation failed, releasing hold",
			zap.String("booking", record.ID), zap.Error(err))
		c.Engine.ReleaseSlot(ctx, ticket)
		if uerr := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingCancelled, "payment initiation failed"); uerr != nil {
			logger.Error("failed to cancel booking after gateway error",
				zap.String("booking", record.ID), zap.Error(uerr))
		}
		return &models.BookingOutcome{
			Kind:    models.OutcomeFailed,
			Message: "Could not start the payment. Please try again.",
		}, nil
	}
	if err := c.Bookings.SetPaymentIntent(ctx, record.ID, redirect.PaymentIntentID); err != nil {
		logger.Error("failed to record payment intent",
			zap.String("booking", record.ID), zap.Error(err))
	}
	record.PaymentIntentID = redirect.PaymentIntentID

	return &models.BookingOutcome{
		Kind:    models.OutcomeAwaitingPayment,
		Booking: record,
		Payment: redirect,
	}, nil
}

// confirmCOD finalizes a cash-on-delivery booking in the same logical
// operation as the claim. There is no payment-pending window for COD.
func (c *DefaultBookingCoordinator) confirmCOD(ctx context.Context, ticket *models.ClaimTicket, record *models.Booking) (*models.BookingOutcome, error) {
	if err := c.Engine.ConfirmSlot(ctx, ticket, record.ID); err != nil {
		if errors.Is(err, allocation.ErrHoldExpired) {
			// Should not happen this close to the claim, but the flow
			// restarts from slot selection all the same.
			if uerr := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingCancelled, "hold expired before confirmation"); uerr != nil {
				utils.GetLogger().Error("failed to cancel booking after lapsed hold",
					zap.String("booking", record.ID), zap.Error(uerr))
			}
			return &models.BookingOutcome{
				Kind:    models.OutcomeSlotTaken,
				Message: "The slot hold expired. Please pick a slot again.",
			}, nil
		}
		return nil, fmt.Errorf("failed to confirm COD booking %s: %w", record.ID, err)
	}

	if err := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingConfirmed, ""); err != nil {
		return nil, fmt.Errorf("failed to mark booking %s confirmed: %w", record.ID, err)
	}
	record.Status = models.BookingConfirmed

	c.notifyBoth(ctx, record, models.NotifyBookingConfirmed)
	return &models.BookingOutcome{
		Kind:    models.OutcomeConfirmed,
		Booking: record,
	}, nil
}

// claimWithRetry retries transient storage failures with a growing pause,
// then surfaces the last error as a hard failure. Conflicts and validation
// failures pass straight through.
func (c *DefaultBookingCoordinator) claimWithRetry(ctx context.Context, req models.BookingRequest) (*models.ClaimTicket, error) {
	var lastErr error
	for attempt := 0; attempt < claimAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * claimBackoffUnit):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		ticket, err := c.Engine.ClaimSlot(ctx, req.ServiceID, req.Date, req.Time, req.CustomerID)
		if err == nil {
			return ticket, nil
		}
		if errors.Is(err, allocation.ErrSlotUnavailable) || errors.Is(err, allocation.ErrInvalidSlot) {
			return nil, err
		}
		lastErr = err
		utils.GetLogger().Warn("slot claim attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("slot claim failed after %d attempts: %w", claimAttempts, lastErr)
}

// OnPaymentResult handles the gateway callback. Idempotent under webhook
// redelivery: a booking already in a terminal status is acknowledged without
// side effects.
func (c *DefaultBookingCoordinator) OnPaymentResult(ctx context.Context, result models.PaymentResult) error {
	logger := utils.GetLogger()

	record, err := c.Bookings.FindByID(ctx, result.BookingID)
	if err != nil {
		return fmt.Errorf("payment callback for unknown booking %s: %w", result.BookingID, err)
	}
	if record.Status != models.BookingPendingPayment {
		logger.Info("payment callback for settled booking, ignoring",
			zap.String("booking", record.ID),
			zap.String("status", string(record.Status)))
		return nil
	}

	ticket := &models.ClaimTicket{
		ServiceID: record.ServiceID,
		Date:      record.Date,
		Time:      record.Time,
		ActorID:   record.CustomerID,
		ExpiresAt: record.HoldExpiresAt,
	}

	if !result.Succeeded {
		// Cancel the record first: the status transition is the arbiter
		// between racing settlers. Losing it means someone else already
		// decided this booking, so our stale snapshot must cause no writes.
		err := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingCancelled, "payment failed: "+result.Reason)
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			logger.Info("payment failure lost to a concurrent settlement",
				zap.String("booking", record.ID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to cancel booking %s: %w", record.ID, err)
		}
		c.Engine.ReleaseSlot(ctx, ticket)
		record.Status = models.BookingCancelled
		c.Notifier.Notify(ctx, record.CustomerID, models.NotifyBookingCancelled, bookingData(record))
		return nil
	}

	err = c.Engine.ConfirmSlot(ctx, ticket, record.ID)
	if errors.Is(err, allocation.ErrHoldExpired) {
		// The payment landed but the slot lapsed. This is a genuine
		// conflict: refund and apologize rather than silently failing.
		return c.refundLapsed(ctx, record)
	}
	if err != nil {
		// Transient storage fault; the webhook redelivery will retry us.
		return fmt.Errorf("failed to confirm booking %s: %w", record.ID, err)
	}

	err = c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingConfirmed, "")
	if errors.Is(err, bookingRepo.ErrStatusConflict) {
		// A racing cancellation (failure redelivery, sweep at the TTL
		// boundary) marked the record Cancelled after we read it, but the
		// slot CAS above made this booking the slot's owner. The slot is
		// the source of truth: pull the record forward to match it.
		logger.Warn("overriding racing cancellation, slot confirmed under this booking",
			zap.String("booking", record.ID))
		err = c.Bookings.UpdateStatus(ctx, record.ID, models.BookingCancelled, models.BookingConfirmed, "")
	}
	if err != nil {
		return fmt.Errorf("failed to mark booking %s confirmed: %w", record.ID, err)
	}
	record.Status = models.BookingConfirmed
	c.notifyBoth(ctx, record, models.NotifyBookingConfirmed)
	return nil
}

// refundLapsed compensates a payment that arrived after the hold expired.
func (c *DefaultBookingCoordinator) refundLapsed(ctx context.Context, record *models.Booking) error {
	logger := utils.GetLogger()
	logger.Warn("payment arrived after hold expiry, refunding",
		zap.String("booking", record.ID))

	if record.PaymentIntentID != "" {
		gwCtx, cancel := context.WithTimeout(ctx, gatewayCallBudget)
		defer cancel()
		if err := c.Gateway.Refund(gwCtx, record.PaymentIntentID); err != nil {
			// Keep the booking pending so the retried webhook re-enters
			// this path and retries the refund.
			return fmt.Errorf("refund for booking %s failed: %w", record.ID, err)
		}
	}
	err := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingCancelled, "slot hold expired before payment completed; refunded")
	if errors.Is(err, bookingRepo.ErrStatusConflict) {
		// Someone else settled the record while we refunded; nothing left
		// for this delivery to decide.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cancel booking %s after refund: %w", record.ID, err)
	}
	record.Status = models.BookingCancelled
	c.Notifier.Notify(ctx, record.CustomerID, models.NotifyBookingRefunded, bookingData(record))
	return nil
}

// CancelBooking is the administrative escape hatch. A confirmed booking
// reopens its slot; a pending one releases its hold.
func (c *DefaultBookingCoordinator) CancelBooking(ctx context.Context, bookingID, reason string) error {
	record, err := c.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	switch record.Status {
	case models.BookingCancelled:
		return nil
	case models.BookingConfirmed:
		if err := c.Engine.CancelBookedSlot(ctx, record.SlotKey()); err != nil {
			return err
		}
		if err := c.Bookings.UpdateStatus(ctx, bookingID, models.BookingConfirmed, models.BookingCancelled, reason); err != nil {
			if errors.Is(err, bookingRepo.ErrStatusConflict) {
				return nil
			}
			return err
		}
	case models.BookingPendingPayment:
		// Win the status transition before touching the hold: a payment
		// callback confirming this booking right now must not lose its slot.
		if err := c.Bookings.UpdateStatus(ctx, bookingID, models.BookingPendingPayment, models.BookingCancelled, reason); err != nil {
			return err
		}
		c.Engine.ReleaseSlot(ctx, &models.ClaimTicket{
			ServiceID: record.ServiceID,
			Date:      record.Date,
			Time:      record.Time,
			ActorID:   record.CustomerID,
			ExpiresAt: record.HoldExpiresAt,
		})
	}
	record.Status = models.BookingCancelled
	c.notifyBoth(ctx, record, models.NotifyBookingCancelled)
	return nil
}

// GetBooking returns the booking record for status queries.
func (c *DefaultBookingCoordinator) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return c.Bookings.FindByID(ctx, bookingID)
}

func (c *DefaultBookingCoordinator) notifyBoth(ctx context.Context, record *models.Booking, event string) {
	data := bookingData(record)
	c.Notifier.Notify(ctx, record.CustomerID, event, data)
	c.Notifier.Notify(ctx, record.ProviderID, event, data)
}

func bookingData(b *models.Booking) map[string]string {
	return map[string]string{
		"bookingId": b.ID,
		"serviceId": b.ServiceID,
		"date":      b.Date,
		"time":      b.Time,
		"status":    string(b.Status),
	}
}
