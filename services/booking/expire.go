package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "agrilink/database/repository/booking"
	"agrilink/models"
	"agrilink/utils"

	"go.uber.org/zap"
)

// ExpireStaleBookings closes abandoned checkouts: PendingPayment bookings
// whose slot hold lapsed without a payment callback ever arriving. Each
// booking is settled independently so a single failure doesn't wedge the
// pass. Every step is idempotent, so the pass is safe to run concurrently
// with live traffic and with itself.
func (c *DefaultBookingCoordinator) ExpireStaleBookings(ctx context.Context) (int, error) {
	logger := utils.GetLogger()

	stale, err := c.Bookings.FindStalePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		record := &stale[i]

		// Win the status transition first: a payment callback settling this
		// booking between the query and now must not have its slot touched.
		if err := c.Bookings.UpdateStatus(ctx, record.ID, models.BookingPendingPayment, models.BookingCancelled, "checkout abandoned"); err != nil {
			if errors.Is(err, bookingRepo.ErrStatusConflict) {
				logger.Debug("stale booking settled concurrently, skipping",
					zap.String("booking", record.ID))
			} else {
				logger.Warn("failed to cancel stale booking",
					zap.String("booking", record.ID), zap.Error(err))
			}
			continue
		}

		// The hold has almost certainly auto-expired already; releasing is
		// an idempotent tidy-up either way.
		c.Engine.ReleaseSlot(ctx, &models.ClaimTicket{
			ServiceID: record.ServiceID,
			Date:      record.Date,
			Time:      record.Time,
			ActorID:   record.CustomerID,
			ExpiresAt: record.HoldExpiresAt,
		})
		record.Status = models.BookingCancelled
		c.Notifier.Notify(ctx, record.CustomerID, models.NotifyBookingCancelled, bookingData(record))
		expired++
	}

	if expired > 0 {
		logger.Info("expired stale bookings", zap.Int("count", expired))
	}
	return expired, nil
}
