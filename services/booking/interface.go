package booking

import (
	"context"

	bookingRepo "agrilink/database/repository/booking"
	serviceRepo "agrilink/database/repository/service"
	"agrilink/models"
	"agrilink/services/allocation"
	"agrilink/services/notification"
)

// BookingCoordinator orchestrates the end-to-end flow: hold a slot, create a
// pending booking, await payment confirmation or COD acceptance, then
// finalize or release. It owns Booking records and is the only component that
// talks to the payment gateway and the notification dispatcher; slot state is
// only ever touched through the allocation engine.
type BookingCoordinator interface {
	StartBooking(ctx context.Context, req models.BookingRequest) (*models.BookingOutcome, error)
	OnPaymentResult(ctx context.Context, result models.PaymentResult) error
	ExpireStaleBookings(ctx context.Context) (int, error)
	CancelBooking(ctx context.Context, bookingID, reason string) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
}

// DefaultBookingCoordinator implements BookingCoordinator.
type DefaultBookingCoordinator struct {
	Engine   allocation.AllocationEngine
	Bookings bookingRepo.BookingRepository
	Services serviceRepo.ServiceRepository
	Gateway  PaymentGateway
	Notifier notification.NotificationService
}
