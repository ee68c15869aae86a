package models

import "time"

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PendingPayment"
	BookingConfirmed      BookingStatus = "Confirmed"
	BookingCancelled      BookingStatus = "Cancelled"
)

// PaymentMethod selects the confirmation path at booking time.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"  // cash on delivery, confirmed immediately
	PaymentCard PaymentMethod = "card" // online gateway, confirmed by callback
)

// Booking ties exactly one slot to one customer. A PendingPayment booking
// holds its slot; a Confirmed booking owns it; a Cancelled booking leaves it
// available.
type Booking struct {
	ID              string        `bson:"id" json:"id"`
	ServiceID       string        `bson:"serviceId" json:"serviceId"`
	ProviderID      string        `bson:"providerId" json:"providerId"`
	CustomerID      string        `bson:"customerId" json:"customerId"`
	Date            string        `bson:"date" json:"date"`
	Time            string        `bson:"time" json:"time"`
	PaymentMethod   PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	Status          BookingStatus `bson:"status" json:"status"`
	Amount          float64       `bson:"amount" json:"amount"`
	HoldExpiresAt   time.Time     `bson:"holdExpiresAt" json:"holdExpiresAt"`
	PaymentIntentID string        `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	CancelReason    string        `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func (b Booking) SlotKey() SlotKey {
	return SlotKey{ServiceID: b.ServiceID, Date: b.Date, Time: b.Time}
}

// BookingRequest is the coordinator's input for starting a booking.
type BookingRequest struct {
	ServiceID     string        `json:"serviceId" binding:"required"`
	Date          string        `json:"date" binding:"required"`
	Time          string        `json:"time" binding:"required"`
	CustomerID    string        `json:"-"`
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required"`
}

// OutcomeKind is the user-visible result of a booking attempt. Slot
// contention is a normal branch here, not an error.
type OutcomeKind string

const (
	OutcomeSlotTaken       OutcomeKind = "slot_taken"
	OutcomeAwaitingPayment OutcomeKind = "awaiting_payment"
	OutcomeConfirmed       OutcomeKind = "confirmed"
	OutcomeFailed          OutcomeKind = "failed"
)

// BookingOutcome is what StartBooking hands back to the HTTP layer.
type BookingOutcome struct {
	Kind    OutcomeKind      `json:"kind"`
	Booking *Booking         `json:"booking,omitempty"`
	Payment *PaymentRedirect `json:"payment,omitempty"`
	Message string           `json:"message,omitempty"`
}

// PaymentResult is the gateway callback payload, delivered by the external
// payment system once per attempt (possibly redelivered on webhook retry).
type PaymentResult struct {
	BookingID string `json:"bookingId" binding:"required"`
	Succeeded bool   `json:"succeeded"`
	PaymentID string `json:"paymentId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
