package models

import "time"

// Notification event types emitted by the booking coordinator.
const (
	NotifyBookingConfirmed = "booking_confirmed"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyBookingRefunded  = "booking_refunded"
	NotifySlotUpdated      = "slot_updated"
)

// Notification is the in-app record the dispatcher worker persists for a user.
type Notification struct {
	ID        string            `bson:"id" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Type      string            `bson:"type" json:"type"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool              `bson:"read" json:"read"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

// NotifyPayload is the queued task payload carried through asynq.
type NotifyPayload struct {
	UserID string            `json:"userId"`
	Type   string            `json:"type"`
	Data   map[string]string `json:"data,omitempty"`
}
