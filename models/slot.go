package models

import (
	"fmt"
	"time"
)

// SlotState is the lifecycle state of a bookable slot.
type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotHeld      SlotState = "held"
	SlotBooked    SlotState = "booked"
)

// SlotKey identifies a single bookable cell: one service, one day, one time label.
type SlotKey struct {
	ServiceID string `bson:"serviceId" json:"serviceId"`
	Date      string `bson:"date" json:"date"` // "2006-01-02"
	Time      string `bson:"time" json:"time"` // e.g. "09:00"
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ServiceID, k.Date, k.Time)
}

// Slot is the persisted record for a cell that has been touched at least once.
// Untouched cells have no document and read as available.
type Slot struct {
	ServiceID     string     `bson:"serviceId" json:"serviceId"`
	Date          string     `bson:"date" json:"date"`
	Time          string     `bson:"time" json:"time"`
	State         SlotState  `bson:"state" json:"state"`
	HeldBy        string     `bson:"heldBy,omitempty" json:"heldBy,omitempty"`
	HeldAt        *time.Time `bson:"heldAt,omitempty" json:"heldAt,omitempty"`
	HoldExpiresAt *time.Time `bson:"holdExpiresAt,omitempty" json:"holdExpiresAt,omitempty"`
	BookingID     string     `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	Price         float64    `bson:"price,omitempty" json:"price,omitempty"` // per-slot override; zero means service price
	Version       int        `bson:"version" json:"version"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (s Slot) Key() SlotKey {
	return SlotKey{ServiceID: s.ServiceID, Date: s.Date, Time: s.Time}
}

// EffectiveState normalizes an expired hold to available. Readers must never
// trust the raw state of a held slot without checking expiry; the sweep is a
// tidiness pass, not the source of truth.
func (s Slot) EffectiveState(now time.Time) SlotState {
	if s.State == SlotHeld && (s.HoldExpiresAt == nil || !s.HoldExpiresAt.After(now)) {
		return SlotAvailable
	}
	return s.State
}

// HeldLiveBy reports whether the slot carries an unexpired hold owned by actorID.
func (s Slot) HeldLiveBy(actorID string, now time.Time) bool {
	return s.State == SlotHeld && s.HeldBy == actorID &&
		s.HoldExpiresAt != nil && s.HoldExpiresAt.After(now)
}

// ClaimTicket is the receipt handed back for a successful hold. The coordinator
// carries it between claim and confirm/release. Price is the effective per-slot
// price at claim time, per-slot override included.
type ClaimTicket struct {
	ServiceID string    `json:"serviceId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	ActorID   string    `json:"actorId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Price     float64   `json:"price"`
}

func (t ClaimTicket) Key() SlotKey {
	return SlotKey{ServiceID: t.ServiceID, Date: t.Date, Time: t.Time}
}

// SlotCell is the per-cell view returned to the booking calendar UI.
type SlotCell struct {
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	State     SlotState `json:"state"`
	Price     float64   `json:"price"`
	BookingID string    `json:"bookingId,omitempty"`
}
