package allocation

import "errors"

var (
	// ErrInvalidSlot: the requested (date, time) is outside the service's
	// valid domain. Rejected before any storage touch.
	ErrInvalidSlot = errors.New("requested slot is outside the service's bookable domain")

	// ErrSlotUnavailable: expected contention outcome; the caller re-presents
	// the calendar so the user picks another slot.
	ErrSlotUnavailable = errors.New("slot is no longer available")

	// ErrHoldExpired: the hold lapsed between claim and confirm; the flow
	// restarts from slot selection.
	ErrHoldExpired = errors.New("slot hold has expired")
)
