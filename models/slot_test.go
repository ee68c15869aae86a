package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotEffectiveState(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		slot Slot
		want SlotState
	}{
		{"available stays available", Slot{State: SlotAvailable}, SlotAvailable},
		{"booked stays booked", Slot{State: SlotBooked}, SlotBooked},
		{"live hold reads held", Slot{State: SlotHeld, HoldExpiresAt: &future}, SlotHeld},
		{"expired hold reads available", Slot{State: SlotHeld, HoldExpiresAt: &past}, SlotAvailable},
		{"hold expiring exactly now reads available", Slot{State: SlotHeld, HoldExpiresAt: &now}, SlotAvailable},
		{"held without expiry reads available", Slot{State: SlotHeld}, SlotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slot.EffectiveState(now))
		})
	}
}

func TestSlotHeldLiveBy(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	live := Slot{State: SlotHeld, HeldBy: "cust-1", HoldExpiresAt: &future}
	assert.True(t, live.HeldLiveBy("cust-1", now))
	assert.False(t, live.HeldLiveBy("cust-2", now))

	lapsed := Slot{State: SlotHeld, HeldBy: "cust-1", HoldExpiresAt: &past}
	assert.False(t, lapsed.HeldLiveBy("cust-1", now))

	booked := Slot{State: SlotBooked, HeldBy: "cust-1", HoldExpiresAt: &future}
	assert.False(t, booked.HeldLiveBy("cust-1", now))
}

func TestServiceWindow(t *testing.T) {
	svc := Service{
		Start:      "2024-02-01",
		End:        "2024-02-07",
		TimeLabels: []string{"09:00", "10:00"},
	}

	assert.True(t, svc.DateInWindow("2024-02-01"))
	assert.True(t, svc.DateInWindow("2024-02-07"))
	assert.False(t, svc.DateInWindow("2024-01-31"))
	assert.False(t, svc.DateInWindow("2024-02-08"))

	assert.True(t, svc.HasTimeLabel("09:00"))
	assert.False(t, svc.HasTimeLabel("11:00"))
}
