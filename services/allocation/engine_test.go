package allocation

import (
	"context"
	"sync"
	"testing"
	"time"

	serviceRepo "agrilink/database/repository/service"
	slotRepo "agrilink/database/repository/slot"
	"agrilink/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSlotRepo honors the SlotRepository contract in memory: every mutation is
// a single check-and-set under one lock, mirroring the conditional writes the
// Mongo implementation issues.
type memSlotRepo struct {
	mu    sync.Mutex
	slots map[models.SlotKey]models.Slot
}

func newMemSlotRepo() *memSlotRepo {
	return &memSlotRepo{slots: make(map[models.SlotKey]models.Slot)}
}

func (r *memSlotRepo) GetSlots(ctx context.Context, serviceID string, dates []string) (map[models.SlotKey]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}
	out := make(map[models.SlotKey]models.Slot)
	for key, slot := range r.slots {
		if key.ServiceID == serviceID && wanted[key.Date] {
			out[key] = slot
		}
	}
	return out, nil
}

func (r *memSlotRepo) TryHold(ctx context.Context, key models.SlotKey, actorID string, ttl time.Duration, price float64) (*models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.slots[key]; ok {
		if existing.EffectiveState(now) != models.SlotAvailable {
			return nil, slotRepo.ErrSlotConflict
		}
		// An existing record keeps its stored price; only first touch
		// materializes the service price.
		if existing.Price > 0 {
			price = existing.Price
		}
	}
	expires := now.Add(ttl)
	slot := models.Slot{
		ServiceID:     key.ServiceID,
		Date:          key.Date,
		Time:          key.Time,
		State:         models.SlotHeld,
		HeldBy:        actorID,
		HeldAt:        &now,
		HoldExpiresAt: &expires,
		Price:         price,
		Version:       r.slots[key].Version + 1,
		UpdatedAt:     now,
	}
	r.slots[key] = slot
	return &slot, nil
}

func (r *memSlotRepo) ConfirmBook(ctx context.Context, key models.SlotKey, bookingID, expectedHolder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	slot, ok := r.slots[key]
	if !ok {
		return slotRepo.ErrStaleHold
	}
	if slot.State == models.SlotBooked {
		if slot.BookingID == bookingID {
			return nil
		}
		return slotRepo.ErrAlreadyBooked
	}
	if !slot.HeldLiveBy(expectedHolder, now) {
		return slotRepo.ErrStaleHold
	}
	slot.State = models.SlotBooked
	slot.BookingID = bookingID
	slot.HeldBy = ""
	slot.HoldExpiresAt = nil
	slot.Version++
	slot.UpdatedAt = now
	r.slots[key] = slot
	return nil
}

func (r *memSlotRepo) Release(ctx context.Context, key models.SlotKey, expectedHolder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[key]
	if !ok || slot.State != models.SlotHeld || slot.HeldBy != expectedHolder {
		return nil
	}
	slot.State = models.SlotAvailable
	slot.HeldBy = ""
	slot.HoldExpiresAt = nil
	slot.Version++
	r.slots[key] = slot
	return nil
}

func (r *memSlotRepo) SweepExpiredHolds(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var swept int64
	for key, slot := range r.slots {
		if slot.State == models.SlotHeld && slot.EffectiveState(now) == models.SlotAvailable {
			slot.State = models.SlotAvailable
			slot.HeldBy = ""
			slot.HoldExpiresAt = nil
			slot.Version++
			r.slots[key] = slot
			swept++
		}
	}
	return swept, nil
}

func (r *memSlotRepo) AdminCancel(ctx context.Context, key models.SlotKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[key]
	if !ok || slot.State != models.SlotBooked {
		return slotRepo.ErrNotBooked
	}
	slot.State = models.SlotAvailable
	slot.BookingID = ""
	slot.Version++
	r.slots[key] = slot
	return nil
}

func (r *memSlotRepo) EnsureIndexes() error { return nil }

func (r *memSlotRepo) state(key models.SlotKey) models.SlotState {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[key]
	if !ok {
		return models.SlotAvailable
	}
	return slot.EffectiveState(time.Now().UTC())
}

type memServiceRepo struct {
	services map[string]models.Service
}

func (r *memServiceRepo) FindByID(ctx context.Context, serviceID string) (*models.Service, error) {
	svc, ok := r.services[serviceID]
	if !ok {
		return nil, serviceRepo.ErrServiceNotFound
	}
	return &svc, nil
}

func newTestEngine(ttl time.Duration) (*DefaultAllocationEngine, *memSlotRepo) {
	slots := newMemSlotRepo()
	svc := testService()
	engine := &DefaultAllocationEngine{
		Slots:    slots,
		Services: &memServiceRepo{services: map[string]models.Service{svc.ID: svc}},
		HoldTTL:  ttl,
	}
	return engine, slots
}

func TestClaimSlotValidation(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	tests := []struct {
		name  string
		date  string
		label string
	}{
		{"unknown time label", "2024-02-03", "11:00"},
		{"date before window", "2024-01-15", "09:00"},
		{"date after window", "2024-02-20", "09:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ClaimSlot(ctx, "svc-1", tt.date, tt.label, "cust-1")
			assert.ErrorIs(t, err, ErrInvalidSlot)
		})
	}
	assert.Empty(t, slots.slots, "validation failures must not touch storage")

	_, err := engine.ClaimSlot(ctx, "no-such-service", "2024-02-03", "09:00", "cust-1")
	assert.ErrorIs(t, err, serviceRepo.ErrServiceNotFound)
}

func TestClaimSlotConflict(t *testing.T) {
	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "cust-a", ticket.ActorID)
	assert.True(t, ticket.ExpiresAt.After(time.Now()))

	_, err = engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// A different cell of the same service is unaffected.
	_, err = engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "10:00", "cust-b")
	assert.NoError(t, err)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	const racers = 20
	var wg sync.WaitGroup
	wins := make(chan *models.ClaimTicket, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actor := "cust-" + string(rune('a'+n))
			if ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", actor); err == nil {
				wins <- ticket
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []*models.ClaimTicket
	for ticket := range wins {
		winners = append(winners, ticket)
	}
	require.Len(t, winners, 1, "exactly one racer may hold the slot")
}

func TestExpiredHoldIsClaimable(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-1", Date: "2024-02-03", Time: "09:00"}

	lapsed := &DefaultAllocationEngine{
		Slots:    engine.Slots,
		Services: engine.Services,
		HoldTTL:  -time.Minute, // hold is born expired
	}
	_, err := lapsed.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, slots.state(key), "expired hold reads as available")

	// A second customer takes over without waiting for any sweep.
	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	require.NoError(t, err)
	assert.Equal(t, "cust-b", ticket.ActorID)
}

func TestClaimSlotPrice(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-1", Date: "2024-02-03", Time: "09:00"}

	// Provider set a per-slot override on this cell.
	slots.slots[key] = models.Slot{
		ServiceID: key.ServiceID,
		Date:      key.Date,
		Time:      key.Time,
		State:     models.SlotAvailable,
		Price:     2000,
	}

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)
	assert.Equal(t, float64(2000), ticket.Price, "override must bill, not the service price")

	// An untouched cell bills at the service price.
	other, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "10:00", "cust-a")
	require.NoError(t, err)
	assert.Equal(t, float64(1500), other.Price)
}

func TestConfirmSlot(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-1", Date: "2024-02-03", Time: "09:00"}

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)

	require.NoError(t, engine.ConfirmSlot(ctx, ticket, "bk-1"))
	assert.Equal(t, models.SlotBooked, slots.state(key))

	// Redelivered confirmation for the same booking is a no-op.
	assert.NoError(t, engine.ConfirmSlot(ctx, ticket, "bk-1"))

	// Booked cells stay booked: no new holds, no sweep reclaim.
	_, err = engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	swept, err := slots.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestConfirmExpiredHold(t *testing.T) {
	engine, _ := newTestEngine(-time.Minute)
	ctx := context.Background()

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)

	err = engine.ConfirmSlot(ctx, ticket, "bk-1")
	assert.ErrorIs(t, err, ErrHoldExpired)
}

func TestConfirmAfterReassignment(t *testing.T) {
	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	lapsed := &DefaultAllocationEngine{
		Slots:    engine.Slots,
		Services: engine.Services,
		HoldTTL:  -time.Minute,
	}
	staleTicket, err := lapsed.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)

	_, err = engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	require.NoError(t, err)

	// cust-a's ticket lost the slot to cust-b; confirmation must not steal it.
	err = engine.ConfirmSlot(ctx, staleTicket, "bk-stale")
	assert.ErrorIs(t, err, ErrHoldExpired)
}

func TestReleaseSlot(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-1", Date: "2024-02-03", Time: "09:00"}

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)

	engine.ReleaseSlot(ctx, ticket)
	assert.Equal(t, models.SlotAvailable, slots.state(key))

	// Releasing again, or releasing someone else's hold, changes nothing.
	engine.ReleaseSlot(ctx, ticket)
	other, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	require.NoError(t, err)
	engine.ReleaseSlot(ctx, ticket)
	assert.Equal(t, models.SlotHeld, slots.state(key))
	assert.True(t, slots.slots[key].HeldLiveBy(other.ActorID, time.Now().UTC()))
}

func TestCancelBookedSlot(t *testing.T) {
	engine, slots := newTestEngine(15 * time.Minute)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-1", Date: "2024-02-03", Time: "09:00"}

	ticket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-a")
	require.NoError(t, err)
	require.NoError(t, engine.ConfirmSlot(ctx, ticket, "bk-1"))

	require.NoError(t, engine.CancelBookedSlot(ctx, key))
	assert.Equal(t, models.SlotAvailable, slots.state(key))

	// Cancelling twice fails: the cell is no longer booked.
	assert.Error(t, engine.CancelBookedSlot(ctx, key))

	// The freed cell is claimable again.
	_, err = engine.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-b")
	assert.NoError(t, err)
}

func TestGetSlotGrid(t *testing.T) {
	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	_, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-02", "09:00", "cust-a")
	require.NoError(t, err)

	bookedTicket, err := engine.ClaimSlot(ctx, "svc-1", "2024-02-02", "10:00", "cust-b")
	require.NoError(t, err)
	require.NoError(t, engine.ConfirmSlot(ctx, bookedTicket, "bk-1"))

	lapsed := &DefaultAllocationEngine{
		Slots:    engine.Slots,
		Services: engine.Services,
		HoldTTL:  -time.Minute,
	}
	_, err = lapsed.ClaimSlot(ctx, "svc-1", "2024-02-03", "09:00", "cust-c")
	require.NoError(t, err)

	cells, err := engine.GetSlotGrid(ctx, "svc-1", "2024-02-01", 7)
	require.NoError(t, err)
	require.Len(t, cells, 14)

	byCell := make(map[string]models.SlotCell, len(cells))
	for _, c := range cells {
		byCell[c.Date+" "+c.Time] = c
	}

	assert.Equal(t, models.SlotHeld, byCell["2024-02-02 09:00"].State)
	assert.Equal(t, models.SlotBooked, byCell["2024-02-02 10:00"].State)
	assert.Equal(t, "bk-1", byCell["2024-02-02 10:00"].BookingID)
	// Expired hold reads as available without any sweep having run.
	assert.Equal(t, models.SlotAvailable, byCell["2024-02-03 09:00"].State)
	// Untouched cells synthesize as available at the service price.
	assert.Equal(t, models.SlotAvailable, byCell["2024-02-05 10:00"].State)
	assert.Equal(t, float64(1500), byCell["2024-02-05 10:00"].Price)
}
