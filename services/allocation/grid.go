package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrilink/models"
	"agrilink/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// GetSlotGrid assembles the per-cell view for the booking calendar: the
// calendar enumeration merged with the store's persisted records. Untouched
// keys come back available; expired holds are normalized to available here,
// never trusting sweep timing. Results are cached briefly in Redis and
// invalidated on every slot transition.
func (e *DefaultAllocationEngine) GetSlotGrid(ctx context.Context, serviceID, windowStart string, windowDays int) ([]models.SlotCell, error) {
	svc, err := e.Services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %s: %w", serviceID, err)
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%d", utils.GridCachePrefix, serviceID, windowStart, windowDays)
	if cells, ok := e.cachedGrid(ctx, cacheKey); ok {
		return cells, nil
	}

	keys, err := EnumerateSlots(*svc, windowStart, windowDays)
	if err != nil {
		return nil, err
	}
	dates, err := WindowDates(*svc, windowStart, windowDays)
	if err != nil {
		return nil, err
	}

	stored, err := e.Slots.GetSlots(ctx, serviceID, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot records: %w", err)
	}

	now := time.Now().UTC()
	cells := make([]models.SlotCell, 0, len(keys))
	for _, key := range keys {
		cell := models.SlotCell{
			Date:  key.Date,
			Time:  key.Time,
			State: models.SlotAvailable,
			Price: svc.Price,
		}
		if slot, ok := stored[key]; ok {
			cell.State = slot.EffectiveState(now)
			if slot.Price > 0 {
				cell.Price = slot.Price
			}
			if cell.State == models.SlotBooked {
				cell.BookingID = slot.BookingID
			}
		}
		cells = append(cells, cell)
	}

	e.storeGrid(ctx, cacheKey, cells)
	return cells, nil
}

func (e *DefaultAllocationEngine) cachedGrid(ctx context.Context, cacheKey string) ([]models.SlotCell, bool) {
	if e.Cache == nil {
		return nil, false
	}
	data, err := e.Cache.Get(ctx, cacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			utils.GetLogger().Debug("grid cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var cells []models.SlotCell
	if err := json.Unmarshal([]byte(data), &cells); err != nil {
		return nil, false
	}
	return cells, true
}

func (e *DefaultAllocationEngine) storeGrid(ctx context.Context, cacheKey string, cells []models.SlotCell) {
	if e.Cache == nil {
		return
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return
	}
	if err := e.Cache.Set(ctx, cacheKey, data, utils.GridCacheTTL).Err(); err != nil {
		utils.GetLogger().Debug("grid cache write failed", zap.Error(err))
	}
}

// slotChanged drops cached grids for the service and broadcasts the cell's
// new state on the slot-updated channel. Best-effort both ways: real-time
// viewers reconcile, the store stays authoritative.
func (e *DefaultAllocationEngine) slotChanged(ctx context.Context, key models.SlotKey, state models.SlotState) {
	if e.Cache == nil {
		return
	}
	pattern := utils.GridCachePrefix + key.ServiceID + ":*"
	iter := e.Cache.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		e.Cache.Del(ctx, iter.Val())
	}

	payload, err := json.Marshal(map[string]string{
		"serviceId": key.ServiceID,
		"date":      key.Date,
		"time":      key.Time,
		"state":     string(state),
	})
	if err != nil {
		return
	}
	if err := e.Cache.Publish(ctx, utils.SlotUpdatedChannel, payload).Err(); err != nil {
		utils.GetLogger().Debug("slot-updated publish failed", zap.Error(err))
	}
}
