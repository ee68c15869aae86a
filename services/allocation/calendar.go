package allocation

import (
	"fmt"
	"time"

	"agrilink/models"
)

// EnumerateSlots derives the universe of bookable cells for a service over a
// requested view window. Pure and deterministic: same inputs, same keys, in
// date-major order following the service's daily template. Dates outside the
// service's availability window are silently excluded, not errored, so a
// 7-day page straddling the window edge just comes back shorter.
func EnumerateSlots(service models.Service, windowStart string, windowDays int) ([]models.SlotKey, error) {
	start, err := time.Parse(models.DateLayout, windowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", windowStart, err)
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", windowDays)
	}

	var keys []models.SlotKey
	for offset := 0; offset < windowDays; offset++ {
		date := start.AddDate(0, 0, offset).Format(models.DateLayout)
		if !service.DateInWindow(date) {
			continue
		}
		for _, label := range service.TimeLabels {
			keys = append(keys, models.SlotKey{
				ServiceID: service.ID,
				Date:      date,
				Time:      label,
			})
		}
	}
	return keys, nil
}

// WindowDates returns the distinct dates EnumerateSlots would touch, for
// store lookups.
func WindowDates(service models.Service, windowStart string, windowDays int) ([]string, error) {
	start, err := time.Parse(models.DateLayout, windowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", windowStart, err)
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", windowDays)
	}

	var dates []string
	for offset := 0; offset < windowDays; offset++ {
		date := start.AddDate(0, 0, offset).Format(models.DateLayout)
		if service.DateInWindow(date) {
			dates = append(dates, date)
		}
	}
	return dates, nil
}
