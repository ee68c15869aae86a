package models

import "time"

const DateLayout = "2006-01-02"

// Service is a bookable offering published by a provider. For slot
// calculation it is read-only: the availability window and the daily time
// label template are fixed for the lifetime of a booking transaction.
type Service struct {
	ID         string   `bson:"id" json:"id"`
	ProviderID string   `bson:"providerId" json:"providerId"`
	Name       string   `bson:"name" json:"name"`
	Category   string   `bson:"category,omitempty" json:"category,omitempty"` // e.g. "tractor", "irrigation", "harvesting"
	Start      string   `bson:"start" json:"start"`                           // first bookable date, "2006-01-02"
	End        string   `bson:"end" json:"end"`                               // last bookable date, inclusive
	TimeLabels []string `bson:"timeLabels" json:"timeLabels"`                 // daily template, e.g. "09:00".."17:00"
	Price      float64  `bson:"price" json:"price"`                           // default per-slot price
	Active     bool     `bson:"active" json:"active"`
}

// HasTimeLabel reports whether label is part of the service's daily template.
func (s Service) HasTimeLabel(label string) bool {
	for _, l := range s.TimeLabels {
		if l == label {
			return true
		}
	}
	return false
}

// DateInWindow reports whether date (in DateLayout) falls inside the
// service's availability window. Malformed dates are simply outside.
func (s Service) DateInWindow(date string) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	start, err := time.Parse(DateLayout, s.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse(DateLayout, s.End)
	if err != nil {
		return false
	}
	return !d.Before(start) && !d.After(end)
}
