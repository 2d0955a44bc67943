package model

import "time"

// Billing periods accepted in offers.period.  A lifetime offer produces a
// service that never expires.
const (
	PeriodMonth    = "month"
	PeriodYear     = "year"
	PeriodLifetime = "lifetime"
)

// Offer is a catalogue plan template.  Offers are read-only input to the
// engine: purchasing snapshots an offer's fields onto a new service so that
// later catalogue edits never mutate what a customer already paid for.
type Offer struct {
	ID           uint64    // offers.id
	Name         string    // offers.name
	PriceCents   int64     // offers.price_cents
	Period       string    // offers.period (month|year|lifetime)
	FeatureFlags string    // offers.feature_flags
	Description  string    // offers.description
	CreatedAt    time.Time // offers.created_at
}
