package model

import "time"

// Service is a purchased, time-boxed (or lifetime) entitlement.  It carries
// a snapshot of the offer fields taken at purchase time plus the payment
// facts reported by the payment processor.
//
// Invariants:
//  IsLifetime == true  ⇒ ExpiresAt == nil.
//  Active == true      ⇒ IsLifetime or ExpiresAt is in the future at the
//                        time of the transition that set it.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – owning account.
//  OfferID        – catalogue offer this service was created from.
//  Name           – offer name snapshot.
//  PriceCents     – offer price snapshot.
//  FeatureFlags   – offer feature flags snapshot.
//  Description    – offer description snapshot.
//  PricePaidCents – amount actually paid on the most recent purchase/renewal.
//  PaymentDate    – date of the most recent payment.
//  DurationMonths – duration purchased (0 for lifetime).
//  ExpiresAt      – expiry instant; nil iff lifetime.
//  IsLifetime     – whether the service never expires.
//  Active         – whether the entitlement is currently usable.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Service struct {
    ID             uint64     // services.id
    UserID         uint64     // services.user_id
    OfferID        uint64     // services.offer_id
    Name           string     // services.name
    PriceCents     int64      // services.price_cents
    FeatureFlags   string     // services.feature_flags
    Description    string     // services.description
    PricePaidCents int64      // services.price_paid_cents
    PaymentDate    time.Time  // services.payment_date
    DurationMonths int        // services.duration_months
    ExpiresAt      *time.Time // services.expires_at (nullable)
    IsLifetime     bool       // services.is_lifetime
    Active         bool       // services.active
    CreatedAt      time.Time  // services.created_at
    UpdatedAt      time.Time  // services.updated_at
}

// NextExpiry computes the expiry a renewal of `months` grants.  A still
// active service extends from its current expiry; an already expired one
// restarts from now.  No unpaid gap is silently granted and no paid-but-
// unused time is lost.
func NextExpiry(now time.Time, current *time.Time, months int) time.Time {
    base := now
    if current != nil && current.After(now) {
        base = *current
    }
    return base.AddDate(0, months, 0)
}
