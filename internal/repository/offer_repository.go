package repository

import (
	"context"
	"database/sql"

	"github.com/clustershield/clustershield/internal/model"
)

// OfferRepo reads the catalogue. Offers are immutable from the engine's
// perspective; the editing workflow lives outside this service.
type OfferRepo struct{ DB *sql.DB }

func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{DB: db} }

const offerColumns = "id,name,price_cents,period,feature_flags,description,created_at"

// GetByID fetches a single offer.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (model.Offer, error) {
	var o model.Offer
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE id=? LIMIT 1", id).
		Scan(&o.ID, &o.Name, &o.PriceCents, &o.Period, &o.FeatureFlags, &o.Description, &o.CreatedAt)
	return o, err
}

// List returns the whole catalogue ordered by price.
func (r *OfferRepo) List(ctx context.Context) ([]model.Offer, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+offerColumns+" FROM offers ORDER BY price_cents ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.Name, &o.PriceCents, &o.Period, &o.FeatureFlags, &o.Description, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
