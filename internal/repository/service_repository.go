package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/clustershield/clustershield/internal/model"
)

// ServiceRepo provides CRUD operations for purchased services. A service
// row is created once per purchase, its expiry and active flag are mutated
// by renewals, and the expiration sweep flips active off in bulk. All
// timestamp fields are stored in UTC.
type ServiceRepo struct{ DB *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

const serviceColumns = "id,user_id,offer_id,name,price_cents,feature_flags,description,price_paid_cents,payment_date,duration_months,expires_at,is_lifetime,active,created_at,updated_at"

// Create inserts a new service and populates the generated ID on the
// provided record. The caller is responsible for having snapshotted the
// offer fields and computed expiry/lifetime beforehand.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO services (user_id, offer_id, name, price_cents, feature_flags, description,
		  price_paid_cents, payment_date, duration_months, expires_at, is_lifetime, active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.UserID, s.OfferID, s.Name, s.PriceCents, s.FeatureFlags, s.Description,
		s.PricePaidCents, s.PaymentDate, s.DurationMonths, s.ExpiresAt, s.IsLifetime, s.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetForUser fetches a service scoped to its owner. A missing id and a
// non-owner are indistinguishable (both sql.ErrNoRows) so that handlers
// answer 404 in either case and never confirm the existence of other
// accounts' services.
func (r *ServiceRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Service, error) {
	return scanService(r.DB.QueryRowContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE id=? AND user_id=? LIMIT 1", id, userID))
}

// ListByUser returns all services of an account, newest first.
func (r *ServiceRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Service, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE user_id=? ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanServiceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Renew extends (or restarts) a service after a paid renewal: it writes the
// new expiry, records the payment facts and sets active unconditionally.
// expiresAt is nil for lifetime services.
func (r *ServiceRepo) Renew(ctx context.Context, id uint64, expiresAt *time.Time, pricePaidCents int64, paymentDate time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE services SET expires_at=?, active=1, price_paid_cents=?, payment_date=?, updated_at=NOW() WHERE id=?",
		expiresAt, pricePaidCents, paymentDate, id)
	return err
}

// DeactivateExpired bulk-deactivates every active, non-lifetime service
// whose expiry is at or before now, and returns the number of rows
// affected. Running it twice with no time passing affects zero additional
// rows, so a failed run is safe to retry wholesale.
func (r *ServiceRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE services SET active=0, updated_at=NOW() WHERE active=1 AND is_lifetime=0 AND expires_at IS NOT NULL AND expires_at <= ?",
		now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface{ Scan(dest ...any) error }

func scanService(row scanner) (model.Service, error) {
	var (
		s   model.Service
		exp sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.OfferID, &s.Name, &s.PriceCents, &s.FeatureFlags, &s.Description,
		&s.PricePaidCents, &s.PaymentDate, &s.DurationMonths, &exp, &s.IsLifetime, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Service{}, err
	}
	if exp.Valid {
		t := exp.Time
		s.ExpiresAt = &t
	}
	return s, nil
}

func scanServiceRows(rows *sql.Rows) (model.Service, error) { return scanService(rows) }
