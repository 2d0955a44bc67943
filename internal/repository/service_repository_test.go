package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clustershield/clustershield/internal/model"
)

func newMockServiceRepo(t *testing.T) (*ServiceRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewServiceRepo(db), mock
}

func TestServiceRepo_DeactivateExpired(t *testing.T) {
	now := time.Date(2025, time.February, 11, 0, 0, 0, 0, time.UTC)

	t.Run("reports the number of services swept", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)

		mock.ExpectExec("UPDATE services SET active=0").
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.DeactivateExpired(context.Background(), now)

		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second pass with no time change affects zero rows", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)

		mock.ExpectExec("UPDATE services SET active=0").
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("UPDATE services SET active=0").
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		first, err := repo.DeactivateExpired(context.Background(), now)
		require.NoError(t, err)
		second, err := repo.DeactivateExpired(context.Background(), now)
		require.NoError(t, err)

		assert.Equal(t, int64(3), first)
		assert.Zero(t, second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServiceRepo_GetForUser(t *testing.T) {
	t.Run("non-owner lookups are indistinguishable from missing rows", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)

		mock.ExpectQuery("SELECT (.+) FROM services WHERE id=(.+) AND user_id=").
			WithArgs(uint64(12), uint64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetForUser(context.Background(), 12, 99)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scans nullable expiry", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{
			"id", "user_id", "offer_id", "name", "price_cents", "feature_flags", "description",
			"price_paid_cents", "payment_date", "duration_months", "expires_at", "is_lifetime", "active",
			"created_at", "updated_at",
		}).AddRow(12, 7, 2, "Firewall Pro", 4900, "ha,vpn", "desc", 4900, now, 0, nil, true, true, now, now)

		mock.ExpectQuery("SELECT (.+) FROM services WHERE id=(.+) AND user_id=").
			WithArgs(uint64(12), uint64(7)).
			WillReturnRows(rows)

		svc, err := repo.GetForUser(context.Background(), 12, 7)

		require.NoError(t, err)
		assert.True(t, svc.IsLifetime)
		assert.Nil(t, svc.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServiceRepo_Renew(t *testing.T) {
	t.Run("writes expiry, payment facts and reactivates", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)
		now := time.Now().UTC()
		exp := now.AddDate(0, 1, 0)

		mock.ExpectExec("UPDATE services SET expires_at=(.+), active=1").
			WithArgs(&exp, int64(4900), now, uint64(12)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Renew(context.Background(), 12, &exp, 4900, now)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServiceRepo_Create(t *testing.T) {
	t.Run("populates the generated id", func(t *testing.T) {
		repo, mock := newMockServiceRepo(t)
		now := time.Now().UTC()
		exp := now.AddDate(0, 1, 0)

		mock.ExpectExec("INSERT INTO services").
			WillReturnResult(sqlmock.NewResult(31, 1))

		svc := model.Service{
			UserID: 7, OfferID: 2, Name: "Firewall Pro",
			PriceCents: 4900, PricePaidCents: 4900, PaymentDate: now,
			DurationMonths: 1, ExpiresAt: &exp, Active: true,
		}
		err := repo.Create(context.Background(), &svc)

		require.NoError(t, err)
		assert.Equal(t, uint64(31), svc.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
