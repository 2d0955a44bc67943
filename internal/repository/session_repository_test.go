package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clustershield/clustershield/internal/utils"
)

func newMockSessionRepo(t *testing.T) (*SessionRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSessionRepo(db), mock
}

func sessionRows(hash string, userID uint64, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "token_hash", "user_id", "expires_at", "created_ip", "user_agent", "created_at"}).
		AddRow(1, hash, userID, expiresAt, "203.0.113.9", "test-agent", time.Now().UTC())
}

func userRows(id uint64, email string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "address", "city", "zip", "country", "company", "vat_number", "created_at", "updated_at"}).
		AddRow(id, email, "$2a$10$hash", "Ada", "Lovelace", "1 Engine St", "London", "E1", "UK", nil, nil, now, now)
}

func TestSessionRepo_Authenticate(t *testing.T) {
	raw := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	hash := utils.HashToken(raw)

	t.Run("valid token returns session and user", func(t *testing.T) {
		repo, mock := newMockSessionRepo(t)
		exp := time.Now().UTC().Add(24 * time.Hour)

		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token_hash=").
			WithArgs(hash).
			WillReturnRows(sessionRows(hash, 5, exp))
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id=").
			WithArgs(uint64(5)).
			WillReturnRows(userRows(5, "ada@example.com"))

		sess, user, err := repo.Authenticate(context.Background(), raw)

		require.NoError(t, err)
		assert.Equal(t, uint64(5), sess.UserID)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown token yields ErrNoSession", func(t *testing.T) {
		repo, mock := newMockSessionRepo(t)

		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token_hash=").
			WithArgs(hash).
			WillReturnError(sql.ErrNoRows)

		_, _, err := repo.Authenticate(context.Background(), raw)

		assert.ErrorIs(t, err, ErrNoSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired token is deleted and yields ErrSessionExpired", func(t *testing.T) {
		repo, mock := newMockSessionRepo(t)
		exp := time.Now().UTC().Add(-time.Minute)

		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token_hash=").
			WithArgs(hash).
			WillReturnRows(sessionRows(hash, 5, exp))
		// The discovery of the expiry removes the row, so a second attempt
		// with the same token can only ever see ErrNoSession.
		mock.ExpectExec("DELETE FROM sessions WHERE id=").
			WithArgs(uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, _, err := repo.Authenticate(context.Background(), raw)

		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepo_Create(t *testing.T) {
	t.Run("garbage-collects expired rows then inserts the new session", func(t *testing.T) {
		repo, mock := newMockSessionRepo(t)

		mock.ExpectExec("DELETE FROM sessions WHERE user_id=").
			WithArgs(uint64(5), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(sqlmock.AnyArg(), uint64(5), sqlmock.AnyArg(), "203.0.113.9", "test-agent").
			WillReturnResult(sqlmock.NewResult(9, 1))

		raw, exp, err := repo.Create(context.Background(), 5, "203.0.113.9", "test-agent", 30)

		require.NoError(t, err)
		assert.Len(t, raw, 64) // 32 random bytes, hex encoded
		assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), exp, time.Minute)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepo_Delete(t *testing.T) {
	t.Run("missing token is not an error", func(t *testing.T) {
		repo, mock := newMockSessionRepo(t)

		mock.ExpectExec("DELETE FROM sessions WHERE token_hash=").
			WithArgs(utils.HashToken("gone")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Delete(context.Background(), "gone"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
