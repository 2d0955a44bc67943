package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/clustershield/clustershield/internal/model"
	"github.com/clustershield/clustershield/internal/utils"
)

// SessionRepo persists and validates opaque bearer session tokens (single
// 'token_hash' column). Tokens are checked against the database on every
// request rather than carried as self-contained signed tokens, so logout
// and expiry are immediately effective server-side at the cost of one
// round trip per request.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create issues a fresh session for a user: it garbage-collects the user's
// already-expired rows, generates a 32-byte random token and inserts its
// hash with an expiry ttlDays from now. The raw token is returned to be set
// as a cookie; only its hash is stored.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, ip, userAgent string, ttlDays int) (string, time.Time, error) {
	now := time.Now().UTC()

	// GC on write: expired rows for this user are dead weight, drop them
	// before inserting the replacement.
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id=? AND expires_at < ?", userID, now); err != nil {
		return "", time.Time{}, err
	}

	raw, err := utils.RandomHex(32)
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, user_id, expires_at, created_ip, user_agent) VALUES (?,?,?,?,?)",
		utils.HashToken(raw), userID, exp, ip, userAgent); err != nil {
		return "", time.Time{}, err
	}
	return raw, exp, nil
}

// Authenticate resolves a raw token to its session and owning user.
// Missing rows yield ErrNoSession. An expired row is deleted on discovery
// and yields ErrSessionExpired; the next attempt with the same token gets
// ErrNoSession because the row is gone.
func (r *SessionRepo) Authenticate(ctx context.Context, raw string) (model.Session, model.User, error) {
	hash := utils.HashToken(raw)

	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token_hash, user_id, expires_at, created_ip, user_agent, created_at FROM sessions WHERE token_hash=? LIMIT 1",
		hash).Scan(&s.ID, &s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedIP, &s.UserAgent, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Session{}, model.User{}, ErrNoSession
	}
	if err != nil {
		return model.Session{}, model.User{}, err
	}

	if time.Now().UTC().After(s.ExpiresAt) {
		// Single-use once past expiry: remove the row so the token can
		// never authorize anything again.
		_, _ = r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", s.ID)
		return model.Session{}, model.User{}, ErrSessionExpired
	}

	u, err := NewUserRepo(r.DB).GetByID(ctx, s.UserID)
	if err != nil {
		return model.Session{}, model.User{}, err
	}
	return s, u, nil
}

// Delete removes the session for a raw token. It is idempotent and never
// errors on a missing token.
func (r *SessionRepo) Delete(ctx context.Context, raw string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE token_hash=?", utils.HashToken(raw))
	return err
}
