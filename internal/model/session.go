package model

import "time"

// Session models an entry in the `sessions` table.  Sessions are opaque
// bearer tokens checked against the database on every request so that
// logout and expiry take effect immediately server-side.  The plain token
// is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the session.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the session.
//  CreatedIP – client IP recorded at login/signup.
//  UserAgent – client user agent recorded at login/signup.
//  CreatedAt – timestamp of creation.
type Session struct {
    ID        uint64    // sessions.id
    UserID    uint64    // sessions.user_id
    TokenHash string    // sessions.token_hash
    ExpiresAt time.Time // sessions.expires_at
    CreatedIP string    // sessions.created_ip
    UserAgent string    // sessions.user_agent
    CreatedAt time.Time // sessions.created_at
}
