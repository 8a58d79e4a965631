package model

import "time"

// Session models a row in the `sessions` table: one refresh-token grant.
// Only the SHA-256 hex digest of the refresh token is stored. A row is
// consumed exactly once; refreshing deletes it and inserts a new one.
type Session struct {
	ID        uint64    // sessions.id
	UserID    uint64    // sessions.user_id
	TokenHash string    // sessions.token_hash (unique)
	ExpiresAt time.Time // sessions.expires_at
	CreatedAt time.Time // sessions.created_at
}

// Expired reports whether the session is no longer redeemable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
