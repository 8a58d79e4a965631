package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// SessionRepo persists refresh-token grants in the 'sessions' table. Only
// the SHA-256 digest of each token is stored.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row and returns its ID.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicateToken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByTokenHash returns the session holding tokenHash, expired or not.
func (r *SessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_hash,expires_at,created_at FROM sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

// Delete removes one session by id and reports how many rows went away.
// A zero count means another caller consumed the row first.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	return r.exec(ctx, "DELETE FROM sessions WHERE id=?", id)
}

// DeleteByTokenHash removes the session holding tokenHash, if any.
func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	return r.exec(ctx, "DELETE FROM sessions WHERE token_hash=?", tokenHash)
}

// DeleteByUser removes every session of a user.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	return r.exec(ctx, "DELETE FROM sessions WHERE user_id=?", userID)
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "DELETE FROM sessions WHERE expires_at<=?", now.UTC())
}

// CountActive returns how many unexpired sessions a user holds.
func (r *SessionRepo) CountActive(ctx context.Context, userID uint64, now time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_id=? AND expires_at>?",
		userID, now.UTC()).Scan(&n)
	return n, err
}

func (r *SessionRepo) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
