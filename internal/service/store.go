package service

import (
	"context"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// UserStore is the credential side of the persistence layer. Lookups
// return repository.ErrNotFound when no row matches.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	FindIdentity(ctx context.Context, id uint64) (model.Identity, error)
	SetBlocked(ctx context.Context, id uint64, blocked bool) error
	SetRole(ctx context.Context, id uint64, role model.Role) error
}

// SessionStore holds refresh-token grants keyed by token digest. Delete
// methods report affected rows; Delete returning 0 means the row was
// already consumed.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) (uint64, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (model.Session, error)
	Delete(ctx context.Context, id uint64) (int64, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, userID uint64, now time.Time) (int, error)
}
