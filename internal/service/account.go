package service

import (
	"context"
	"errors"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/model"
	q "github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
	"github.com/iliyamo/storefront-auth/internal/validation"
)

// Account is a user record with its count of live sessions, as returned to
// administrators.
type Account struct {
	model.User
	ActiveSessions int
}

// Register creates a CUSTOMER account and logs it in.
func (m *SessionManager) Register(ctx context.Context, email, password string) (TokenPair, error) {
	email = model.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		m.record("register", err)
		return TokenPair{}, err
	}

	hash, err := utils.HashPassword(password, m.cost)
	if err != nil {
		m.record("register", apperr.New(apperr.Internal))
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	id, err := m.users.Create(ctx, email, hash, model.RoleCustomer)
	if errors.Is(err, repository.ErrEmailExists) {
		err = apperr.Wrap(apperr.EmailTaken, err)
		m.record("register", err)
		return TokenPair{}, err
	}
	if err != nil {
		err = apperr.Wrap(apperr.Internal, err)
		m.record("register", err)
		return TokenPair{}, err
	}

	pair, err := m.CreateSession(ctx, id)
	m.record("register", err)
	if err != nil {
		return TokenPair{}, err
	}
	m.emit(q.AuthEvent{Type: q.EventRegistered, UserID: id, Email: email, Role: string(model.RoleCustomer)})
	return pair, nil
}

// credentials carries the registration rules. Passwords are bounded in
// bytes because bcrypt rejects anything past 72.
type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

func validateCredentials(email, password string) error {
	return validation.Struct(credentials{Email: email, Password: password})
}

// GetUser loads an account and counts its unexpired sessions.
func (m *SessionManager) GetUser(ctx context.Context, id uint64) (Account, error) {
	u, err := m.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Account{}, apperr.Wrap(apperr.UserNotFound, err)
	}
	if err != nil {
		return Account{}, apperr.Wrap(apperr.Internal, err)
	}
	n, err := m.sessions.CountActive(ctx, id, m.now())
	if err != nil {
		return Account{}, apperr.Wrap(apperr.Internal, err)
	}
	u.PasswordHash = ""
	return Account{User: u, ActiveSessions: n}, nil
}

// SetBlocked flips the blocked flag. Blocking also deletes every session of
// the user so no refresh can succeed afterwards.
func (m *SessionManager) SetBlocked(ctx context.Context, id uint64, blocked bool) error {
	err := m.users.SetBlocked(ctx, id, blocked)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.UserNotFound, err)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err)
	}

	if !blocked {
		m.emit(q.AuthEvent{Type: q.EventUserUnblocked, UserID: id})
		return nil
	}
	n, err := m.RevokeAllSessions(ctx, id)
	if err != nil {
		return err
	}
	m.emit(q.AuthEvent{Type: q.EventUserBlocked, UserID: id, Sessions: n})
	return nil
}

// SetRole changes a user's role. Sessions are kept; the new role appears in
// the next access token minted for the user.
func (m *SessionManager) SetRole(ctx context.Context, id uint64, role string) (model.Role, error) {
	r, ok := model.ParseRole(role)
	if !ok {
		return "", apperr.Invalid("unknown role")
	}
	err := m.users.SetRole(ctx, id, r)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.Wrap(apperr.UserNotFound, err)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, err)
	}
	m.emit(q.AuthEvent{Type: q.EventRoleChanged, UserID: id, Role: string(r)})
	return r, nil
}
