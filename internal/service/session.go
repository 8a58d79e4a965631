// Package service holds the session lifecycle: credential checks, token
// issuance, single-use refresh rotation and revocation.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/model"
	q "github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// TokenPair is what a successful login, registration or refresh hands back
// to the caller.
type TokenPair struct {
	User    model.Identity
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// Options carries the optional collaborators of a SessionManager.
type Options struct {
	BcryptCost int
	Now        func() time.Time
	Events     EventPublisher
	Metrics    *metrics.Recorder
	Log        logrus.FieldLogger
}

// SessionManager orchestrates login, refresh rotation, logout and
// revocation. It keeps no per-session state in memory; the session store
// is authoritative.
type SessionManager struct {
	users    UserStore
	sessions SessionStore
	codec    *utils.TokenCodec
	cost     int
	now      func() time.Time
	events   EventPublisher
	metrics  *metrics.Recorder
	log      logrus.FieldLogger

	decoyOnce sync.Once
	decoyHash string
}

// NewSessionManager wires the stores and codec together. The bcrypt cost
// is clamped to [12, 31]. Other missing options fall back to the wall
// clock, a no-op publisher and the standard logrus logger.
func NewSessionManager(users UserStore, sessions SessionStore, codec *utils.TokenCodec, opts Options) *SessionManager {
	if opts.BcryptCost < utils.DefaultBcryptCost {
		opts.BcryptCost = utils.DefaultBcryptCost
	}
	if opts.BcryptCost > utils.MaxBcryptCost {
		opts.BcryptCost = utils.MaxBcryptCost
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Events == nil {
		opts.Events = NopPublisher{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &SessionManager{
		users:    users,
		sessions: sessions,
		codec:    codec,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		events:   opts.Events,
		metrics:  opts.Metrics,
		log:      opts.Log,
	}
}

// Login verifies credentials and opens a new session. Unknown email and
// wrong password produce the same InvalidCredentials error.
func (m *SessionManager) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = model.NormalizeEmail(email)
	u, err := m.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// spend the same bcrypt work as a real comparison
		utils.VerifyPassword(m.decoy(), password)
		return TokenPair{}, m.loginFailed(email, 0, apperr.New(apperr.InvalidCredentials))
	}
	if err != nil {
		return TokenPair{}, m.loginFailed(email, 0, apperr.Wrap(apperr.Internal, err))
	}
	if u.Blocked {
		return TokenPair{}, m.loginFailed(email, u.ID, apperr.New(apperr.AccountBlocked))
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, m.loginFailed(email, u.ID, apperr.New(apperr.InvalidCredentials))
	}

	pair, err := m.CreateSession(ctx, u.ID)
	if err != nil {
		return TokenPair{}, m.loginFailed(email, u.ID, err)
	}
	m.record("login", nil)
	m.emit(q.AuthEvent{Type: q.EventLogin, UserID: u.ID, Email: u.Email})
	return pair, nil
}

// CreateSession is the only path that mints tokens. It re-reads the user
// so the access token carries the current email and role, then persists
// the digest of the new refresh token.
func (m *SessionManager) CreateSession(ctx context.Context, userID uint64) (TokenPair, error) {
	ident, err := m.users.FindIdentity(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperr.Wrap(apperr.UserNotFound, err)
	}
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	if ident.Blocked {
		return TokenPair{}, apperr.New(apperr.AccountBlocked)
	}

	access, err := m.codec.SignAccess(ident)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	refresh, err := m.codec.SignRefresh(ident.ID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	if _, err := m.sessions.Create(ctx, ident.ID, utils.HashRefreshRaw(refresh.Token), refresh.Exp); err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	return TokenPair{User: ident, Access: access, Refresh: refresh}, nil
}

// Refresh redeems a refresh token exactly once and returns a new pair.
// The old session row is removed with a conditional delete; if another
// caller removed it first this call fails with InvalidToken instead of
// minting a second pair.
func (m *SessionManager) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	pair, err := m.refresh(ctx, raw)
	m.record("refresh", err)
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			m.emit(q.AuthEvent{Type: q.EventRefreshRejected, Reason: apperr.KindOf(err).String()})
		}
		return TokenPair{}, err
	}
	m.emit(q.AuthEvent{Type: q.EventRefreshed, UserID: pair.User.ID})
	return pair, nil
}

func (m *SessionManager) refresh(ctx context.Context, raw string) (TokenPair, error) {
	claims, err := m.codec.VerifyRefresh(raw)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.InvalidToken, err)
	}

	sess, err := m.sessions.FindByTokenHash(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperr.Wrap(apperr.InvalidToken, errors.New("no session for token"))
	}
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	if sess.UserID != claims.UserID {
		return TokenPair{}, apperr.Wrap(apperr.InvalidToken, errors.New("session owner mismatch"))
	}
	if sess.Expired(m.now()) {
		if _, err := m.sessions.Delete(ctx, sess.ID); err != nil {
			m.log.WithError(err).WithField("session_id", sess.ID).Warn("failed to delete expired session")
		}
		return TokenPair{}, apperr.Wrap(apperr.InvalidToken, errors.New("session expired"))
	}

	n, err := m.sessions.Delete(ctx, sess.ID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, err)
	}
	if n != 1 {
		return TokenPair{}, apperr.Wrap(apperr.InvalidToken, errors.New("session already redeemed"))
	}
	return m.CreateSession(ctx, sess.UserID)
}

// Logout deletes the session holding raw. Unknown or already deleted
// tokens are not an error.
func (m *SessionManager) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	n, err := m.sessions.DeleteByTokenHash(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		m.record("logout", err)
		return apperr.Wrap(apperr.Internal, err)
	}
	m.record("logout", nil)
	if n > 0 {
		ev := q.AuthEvent{Type: q.EventLogout, Sessions: n}
		if claims, err := m.codec.VerifyRefresh(raw); err == nil {
			ev.UserID = claims.UserID
		}
		m.emit(ev)
	}
	return nil
}

// RevokeAllSessions deletes every session of userID, signing the user out
// on all devices. Outstanding access tokens stay valid until they expire.
func (m *SessionManager) RevokeAllSessions(ctx context.Context, userID uint64) (int64, error) {
	n, err := m.sessions.DeleteByUser(ctx, userID)
	m.record("revoke_all", err)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err)
	}
	m.emit(q.AuthEvent{Type: q.EventSessionsRevoked, UserID: userID, Sessions: n})
	return n, nil
}

// SweepExpired deletes every session whose expiry has passed.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err)
	}
	m.metrics.Swept(n)
	return n, nil
}

func (m *SessionManager) loginFailed(email string, userID uint64, err error) error {
	m.record("login", err)
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		m.log.WithError(err).WithField("user_id", userID).Error("login failed")
	}
	m.emit(q.AuthEvent{Type: q.EventLoginFailed, UserID: userID, Email: email, Reason: kind.String()})
	return err
}

func (m *SessionManager) decoy() string {
	m.decoyOnce.Do(func() {
		h, err := utils.HashPassword("decoy-password-for-unknown-users", m.cost)
		if err != nil {
			m.log.WithError(err).Error("failed to build decoy hash")
		}
		m.decoyHash = h
	})
	return m.decoyHash
}

func (m *SessionManager) record(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	m.metrics.Observe(event, outcome)
}

func (m *SessionManager) emit(ev q.AuthEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = m.now()
	}
	m.events.Publish(ev)
}
