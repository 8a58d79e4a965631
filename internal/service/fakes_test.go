package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-auth/internal/model"
	q "github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]model.User{}}
}

func (s *memUsers) Create(_ context.Context, email, passwordHash string, role model.Role) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	email = model.NormalizeEmail(email)
	for _, u := range s.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	s.nextID++
	s.byID[s.nextID] = model.User{ID: s.nextID, Email: email, PasswordHash: passwordHash, Role: role}
	return s.nextID, nil
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.User{}, s.err
	}
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memUsers) FindByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.User{}, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUsers) FindIdentity(ctx context.Context, id uint64) (model.Identity, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{ID: u.ID, Email: u.Email, Role: u.Role, Blocked: u.Blocked}, nil
}

func (s *memUsers) SetBlocked(_ context.Context, id uint64, blocked bool) error {
	return s.update(id, func(u *model.User) { u.Blocked = blocked })
}

func (s *memUsers) SetRole(_ context.Context, id uint64, role model.Role) error {
	return s.update(id, func(u *model.User) { u.Role = role })
}

func (s *memUsers) update(id uint64, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	s.byID[id] = u
	return nil
}

type memSessions struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Session
	err    error
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[uint64]model.Session{}}
}

func (s *memSessions) Create(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	for _, r := range s.rows {
		if r.TokenHash == tokenHash {
			return 0, repository.ErrDuplicateToken
		}
	}
	s.nextID++
	s.rows[s.nextID] = model.Session{ID: s.nextID, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return s.nextID, nil
}

func (s *memSessions) FindByTokenHash(_ context.Context, tokenHash string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Session{}, s.err
	}
	for _, r := range s.rows {
		if r.TokenHash == tokenHash {
			return r, nil
		}
	}
	return model.Session{}, repository.ErrNotFound
}

func (s *memSessions) Delete(_ context.Context, id uint64) (int64, error) {
	return s.deleteWhere(func(r model.Session) bool { return r.ID == id })
}

func (s *memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	return s.deleteWhere(func(r model.Session) bool { return r.TokenHash == tokenHash })
}

func (s *memSessions) DeleteByUser(_ context.Context, userID uint64) (int64, error) {
	return s.deleteWhere(func(r model.Session) bool { return r.UserID == userID })
}

func (s *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return s.deleteWhere(func(r model.Session) bool { return r.Expired(now) })
}

func (s *memSessions) CountActive(_ context.Context, userID uint64, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && !r.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (s *memSessions) deleteWhere(match func(model.Session) bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for id, r := range s.rows {
		if match(r) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []q.AuthEvent
}

func (p *recordingPublisher) Publish(ev q.AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []q.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]q.AuthEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	users    *memUsers
	sessions *memSessions
	codec    *utils.TokenCodec
	events   *recordingPublisher
	mgr      *SessionManager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	codec, err := utils.NewTokenCodec(utils.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "storefront-test",
	})
	require.NoError(t, err)

	f := &fixture{
		users:    newMemUsers(),
		sessions: newMemSessions(),
		codec:    codec,
		events:   &recordingPublisher{},
	}
	opts.Events = f.events
	f.mgr = NewSessionManager(f.users, f.sessions, codec, opts)
	return f
}

// seedUser stores a user with a real bcrypt hash of password.
func (f *fixture) seedUser(t *testing.T, email, password string, role model.Role) uint64 {
	t.Helper()
	hash, err := utils.HashPassword(password, utils.DefaultBcryptCost)
	require.NoError(t, err)
	id, err := f.users.Create(context.Background(), email, hash, role)
	require.NoError(t, err)
	return id
}
