package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/service"
	"github.com/iliyamo/storefront-auth/internal/validation"
)

type stubAccounts struct {
	account    service.Account
	err        error
	gotID      uint64
	gotBlocked bool
	gotRole    string
	revoked    int64
}

func (s *stubAccounts) GetUser(_ context.Context, id uint64) (service.Account, error) {
	s.gotID = id
	return s.account, s.err
}

func (s *stubAccounts) SetBlocked(_ context.Context, id uint64, blocked bool) error {
	s.gotID, s.gotBlocked = id, blocked
	return s.err
}

func (s *stubAccounts) SetRole(_ context.Context, id uint64, role string) (model.Role, error) {
	s.gotID, s.gotRole = id, role
	if s.err != nil {
		return "", s.err
	}
	r, _ := model.ParseRole(role)
	return r, nil
}

func (s *stubAccounts) RevokeAllSessions(_ context.Context, id uint64) (int64, error) {
	s.gotID = id
	return s.revoked, s.err
}

func serveAdmin(h *AdminUserHandler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = validation.EchoValidator{}
	e.GET("/users/:id", h.Get)
	e.PATCH("/users/:id/block", h.SetBlocked)
	e.PATCH("/users/:id/role", h.SetRole)
	e.DELETE("/users/:id/sessions", h.RevokeSessions)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminGetUser(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubAccounts{account: service.Account{
		User: model.User{
			ID: 9, Email: "bob@example.com", Role: model.RoleViewer,
			Blocked: true, CreatedAt: created, UpdatedAt: created,
		},
		ActiveSessions: 2,
	}}
	h := NewAdminUserHandler(svc, quietLog())

	rec := serveAdmin(h, http.MethodGet, "/users/9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(9), svc.gotID)
	assert.JSONEq(t, `{
		"id":9,"email":"bob@example.com","role":"VIEWER","blocked":true,"active_sessions":2,
		"created_at":"2024-05-01T12:00:00Z","updated_at":"2024-05-01T12:00:00Z"
	}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAdminUnknownUserIs404(t *testing.T) {
	svc := &stubAccounts{err: apperr.Wrap(apperr.UserNotFound, errors.New("no rows"))}
	h := NewAdminUserHandler(svc, quietLog())

	rec := serveAdmin(h, http.MethodGet, "/users/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, rec.Body.String())
}

func TestAdminInvalidID(t *testing.T) {
	h := NewAdminUserHandler(&stubAccounts{}, quietLog())

	for _, path := range []string{"/users/abc", "/users/0", "/users/-1"} {
		rec := serveAdmin(h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestAdminSetBlocked(t *testing.T) {
	svc := &stubAccounts{}
	h := NewAdminUserHandler(svc, quietLog())

	rec := serveAdmin(h, http.MethodPatch, "/users/4/block", `{"blocked":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(4), svc.gotID)
	assert.True(t, svc.gotBlocked)
	assert.JSONEq(t, `{"id":4,"blocked":true}`, rec.Body.String())

	rec = serveAdmin(h, http.MethodPatch, "/users/4/block", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"blocked is required"}`, rec.Body.String())
}

func TestAdminSetRole(t *testing.T) {
	svc := &stubAccounts{}
	h := NewAdminUserHandler(svc, quietLog())

	rec := serveAdmin(h, http.MethodPatch, "/users/4/role", `{"role":"manager"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager", svc.gotRole)
	assert.JSONEq(t, `{"id":4,"role":"MANAGER"}`, rec.Body.String())

	svc.err = apperr.Invalid("unknown role")
	rec = serveAdmin(h, http.MethodPatch, "/users/4/role", `{"role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"unknown role"}`, rec.Body.String())
}

func TestAdminRevokeSessions(t *testing.T) {
	svc := &stubAccounts{revoked: 3}
	h := NewAdminUserHandler(svc, quietLog())

	rec := serveAdmin(h, http.MethodDelete, "/users/4/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":3}`, rec.Body.String())
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := do(t, Health(stubPinger{}), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, Health(stubPinger{err: errors.New("down")}), http.MethodGet, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
