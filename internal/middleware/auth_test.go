package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

type fakeSource struct {
	headers map[string]string
	cookies map[string]string
}

func (s fakeSource) Header(name string) string { return s.headers[name] }

func (s fakeSource) Cookie(name string) (string, bool) {
	v, ok := s.cookies[name]
	return v, ok
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *utils.TokenCodec) {
	t.Helper()
	codec, err := utils.NewTokenCodec(utils.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return NewAuthenticator(codec), codec
}

func signFor(t *testing.T, codec *utils.TokenCodec, role model.Role) string {
	t.Helper()
	tok, err := codec.SignAccess(model.Identity{ID: 7, Email: "alice@example.com", Role: role})
	require.NoError(t, err)
	return tok.Token
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
		want string
		ok   bool
	}{
		{"bearer header", fakeSource{headers: map[string]string{"Authorization": "Bearer abc"}}, "abc", true},
		{"lowercase scheme", fakeSource{headers: map[string]string{"Authorization": "bearer abc"}}, "abc", true},
		{"cookie", fakeSource{cookies: map[string]string{"access_token": "xyz"}}, "xyz", true},
		{"header wins", fakeSource{
			headers: map[string]string{"Authorization": "Bearer abc"},
			cookies: map[string]string{"access_token": "xyz"},
		}, "abc", true},
		{"basic auth ignored", fakeSource{headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}}, "", false},
		{"empty bearer falls back to cookie", fakeSource{
			headers: map[string]string{"Authorization": "Bearer "},
			cookies: map[string]string{"access_token": "xyz"},
		}, "xyz", true},
		{"nothing", fakeSource{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractToken(tt.src)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	a, codec := newTestAuthenticator(t)
	raw := signFor(t, codec, model.RoleCustomer)

	claims, err := a.Authenticate(fakeSource{headers: map[string]string{"Authorization": "Bearer " + raw}})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, model.RoleCustomer, claims.Role)

	_, err = a.Authenticate(fakeSource{})
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	_, err = a.Authenticate(fakeSource{cookies: map[string]string{"access_token": "garbage"}})
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	refresh, err := codec.SignRefresh(7)
	require.NoError(t, err)
	_, err = a.Authenticate(fakeSource{cookies: map[string]string{"access_token": refresh.Token}})
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestAuthorize(t *testing.T) {
	a, codec := newTestAuthenticator(t)
	manager := fakeSource{headers: map[string]string{"Authorization": "Bearer " + signFor(t, codec, model.RoleManager)}}
	admin := fakeSource{headers: map[string]string{"Authorization": "Bearer " + signFor(t, codec, model.RoleAdmin)}}

	_, err := a.Authorize(manager, model.RoleAdmin)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	claims, err := a.Authorize(admin, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = a.Authorize(fakeSource{}, model.RoleAdmin)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	a, codec := newTestAuthenticator(t)
	e := echo.New()
	g := e.Group("/admin", JWTAuth(a), RequireRole(model.RoleAdmin))
	g.GET("/ping", func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, claims.Email)
	})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, `{"error":"unauthenticated"}`},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, `{"error":"unauthenticated"}`},
		{"wrong role", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signFor(t, codec, model.RoleManager))
		}, http.StatusForbidden, `{"error":"forbidden"}`},
		{"admin via cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: signFor(t, codec, model.RoleAdmin)})
		}, http.StatusOK, "alice@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(model.RoleAdmin))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
