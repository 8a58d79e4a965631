package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// RefreshCookie carries the refresh token for browser clients.
const RefreshCookie = "refresh_token"

// CookieConfig controls the auth cookies. MaxAge values mirror the token
// lifetimes.
type CookieConfig struct {
	Secure        bool
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func (cc CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cc.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc CookieConfig) set(c echo.Context, pair service.TokenPair) {
	c.SetCookie(cc.cookie(middleware.AccessCookie, pair.Access.Token, int(cc.AccessMaxAge/time.Second)))
	c.SetCookie(cc.cookie(RefreshCookie, pair.Refresh.Token, int(cc.RefreshMaxAge/time.Second)))
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(cc.cookie(middleware.AccessCookie, "", -1))
	c.SetCookie(cc.cookie(RefreshCookie, "", -1))
}
