package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// AuthService is the part of the session manager the auth endpoints use.
type AuthService interface {
	Register(ctx context.Context, email, password string) (service.TokenPair, error)
	Login(ctx context.Context, email, password string) (service.TokenPair, error)
	Refresh(ctx context.Context, raw string) (service.TokenPair, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandler serves /v1/auth and /v1/me.
type AuthHandler struct {
	Sessions AuthService
	Cookies  CookieConfig
	Log      logrus.FieldLogger
}

func NewAuthHandler(s AuthService, cookies CookieConfig, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Sessions: s, Cookies: cookies, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// loginReq only checks presence; anything else is a credential mismatch.
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func newAuthResp(p service.TokenPair) authResp {
	return authResp{
		User:    userPart{ID: p.User.ID, Email: p.User.Email, Role: p.User.Role},
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Token, Expires: p.Refresh.Exp},
	}
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = model.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.Log, err, false)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	h.Cookies.set(c, pair)
	return c.JSON(http.StatusCreated, newAuthResp(pair))
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = model.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.Log, err, false)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	h.Cookies.set(c, pair)
	return c.JSON(http.StatusOK, newAuthResp(pair))
}

// Refresh redeems the refresh token once and returns a new pair. Any
// failure clears the auth cookies so the client stops retrying.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshToken(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, raw)
	if err != nil {
		h.Cookies.clear(c)
		return writeError(c, h.Log, err, false)
	}
	h.Cookies.set(c, pair)
	return c.JSON(http.StatusOK, newAuthResp(pair))
}

// Logout ends the session of the presented refresh token. It succeeds
// whether or not the token is still known.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := h.refreshToken(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, raw); err != nil {
		return writeError(c, h.Log, err, false)
	}
	h.Cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// refreshToken reads refresh_token from the JSON body, falling back to the
// refresh_token cookie.
func (h *AuthHandler) refreshToken(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		return raw
	}
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		return ck.Value
	}
	return ""
}

// Me returns the identity carried by the caller's access token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	return c.JSON(http.StatusOK, userPart{ID: claims.UserID, Email: claims.Email, Role: claims.Role})
}
