// Package router registers the HTTP routes of the auth service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, rec *metrics.Recorder) {
	e.GET("/healthz", handler.Health(db))
	if rec != nil {
		e.GET("/metrics", echo.WrapHandler(rec.Handler()))
	}
}

// RegisterAuth registers the credential endpoints under /v1/auth and the
// caller's own profile under /v1/me. limit guards the endpoints that accept
// credentials or refresh tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn *middleware.Authenticator, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, limit)
	// logout needs only the refresh token, so an expired access token
	// never prevents signing out
	g.POST("/logout", a.Logout)

	me := e.Group("/v1", middleware.JWTAuth(authn))
	me.GET("/me", a.Me)
}

// RegisterAdmin registers the user administration endpoints. Reading an
// account is open to managers; changing one requires ADMIN.
func RegisterAdmin(e *echo.Echo, h *handler.AdminUserHandler, authn *middleware.Authenticator) {
	g := e.Group("/v1/admin/users", middleware.JWTAuth(authn))

	g.GET("/:id", h.Get, middleware.RequireRole(model.RoleAdmin, model.RoleManager))

	admin := middleware.RequireRole(model.RoleAdmin)
	g.PATCH("/:id/block", h.SetBlocked, admin)
	g.PATCH("/:id/role", h.SetRole, admin)
	g.DELETE("/:id/sessions", h.RevokeSessions, admin)
}
