package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/model"
)

// RequireRole lets the request through only when the claims stored by
// JWTAuth carry one of roles. It must be mounted after JWTAuth; a request
// without claims is treated as unauthenticated.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return deny(c, apperr.New(apperr.Unauthenticated))
			}
			if !hasRole(claims.Role, roles) {
				return deny(c, apperr.New(apperr.Forbidden))
			}
			return next(c)
		}
	}
}
