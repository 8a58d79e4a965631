package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/utils"
)

const claimsKey = "auth.claims"

// ClaimsFrom returns the access claims JWTAuth stored on c.
func ClaimsFrom(c echo.Context) (utils.AccessClaims, bool) {
	claims, ok := c.Get(claimsKey).(utils.AccessClaims)
	return claims, ok
}

// userID identifies the caller for rate-limit keys. Unauthenticated
// requests share the "anon" bucket segment.
func userID(c echo.Context) string {
	if claims, ok := ClaimsFrom(c); ok && claims.UserID != 0 {
		return strconv.FormatUint(claims.UserID, 10)
	}
	return "anon"
}
