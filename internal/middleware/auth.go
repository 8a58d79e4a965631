package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/apperr"
	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// AccessCookie is the cookie carrying the access token for browser clients.
const AccessCookie = "access_token"

// TokenSource is the part of an incoming request the authenticator reads.
type TokenSource interface {
	Header(name string) string
	Cookie(name string) (string, bool)
}

// ExtractToken returns the bearer token from the Authorization header or,
// failing that, the access_token cookie. The header wins when both exist.
func ExtractToken(src TokenSource) (string, bool) {
	auth := src.Header(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		if raw := strings.TrimSpace(auth[7:]); raw != "" {
			return raw, true
		}
	}
	if v, ok := src.Cookie(AccessCookie); ok && v != "" {
		return v, true
	}
	return "", false
}

// Authenticator verifies access tokens. It holds no state besides the
// codec and is safe for concurrent use.
type Authenticator struct {
	codec *utils.TokenCodec
}

func NewAuthenticator(codec *utils.TokenCodec) *Authenticator {
	return &Authenticator{codec: codec}
}

// Authenticate extracts and verifies the access token carried by src. A
// missing token and a bad token both fail as Unauthenticated.
func (a *Authenticator) Authenticate(src TokenSource) (utils.AccessClaims, error) {
	raw, ok := ExtractToken(src)
	if !ok {
		return utils.AccessClaims{}, apperr.New(apperr.Unauthenticated)
	}
	claims, err := a.codec.VerifyAccess(raw)
	if err != nil {
		return utils.AccessClaims{}, apperr.Wrap(apperr.Unauthenticated, err)
	}
	return claims, nil
}

// Authorize authenticates src and requires the caller to hold one of roles.
func (a *Authenticator) Authorize(src TokenSource, roles ...model.Role) (utils.AccessClaims, error) {
	claims, err := a.Authenticate(src)
	if err != nil {
		return utils.AccessClaims{}, err
	}
	if !hasRole(claims.Role, roles) {
		return utils.AccessClaims{}, apperr.New(apperr.Forbidden)
	}
	return claims, nil
}

func hasRole(role model.Role, allowed []model.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// echoSource adapts an echo.Context to TokenSource.
type echoSource struct{ c echo.Context }

func (s echoSource) Header(name string) string { return s.c.Request().Header.Get(name) }

func (s echoSource) Cookie(name string) (string, bool) {
	ck, err := s.c.Cookie(name)
	if err != nil {
		return "", false
	}
	return ck.Value, true
}

// RequestSource exposes c as a TokenSource.
func RequestSource(c echo.Context) TokenSource { return echoSource{c: c} }

// JWTAuth rejects requests without a valid access token and stores the
// verified claims on the context for ClaimsFrom.
func JWTAuth(a *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := a.Authenticate(RequestSource(c))
			if err != nil {
				return deny(c, err)
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func deny(c echo.Context, err error) error {
	k := apperr.KindOf(err)
	return c.JSON(apperr.Status(k), map[string]string{"error": apperr.Message(k)})
}
