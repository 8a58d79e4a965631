package utils // package utils provides helpers for password hashing and token signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/storefront-auth/internal/model"
)

var (
	// ErrInvalidToken is returned for any token that fails verification:
	// bad signature, unexpected algorithm, malformed payload or expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned by NewTokenCodec when a signing secret
	// is empty.
	ErrMissingSecret = errors.New("token signing secret is empty")
	// ErrSharedSecret is returned by NewTokenCodec when access and refresh
	// tokens would be signed with the same secret.
	ErrSharedSecret = errors.New("access and refresh secrets must differ")
)

// TokenConfig is the signing configuration injected into a TokenCodec.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AccessClaims is the payload of a signed access token.
type AccessClaims struct {
	UserID uint64     `json:"uid"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims.
func (c AccessClaims) Identity() model.Identity {
	return model.Identity{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// RefreshClaims is the payload of a signed refresh token. ID (jti) is
// random so two tokens minted in the same second never collide.
type RefreshClaims struct {
	UserID uint64 `json:"uid"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec signs and verifies access and refresh tokens. Each class uses
// its own HS256 secret so leaking one does not compromise the other.
type TokenCodec struct {
	cfg     TokenConfig
	now     func() time.Time
	access  []byte
	refresh []byte
}

// NewTokenCodec validates cfg and builds a codec. Zero TTLs fall back to
// 15 minutes and 7 days.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenCodec{
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		access:  []byte(cfg.AccessSecret),
		refresh: []byte(cfg.RefreshSecret),
	}, nil
}

// AccessTTL returns the lifetime of access tokens.
func (c *TokenCodec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// SignAccess builds and signs an access token for id.
func (c *TokenCodec) SignAccess(id model.Identity) (SignedToken, error) {
	now := c.now()
	exp := now.Add(c.cfg.AccessTTL)
	claims := AccessClaims{
		UserID: id.ID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   strconv.FormatUint(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.access)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// SignRefresh builds and signs a refresh token for userID.
func (c *TokenCodec) SignRefresh(userID uint64) (SignedToken, error) {
	now := c.now()
	exp := now.Add(c.cfg.RefreshTTL)
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.cfg.Issuer,
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refresh)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyAccess checks the signature and expiry of an access token and
// returns its claims.
func (c *TokenCodec) VerifyAccess(raw string) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(raw, &claims, c.access); err != nil {
		return AccessClaims{}, err
	}
	if claims.UserID == 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh checks the signature and expiry of a refresh token and
// returns its claims. A valid signature alone does not make the token
// redeemable; the caller must also find a live session row.
func (c *TokenCodec) VerifyRefresh(raw string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.parse(raw, &claims, c.refresh); err != nil {
		return RefreshClaims{}, err
	}
	if claims.UserID == 0 {
		return RefreshClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims, key []byte) error {
	if raw == "" {
		return ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string. Only this digest is persisted in the sessions table.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
