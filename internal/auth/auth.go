package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"romshelf/internal/config"
	"romshelf/internal/services"
)

const issuer = "romshelf"

// Authenticator mints and verifies user tokens.
type Authenticator struct {
	secret        []byte
	defaultUserID int64
	ttl           time.Duration
}

// New builds an authenticator from the auth config section.
func New(cfg config.Auth) *Authenticator {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Authenticator{
		secret:        []byte(strings.TrimSpace(cfg.JWTSecret)),
		defaultUserID: cfg.DefaultUserID,
		ttl:           ttl,
	}
}

// Enabled reports whether requests must carry a token.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// DefaultUserID is the identity used when authentication is disabled.
func (a *Authenticator) DefaultUserID() int64 {
	return a.defaultUserID
}

// Mint returns a signed token for userID. A non-positive ttl uses the
// configured lifetime.
func (a *Authenticator) Mint(userID int64, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", services.Wrap(services.ErrConfiguration, "auth", "mint", "jwt_secret is not configured", nil)
	}
	if userID <= 0 {
		return "", services.Wrap(services.ErrInvalidRequest, "auth", "mint", "user id must be positive", nil)
	}
	if ttl <= 0 {
		ttl = a.ttl
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns its user id.
func (a *Authenticator) Verify(token string) (int64, error) {
	if !a.Enabled() {
		return a.defaultUserID, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, services.Wrap(services.ErrUnauthorized, "auth", "verify", "missing token", nil)
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, services.Wrap(services.ErrUnauthorized, "auth", "verify", "invalid or expired token", err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, services.Wrap(services.ErrUnauthorized, "auth", "verify", "token subject is not a user id", err)
	}
	return userID, nil
}
