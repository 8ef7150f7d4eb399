package provider

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints the HS256 tokens the hosted video API expects: a
// long-lived server token for REST calls and short-lived user tokens handed
// to the front end so the browser SDK can connect as that user.
type TokenIssuer struct {
	secret  []byte
	userTTL time.Duration
	clock   func() time.Time
}

func NewTokenIssuer(apiSecret string, userTTL time.Duration) (*TokenIssuer, error) {
	if apiSecret == "" {
		return nil, errors.New("provider: api secret is required")
	}
	if userTTL <= 0 {
		userTTL = time.Hour
	}
	return &TokenIssuer{secret: []byte(apiSecret), userTTL: userTTL, clock: time.Now}, nil
}

type streamClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
}

// ServerToken signs a token authorizing server-side REST calls.
func (i *TokenIssuer) ServerToken() (string, error) {
	now := i.clock().UTC()
	claims := streamClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: "server-side",
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// UserToken signs a connection token for one user, bounded by the configured TTL.
func (i *TokenIssuer) UserToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("provider: user id is required")
	}
	now := i.clock().UTC()
	claims := streamClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.userTTL)),
		},
		UserID: userID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}
