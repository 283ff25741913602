package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure so callers
// cannot tell a forged token from an expired one.
var ErrInvalidToken = errors.New("invalid token")

const DefaultTokenTTL = 24 * time.Hour

type Claims struct {
	UserID      string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenIssuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

func NewTokenIssuer(secret string, ttl time.Duration, opts ...TokenOption) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	t := &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TokenIssuer) Issue(c Claims) (string, error) {
	if c.UserID == "" {
		return "", errors.New("auth: claims without user id")
	}
	now := t.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var c Claims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid || c.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
