package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be split or its payload
// segment cannot be decoded.
var ErrMalformed = errors.New("token malformed")

// ErrNoExpiry is returned when a decoded token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// Claims is the payload the auth server embeds in its bearer tokens. Only
// the fields needed for client-side bookkeeping are mapped.
type Claims struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Decode extracts the claim set of a JWT-shaped token without verifying its
// signature. Any structural failure maps to [ErrMalformed]; Decode never
// panics.
func Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// Config configures an [Inspector].
type Config struct {
	// ExpiryBuffer is subtracted from the real expiry so tokens read as
	// expired slightly early. Must be within [0, 1h].
	ExpiryBuffer time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Inspector applies the expiry-buffer policy to raw tokens.
type Inspector struct {
	buffer time.Duration
	now    func() time.Time
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.ExpiryBuffer < 0 || cfg.ExpiryBuffer > time.Hour {
		return nil, errors.New("invalid expiry buffer configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Inspector{
		buffer: cfg.ExpiryBuffer,
		now:    now,
	}, nil
}

// Expired reports whether raw should be treated as expired: true when decode
// fails, when no exp claim is present, or when now >= exp - buffer.
func (i *Inspector) Expired(raw string) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	deadline := claims.ExpiresAt.Time.Add(-i.buffer)
	return !i.now().Before(deadline)
}

// RemainingLife returns the duration until the buffered expiry deadline.
// Malformed tokens and tokens without exp return an error; already-buffered-
// expired tokens return a non-positive duration.
func (i *Inspector) RemainingLife(raw string) (time.Duration, error) {
	claims, err := Decode(raw)
	if err != nil {
		return 0, err
	}
	if claims.ExpiresAt == nil {
		return 0, ErrNoExpiry
	}
	deadline := claims.ExpiresAt.Time.Add(-i.buffer)
	return deadline.Sub(i.now()), nil
}
