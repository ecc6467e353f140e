// Package session owns the authenticated session credential and its readiness
// lifecycle.
//
// The token is written once per login and read by many concurrent callers.
// Reads are lock-free loads of an immutable *Session, so a read racing a write
// observes either the old or the new session, never a partial one.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated session of one user.
type Session struct {
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	HealthID   string    `json:"health_id,omitempty"`
	ObtainedAt time.Time `json:"obtained_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session has a known expiry that is not after now.
// Sessions without an expiry never expire client-side; the backend stays the
// source of truth for token validity.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether the session carries a token.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

// expiryFromToken extracts the exp claim from a JWT without verifying it.
// Opaque tokens yield the zero time.
func expiryFromToken(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ReadyPolicy bounds how long WaitForReady waits for a credential.
type ReadyPolicy struct {
	// Timeout caps the total wait. Zero means Retries*Interval.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Retries is the number of intervals to wait.
	Retries int `mapstructure:"retries" validate:"gte=0" yaml:"retries"`

	// Interval is the spacing between checks.
	Interval time.Duration `mapstructure:"interval" validate:"gte=0" yaml:"interval"`
}

// DefaultReadyPolicy waits up to 3 x 500ms, matching the mobile client.
func DefaultReadyPolicy() ReadyPolicy {
	return ReadyPolicy{
		Retries:  3,
		Interval: 500 * time.Millisecond,
	}
}

// budget returns the total time a waiter may block.
func (p ReadyPolicy) budget() time.Duration {
	b := time.Duration(p.Retries) * p.Interval
	if p.Timeout > 0 && (b <= 0 || p.Timeout < b) {
		b = p.Timeout
	}
	if b < 0 {
		return 0
	}
	return b
}
