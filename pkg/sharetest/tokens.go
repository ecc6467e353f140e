package sharetest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

// claims carried by issued session tokens.
type claims struct {
	jwt.RegisteredClaims

	HealthID string `json:"hid,omitempty"`
}

// issuer signs and checks HS256 session tokens.
type issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (i *issuer) issue(userID, healthID string) (string, error) {
	now := i.now()
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sharetest",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		HealthID: healthID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// validate returns the user a token was issued to.
func (i *issuer) validate(token string) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid || c.Subject == "" {
		return "", errInvalidToken
	}
	return c.Subject, nil
}
