package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusPairs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("signed out", func(t *testing.T) {
		s := SessionStatus{Server: "http://localhost:3000/api", Backend: "file"}
		pairs := s.Pairs(now)
		assert.Equal(t, [2]string{"Context", "-"}, pairs[1])
		assert.Equal(t, [2]string{"Signed in", "no"}, pairs[len(pairs)-1])
	})

	t.Run("signed in", func(t *testing.T) {
		s := SessionStatus{
			Server:     "http://localhost:3000/api",
			Context:    "localhost",
			Backend:    "file",
			SignedIn:   true,
			UserID:     "Niki002",
			ObtainedAt: now.Add(-5 * time.Minute),
			ExpiresAt:  now.Add(time.Hour),
		}
		got := map[string]string{}
		for _, p := range s.Pairs(now) {
			got[p[0]] = p[1]
		}
		assert.Equal(t, "yes", got["Signed in"])
		assert.Equal(t, "Niki002", got["User"])
		assert.Equal(t, "-", got["Health ID"])
		assert.Equal(t, "5m ago", got["Obtained"])
		assert.Equal(t, "in 1h0m0s", got["Expires"])
	})

	t.Run("expired", func(t *testing.T) {
		s := SessionStatus{SignedIn: true, Expired: true, UserID: "bob", ExpiresAt: now.Add(-time.Minute)}
		got := map[string]string{}
		for _, p := range s.Pairs(now) {
			got[p[0]] = p[1]
		}
		assert.Equal(t, "no", got["Signed in"])
		assert.Equal(t, "expired", got["Expires"])
	})
}
