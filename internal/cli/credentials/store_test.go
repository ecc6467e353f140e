package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/reportshare/pkg/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store, err := NewStore()
	require.NoError(t, err)
	return store
}

func TestContextIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{
			name:      "expired in past",
			expiresAt: time.Now().Add(-1 * time.Hour),
			expected:  true,
		},
		{
			name:      "expires soon (within 60s)",
			expiresAt: time.Now().Add(30 * time.Second),
			expected:  true,
		},
		{
			name:      "not expired",
			expiresAt: time.Now().Add(2 * time.Hour),
			expected:  false,
		},
		{
			name:      "no expiry recorded",
			expiresAt: time.Time{},
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, ctx.IsExpired())
		})
	}
}

func TestContextSession(t *testing.T) {
	var nilCtx *Context
	assert.Nil(t, nilCtx.Session())
	assert.Nil(t, (&Context{ServerURL: "http://x"}).Session())

	sess := (&Context{AccessToken: "tok", UserID: "Niki002", HealthID: "H-9"}).Session()
	require.NotNil(t, sess)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, "Niki002", sess.UserID)
	assert.Equal(t, "H-9", sess.HealthID)
}

func TestStoreOperations(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	store, err := NewStore()
	require.NoError(t, err)

	expectedPath := filepath.Join(tmpDir, DefaultConfigDir, ConfigFileName)
	assert.Equal(t, expectedPath, store.ConfigPath())

	// Empty state
	_, err = store.GetCurrentContext()
	assert.ErrorIs(t, err, ErrNoCurrentContext)
	assert.Empty(t, store.ListContexts())

	require.NoError(t, store.SetContext("development", &Context{
		ServerURL:   "http://localhost:3000",
		UserID:      "Niki002",
		AccessToken: "token1",
	}))
	require.NoError(t, store.UseContext("development"))

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", current.ServerURL)
	assert.Equal(t, "Niki002", current.UserID)

	require.NoError(t, store.SetContext("production", &Context{
		ServerURL: "https://api.example.com",
	}))
	assert.Equal(t, []string{"development", "production"}, store.ListContexts())

	require.NoError(t, store.UseContext("production"))
	assert.Equal(t, "production", store.GetCurrentContextName())

	require.NoError(t, store.DeleteContext("production"))
	assert.Empty(t, store.GetCurrentContextName())

	_, err = store.GetContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)
	assert.ErrorIs(t, store.UseContext("nonexistent"), ErrContextNotFound)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetContext("default", &Context{ServerURL: "http://localhost:3000"}))
	require.NoError(t, store.UseContext("default"))

	reopened, err := NewStoreAt(store.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "default", reopened.GetCurrentContextName())

	info, err := os.Stat(store.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermissions), info.Mode().Perm())
}

func TestStoreUpdateSession(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetContext("default", &Context{
		ServerURL:   "http://localhost:3000",
		AccessToken: "old-token",
	}))
	require.NoError(t, store.UseContext("default"))

	expiry := time.Now().Add(2 * time.Hour)
	require.NoError(t, store.UpdateSession(&session.Session{
		Token:     "new-access",
		UserID:    "Niki002",
		HealthID:  "H-1",
		ExpiresAt: expiry,
	}))

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "new-access", current.AccessToken)
	assert.Equal(t, "H-1", current.HealthID)
	assert.WithinDuration(t, expiry, current.ExpiresAt, time.Second)
}

func TestStoreClearCurrentContext(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetContext("default", &Context{
		ServerURL:   "http://localhost:3000",
		UserID:      "Niki002",
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(1 * time.Hour),
	}))
	require.NoError(t, store.UseContext("default"))

	require.NoError(t, store.ClearCurrentContext())

	// Token cleared but server and user remain
	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Empty(t, current.AccessToken)
	assert.True(t, current.ExpiresAt.IsZero())
	assert.Equal(t, "http://localhost:3000", current.ServerURL)
	assert.Equal(t, "Niki002", current.UserID)
}

func TestStorePreferences(t *testing.T) {
	store := newTestStore(t)

	prefs := store.GetPreferences()
	assert.Empty(t, prefs.DefaultOutput)

	require.NoError(t, store.SetPreferences(Preferences{DefaultOutput: "json", Color: "auto"}))

	prefs = store.GetPreferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
}

func TestGenerateContextName(t *testing.T) {
	assert.Equal(t, "localhost", GenerateContextName("http://localhost:3000"))
	assert.Equal(t, "api-example-com", GenerateContextName("https://api.example.com/api"))
	assert.Equal(t, "default", GenerateContextName("not a url"))
}

func TestSessionBackendWithoutContext(t *testing.T) {
	store := newTestStore(t)
	backend := store.SessionBackend()

	sess, err := backend.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoError(t, backend.Delete())
}

func TestSessionBackendDrivesTokenStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetContext("default", &Context{ServerURL: "http://localhost:3000"}))
	require.NoError(t, store.UseContext("default"))

	tokens := session.NewStore(session.WithBackend(store.SessionBackend()))
	require.NoError(t, tokens.Persist("tok", "Niki002"))

	reopened, err := NewStoreAt(store.ConfigPath())
	require.NoError(t, err)
	restored := session.NewStore(session.WithBackend(reopened.SessionBackend()))
	_, err = restored.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", restored.Get())

	require.NoError(t, restored.Clear())
	ctx, err := reopened.GetCurrentContext()
	require.NoError(t, err)
	assert.False(t, ctx.HasToken())
}

func TestSessionBackendWatchPicksUpExternalLogin(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetContext("default", &Context{ServerURL: "http://localhost:3000"}))
	require.NoError(t, store.UseContext("default"))

	tokens := session.NewStore(
		session.WithBackend(store.SessionBackend()),
		session.WithReadyPolicy(session.ReadyPolicy{Retries: 40, Interval: 50 * time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tokens.Watch(ctx, nil) }()
	time.Sleep(50 * time.Millisecond)

	// Another process finishes the login and writes the token.
	other, err := NewStoreAt(store.ConfigPath())
	require.NoError(t, err)
	tokens.Expect()
	require.NoError(t, other.UpdateSession(&session.Session{Token: "from-other-process", UserID: "Niki002"}))

	tok, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-other-process", tok)
}
