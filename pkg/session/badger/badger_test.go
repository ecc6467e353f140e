package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/reportshare/pkg/session"
)

func TestBackendRoundTrip(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	sess, err := b.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)

	obtained := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, b.Save(&session.Session{Token: "tok", UserID: "Niki002", ObtainedAt: obtained}))

	sess, err = b.Load()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, "Niki002", sess.UserID)
	assert.True(t, obtained.Equal(sess.ObtainedAt))

	require.NoError(t, b.Delete())
	sess, err = b.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestBackendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, b.Save(&session.Session{Token: "durable", UserID: "u1"}))
	require.NoError(t, b.Close())

	b, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	store := session.NewStore(session.WithBackend(b))
	_, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "durable", store.Get())
}
