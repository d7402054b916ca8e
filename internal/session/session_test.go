package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTripAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	store, err := Open(path)
	require.NoError(t, err)

	_, err = store.Session()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(Session{Token: "tok-1", UserID: "u1"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	sess, err := reopened.Session()
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok-1", UserID: "u1"}, sess)
	assert.True(t, sess.Active())
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(Session{Token: "tok", UserID: "u1"}))
	require.NoError(t, store.Set("theme", "dark"))
	require.NoError(t, store.Clear())

	_, err = store.Session()
	assert.ErrorIs(t, err, ErrNoSession)
	v, ok := store.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}
