package boltrepo_test

import (
	"path/filepath"
	"testing"
	"time"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/sessions"
	"github.com/jrsteele09/go-familygraph/sessions/boltrepo"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openStore(t *testing.T, path, passphrase string) *boltrepo.Store {
	t.Helper()
	s, err := boltrepo.Open(path, passphrase, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s := openStore(t, path, "correct horse")

	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := sessions.Record{
		AccessToken: "secret-token",
		ExpiresAt:   expires,
		Permissions: []string{"basic"},
		SavedAt:     time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save("client-a", rec))

	got, err := s.Load("client-a")
	require.NoError(t, err)
	require.Equal(t, rec.AccessToken, got.AccessToken)
	require.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	require.Equal(t, rec.Permissions, got.Permissions)

	ids, err := s.ClientIDs()
	require.NoError(t, err)
	require.Equal(t, []string{"client-a"}, ids)

	require.NoError(t, s.Close())

	// Reopening keeps the salt, so the same passphrase still opens the record.
	s = openStore(t, path, "correct horse")
	got, err = s.Load("client-a")
	require.NoError(t, err)
	require.Equal(t, "secret-token", got.AccessToken)

	require.NoError(t, s.Delete("client-a"))
	_, err = s.Load("client-a")
	require.ErrorIs(t, err, fgerrors.ErrNotFound)
	require.ErrorIs(t, s.Delete("client-a"), fgerrors.ErrNotFound)
	require.NoError(t, s.Close())
}

func TestStore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s := openStore(t, path, "one")
	require.NoError(t, s.Save("client-a", sessions.Record{AccessToken: "tok"}))
	require.NoError(t, s.Close())

	s = openStore(t, path, "two")
	defer s.Close()
	_, err := s.Load("client-a")
	require.ErrorIs(t, err, fgerrors.ErrSealedRecord)
}

func TestStore_RequiresPassphrase(t *testing.T) {
	_, err := boltrepo.Open(filepath.Join(t.TempDir(), "sessions.db"), "", nil)
	require.ErrorIs(t, err, fgerrors.ErrMissingSecret)
}

func TestStore_WorksWithSession(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "sessions.db"), "pass")
	defer s.Close()

	sess, err := sessions.New("client-b", nil, sessions.WithRepo(s))
	require.NoError(t, err)
	require.NoError(t, sess.Login("tok", time.Time{}))

	restored, err := sessions.New("client-b", nil, sessions.WithRepo(s))
	require.NoError(t, err)
	ok, err := restored.Restore()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", restored.AccessToken())
}
