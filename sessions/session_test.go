package sessions_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/sessions"
	"github.com/stretchr/testify/require"
)

const testClientID = "test-client-1"

type recordingDelegate struct {
	logins      atomic.Int32
	notLogins   atomic.Int32
	cancelled   atomic.Bool
	logouts     atomic.Int32
	invalidated atomic.Int32
}

func (d *recordingDelegate) DidLogin() { d.logins.Add(1) }
func (d *recordingDelegate) DidNotLogin(cancelled bool) {
	d.notLogins.Add(1)
	d.cancelled.Store(cancelled)
}
func (d *recordingDelegate) DidLogout()          { d.logouts.Add(1) }
func (d *recordingDelegate) SessionInvalidated() { d.invalidated.Add(1) }

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
}

func TestNew_RequiresClientID(t *testing.T) {
	_, err := sessions.New("", nil)
	require.ErrorIs(t, err, fgerrors.ErrMissingClientID)
}

func TestIsValid(t *testing.T) {
	clock := newClock()
	s, err := sessions.New(testClientID, nil, sessions.WithClock(clock.Now))
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		require.False(t, s.IsValid())
	})

	t.Run("token without expiry never expires", func(t *testing.T) {
		s.SetToken("tok", time.Time{})
		require.True(t, s.IsValid())
		clock.Advance(10 * 365 * 24 * time.Hour)
		require.True(t, s.IsValid())
	})

	t.Run("token with future expiry", func(t *testing.T) {
		s.SetToken("tok", clock.Now().Add(time.Minute))
		require.True(t, s.IsValid())
		tok, ok := s.Credentials()
		require.True(t, ok)
		require.Equal(t, "tok", tok)
	})

	t.Run("expiry reached", func(t *testing.T) {
		clock.Advance(time.Minute)
		require.False(t, s.IsValid(), "a token is invalid at the exact expiry instant")
		_, ok := s.Credentials()
		require.False(t, ok)
		require.Equal(t, "tok", s.AccessToken(), "expiry does not clear the token")
	})
}

func TestLoginAndLogout(t *testing.T) {
	clock := newClock()
	d := &recordingDelegate{}
	repo := sessions.NewInMemoryRepo()
	s, err := sessions.New(testClientID, d, sessions.WithClock(clock.Now), sessions.WithRepo(repo))
	require.NoError(t, err)

	require.ErrorIs(t, s.Login("", time.Time{}), fgerrors.ErrMissingToken)
	require.Equal(t, int32(0), d.logins.Load())

	expiry := clock.Now().Add(time.Hour)
	require.NoError(t, s.Login("access-1", expiry))
	require.Equal(t, int32(1), d.logins.Load())
	require.True(t, s.IsValid())
	require.Equal(t, expiry, s.ExpirationDate())

	rec, err := repo.Load(testClientID)
	require.NoError(t, err)
	require.Equal(t, "access-1", rec.AccessToken)
	require.Equal(t, expiry, rec.ExpiresAt)

	s.Logout()
	require.Equal(t, int32(1), d.logouts.Load())
	require.False(t, s.IsValid())
	require.Empty(t, s.AccessToken())
	require.True(t, s.ExpirationDate().IsZero())

	_, err = repo.Load(testClientID)
	require.ErrorIs(t, err, fgerrors.ErrNotFound)

	s.Logout()
	require.Equal(t, int32(2), d.logouts.Load(), "each logout call fires once")
}

func TestNotLogin(t *testing.T) {
	d := &recordingDelegate{}
	s, err := sessions.New(testClientID, d)
	require.NoError(t, err)
	s.SetToken("keep", time.Time{})

	s.NotLogin(true)
	require.Equal(t, int32(1), d.notLogins.Load())
	require.True(t, d.cancelled.Load())
	require.Equal(t, "keep", s.AccessToken(), "a failed login leaves the previous session alone")
}

func TestInvalidate(t *testing.T) {
	t.Run("stale token is ignored", func(t *testing.T) {
		d := &recordingDelegate{}
		s, err := sessions.New(testClientID, d)
		require.NoError(t, err)
		require.NoError(t, s.Login("new", time.Time{}))

		require.False(t, s.Invalidate("old"))
		require.False(t, s.Invalidate(""))
		require.Equal(t, int32(0), d.invalidated.Load())
		require.True(t, s.IsValid())
	})

	t.Run("concurrent reports fire once", func(t *testing.T) {
		d := &recordingDelegate{}
		repo := sessions.NewInMemoryRepo()
		s, err := sessions.New(testClientID, d, sessions.WithRepo(repo))
		require.NoError(t, err)
		require.NoError(t, s.Login("tok", time.Time{}))

		var wg sync.WaitGroup
		var cleared atomic.Int32
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Invalidate("tok") {
					cleared.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), cleared.Load())
		require.Equal(t, int32(1), d.invalidated.Load())
		require.False(t, s.IsValid())
		_, err = repo.Load(testClientID)
		require.ErrorIs(t, err, fgerrors.ErrNotFound)
	})
}

func TestRestore(t *testing.T) {
	clock := newClock()

	t.Run("no repo", func(t *testing.T) {
		s, err := sessions.New(testClientID, nil)
		require.NoError(t, err)
		ok, err := s.Restore()
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("nothing stored", func(t *testing.T) {
		s, err := sessions.New(testClientID, nil, sessions.WithRepo(sessions.NewInMemoryRepo()))
		require.NoError(t, err)
		ok, err := s.Restore()
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("valid record", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		require.NoError(t, repo.Save(testClientID, sessions.Record{
			AccessToken: "stored",
			ExpiresAt:   clock.Now().Add(time.Hour),
			Permissions: []string{"basic", "basic", "offline_access"},
		}))
		d := &recordingDelegate{}
		s, err := sessions.New(testClientID, d, sessions.WithRepo(repo), sessions.WithClock(clock.Now))
		require.NoError(t, err)

		ok, err := s.Restore()
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, s.IsValid())
		require.Equal(t, []string{"basic", "offline_access"}, s.Permissions())
		require.Equal(t, int32(0), d.logins.Load(), "restore is silent")
	})

	t.Run("expired record is deleted", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		require.NoError(t, repo.Save(testClientID, sessions.Record{
			AccessToken: "stale",
			ExpiresAt:   clock.Now().Add(-time.Second),
		}))
		s, err := sessions.New(testClientID, nil, sessions.WithRepo(repo), sessions.WithClock(clock.Now))
		require.NoError(t, err)

		ok, err := s.Restore()
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, s.IsValid())
		_, err = repo.Load(testClientID)
		require.ErrorIs(t, err, fgerrors.ErrNotFound)
	})
}

func TestPermissionsAndAccessors(t *testing.T) {
	s, err := sessions.New(testClientID, nil, sessions.WithURLSchemeSuffix("lite"))
	require.NoError(t, err)

	s.SetPermissions([]string{"basic", "", "read_tree", "basic"})
	require.Equal(t, []string{"basic", "read_tree"}, s.Permissions())

	perms := s.Permissions()
	perms[0] = "mutated"
	require.Equal(t, "basic", s.Permissions()[0], "callers get a copy")

	require.Equal(t, "lite", s.URLSchemeSuffix())
	s.SetURLSchemeSuffix("pro")
	require.Equal(t, "pro", s.URLSchemeSuffix())
	require.Equal(t, testClientID, s.ClientID())

	require.Nil(t, s.OAuth2Token())
	s.SetToken("tok", time.Time{})
	tok := s.OAuth2Token()
	require.Equal(t, "tok", tok.AccessToken)
	require.True(t, tok.Valid(), "oauth2 treats a zero expiry as non-expiring too")
}

func TestDelegateFuncs(t *testing.T) {
	var got []string
	d := sessions.DelegateFuncs{
		OnLogin:    func() { got = append(got, "login") },
		OnNotLogin: func(cancelled bool) { got = append(got, "notlogin") },
	}
	s, err := sessions.New(testClientID, d)
	require.NoError(t, err)

	require.NoError(t, s.Login("tok", time.Time{}))
	s.NotLogin(false)
	s.Logout()
	require.False(t, s.Invalidate(""))

	require.Equal(t, []string{"login", "notlogin"}, got)
}

// gatedRepo holds the first Save until release is closed.
type gatedRepo struct {
	*sessions.InMemoryRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepo) Save(clientID string, rec sessions.Record) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.InMemoryRepo.Save(clientID, rec)
}

func TestInvalidateDuringSlowSave(t *testing.T) {
	repo := &gatedRepo{
		InMemoryRepo: sessions.NewInMemoryRepo(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	s, err := sessions.New(testClientID, nil, sessions.WithRepo(repo))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, s.Login("stale", time.Time{}))
	}()
	<-repo.entered
	go func() {
		defer wg.Done()
		require.True(t, s.Invalidate("stale"))
	}()
	close(repo.release)
	wg.Wait()

	require.False(t, s.IsValid())
	_, err = repo.Load(testClientID)
	require.ErrorIs(t, err, fgerrors.ErrNotFound, "the stored session follows the invalidation")
}
