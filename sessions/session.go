package sessions

import (
	"sync"
	"time"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Session holds the access token and expiration for one client ID and reports
// login, logout and invalidation to its delegate.
//
// A session is valid when it has a token and either no expiration date or an
// expiration date in the future.
type Session struct {
	mu              sync.RWMutex
	clientID        string
	urlSchemeSuffix string
	accessToken     string
	expirationDate  time.Time // zero means the token never expires
	permissions     []string
	delegate        Delegate
	repo            Repo
	now             func() time.Time

	// persistMu orders repo writes; each write stores the state current at that moment.
	persistMu sync.Mutex
}

type Option func(*Session)

// WithURLSchemeSuffix lets several apps share one client ID with distinct URL schemes.
func WithURLSchemeSuffix(suffix string) Option {
	return func(s *Session) { s.urlSchemeSuffix = suffix }
}

// WithRepo persists the session on every change.
func WithRepo(repo Repo) Option {
	return func(s *Session) { s.repo = repo }
}

// WithClock replaces time.Now for validity checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty session. delegate may be nil.
func New(clientID string, delegate Delegate, opts ...Option) (*Session, error) {
	if clientID == "" {
		return nil, fgerrors.ErrMissingClientID
	}
	s := &Session{
		clientID: clientID,
		delegate: delegate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) ClientID() string {
	return s.clientID
}

func (s *Session) URLSchemeSuffix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urlSchemeSuffix
}

func (s *Session) SetURLSchemeSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlSchemeSuffix = suffix
}

func (s *Session) SetDelegate(d Delegate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate = d
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpirationDate returns the zero time for tokens that never expire.
func (s *Session) ExpirationDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expirationDate
}

func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.permissions...)
}

// SetPermissions stores the permissions requested by the next authorize call,
// dropping blanks and duplicates while keeping order.
func (s *Session) SetPermissions(perms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = dedupe(perms)
}

func (s *Session) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *Session) validLocked() bool {
	if s.accessToken == "" {
		return false
	}
	return s.expirationDate.IsZero() || s.now().Before(s.expirationDate)
}

// Credentials returns the token when the session is valid.
func (s *Session) Credentials() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return "", false
	}
	return s.accessToken, true
}

// OAuth2Token exposes the session as an oauth2 token for use with oauth2.StaticTokenSource
// and friends. It returns nil when there is no token.
func (s *Session) OAuth2Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken: s.accessToken,
		TokenType:   "Bearer",
		Expiry:      s.expirationDate,
	}
}

// SetToken replaces the token without notifying the delegate, for apps that
// keep the token themselves and restore it at startup.
func (s *Session) SetToken(token string, expiry time.Time) {
	s.mu.Lock()
	s.accessToken = token
	s.expirationDate = expiry
	s.mu.Unlock()
	s.persist()
}

// Login stores a freshly obtained token and fires DidLogin.
func (s *Session) Login(token string, expiry time.Time) error {
	if token == "" {
		return fgerrors.ErrMissingToken
	}
	s.mu.Lock()
	s.accessToken = token
	s.expirationDate = expiry
	d := s.delegate
	s.mu.Unlock()

	s.persist()
	log.Debug().Str("client_id", s.clientID).Time("expires", expiry).Msg("[sessions Login] logged in")
	if d != nil {
		d.DidLogin()
	}
	return nil
}

// NotLogin reports a login that ended without a token. State is left alone.
func (s *Session) NotLogin(cancelled bool) {
	log.Debug().Str("client_id", s.clientID).Bool("cancelled", cancelled).Msg("[sessions NotLogin] login did not complete")
	if d := s.getDelegate(); d != nil {
		d.DidNotLogin(cancelled)
	}
}

// Logout clears the token and fires DidLogout.
func (s *Session) Logout() {
	s.mu.Lock()
	s.accessToken = ""
	s.expirationDate = time.Time{}
	d := s.delegate
	s.mu.Unlock()

	s.persist()
	log.Debug().Str("client_id", s.clientID).Msg("[sessions Logout] logged out")
	if d != nil {
		d.DidLogout()
	}
}

// Invalidate clears the session if token is still the current token and fires
// SessionInvalidated. Reports about a token that was already replaced or
// cleared are ignored, so a burst of failing requests fires the callback once.
func (s *Session) Invalidate(token string) bool {
	s.mu.Lock()
	if token == "" || token != s.accessToken {
		s.mu.Unlock()
		return false
	}
	s.accessToken = ""
	s.expirationDate = time.Time{}
	d := s.delegate
	s.mu.Unlock()

	s.persist()
	log.Info().Str("client_id", s.clientID).Msg("[sessions Invalidate] session invalidated by server")
	if d != nil {
		d.SessionInvalidated()
	}
	return true
}

// Restore loads a persisted session. Expired records are deleted and reported as not restored.
func (s *Session) Restore() (bool, error) {
	if s.repo == nil {
		return false, nil
	}
	rec, err := s.repo.Load(s.clientID)
	if fgerrors.Is(err, fgerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fgerrors.Wrapf(err, "[sessions Restore] loading %s", s.clientID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !rec.ValidAt(s.now()) {
		if err := s.repo.Delete(s.clientID); err != nil && !fgerrors.Is(err, fgerrors.ErrNotFound) {
			return false, fgerrors.Wrapf(err, "[sessions Restore] deleting expired %s", s.clientID)
		}
		return false, nil
	}
	s.accessToken = rec.AccessToken
	s.expirationDate = rec.ExpiresAt
	if len(rec.Permissions) > 0 {
		s.permissions = dedupe(rec.Permissions)
	}
	return true, nil
}

func (s *Session) getDelegate() Delegate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegate
}

func (s *Session) recordLocked() Record {
	return Record{
		AccessToken: s.accessToken,
		ExpiresAt:   s.expirationDate,
		Permissions: append([]string(nil), s.permissions...),
		SavedAt:     s.now(),
	}
}

// persist writes the current state to the repo: the record when there is a
// token, a delete otherwise. Reading the state under persistMu keeps a slow
// save from overwriting a later logout or invalidation.
func (s *Session) persist() {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	rec := s.recordLocked()
	s.mu.RUnlock()

	if rec.AccessToken == "" {
		if err := s.repo.Delete(s.clientID); err != nil && !fgerrors.Is(err, fgerrors.ErrNotFound) {
			log.Error().Err(err).Str("client_id", s.clientID).Msg("[sessions persist] failed to delete session")
		}
		return
	}
	if err := s.repo.Save(s.clientID, rec); err != nil {
		log.Error().Err(err).Str("client_id", s.clientID).Msg("[sessions persist] failed to save session")
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
