// Package auth runs the login flow: it opens the authorize page, receives the
// redirect and turns it into a logged in session.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-familygraph/auth/flowstate"
	"github.com/jrsteele09/go-familygraph/dialog"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	fgoauth2 "github.com/jrsteele09/go-familygraph/oauth2"
	"github.com/jrsteele09/go-familygraph/sessions"
	"github.com/jrsteele09/go-familygraph/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	stateLength          = 32
	defaultLoginTimeout  = 5 * time.Minute
	defaultFlowStateLife = 15 * time.Minute
)

// Endpoints are the authorization server URLs.
type Endpoints struct {
	AuthURL   string
	TokenURL  string
	RevokeURL string
}

// Authorizer logs a session in. It is safe for concurrent use, though the
// runner shows only one authorize page at a time.
type Authorizer struct {
	session      *sessions.Session
	runner       *dialog.Runner
	endpoints    Endpoints
	clientSecret string
	flows        flowstate.Repo
	validator    *Validator
	httpClient   *http.Client
	loginTimeout time.Duration
	nowTime      func() time.Time
}

type Option func(*Authorizer)

// WithHTTPClient sets the client used for the token and revocation endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authorizer) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithClientSecret makes the token exchange authenticate as a confidential client.
func WithClientSecret(secret string) Option {
	return func(a *Authorizer) { a.clientSecret = secret }
}

// WithFlowRepo replaces the in-memory pending flow store.
func WithFlowRepo(r flowstate.Repo) Option {
	return func(a *Authorizer) { a.flows = r }
}

// WithLoginTimeout bounds how long Authorize waits for the user.
func WithLoginTimeout(d time.Duration) Option {
	return func(a *Authorizer) { a.loginTimeout = d }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(a *Authorizer) { a.nowTime = nowFunc }
}

// New returns an Authorizer for session. runner shows the authorize page.
func New(session *sessions.Session, runner *dialog.Runner, endpoints Endpoints, opts ...Option) (*Authorizer, error) {
	if session == nil {
		return nil, fgerrors.Wrapf(fgerrors.ErrInvalidSession, "[auth New] session is required")
	}
	if runner == nil {
		return nil, fgerrors.Wrapf(fgerrors.ErrInternal, "[auth New] dialog runner is required")
	}
	if endpoints.AuthURL == "" || endpoints.TokenURL == "" {
		return nil, fgerrors.Wrapf(fgerrors.ErrInternal, "[auth New] authorize and token urls are required")
	}

	a := &Authorizer{
		session:      session,
		runner:       runner,
		endpoints:    endpoints,
		httpClient:   http.DefaultClient,
		loginTimeout: defaultLoginTimeout,
		nowTime:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.flows == nil {
		a.flows = flowstate.NewInMemoryRepo(defaultFlowStateLife).WithClock(a.nowTime)
	}
	a.validator = NewValidator(session.ClientID(), session.URLSchemeSuffix)
	return a, nil
}

// Endpoints returns the authorization server URLs in use.
func (a *Authorizer) Endpoints() Endpoints {
	return a.endpoints
}

// Authorize asks the user to log in and grant permissions. It blocks until the
// redirect is handled, the user gives up or the login timeout passes. The
// session delegate is told the outcome; the returned error mirrors it.
func (a *Authorizer) Authorize(ctx context.Context, permissions []string) error {
	perms, err := a.validator.ValidatePermissions(permissions)
	if err != nil {
		a.session.NotLogin(false)
		return err
	}
	a.session.SetPermissions(perms)

	if a.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.loginTimeout)
		defer cancel()
	}

	state, err := generateRandomString(stateLength)
	if err != nil {
		a.session.NotLogin(false)
		return fgerrors.Wrapf(err, "[auth Authorize] state")
	}
	verifier := oauth2.GenerateVerifier()

	out, err := a.runner.Run(ctx, func(redirectURL, cancelURL string) (string, error) {
		if err := a.flows.Upsert(state, &flowstate.FlowState{
			CodeVerifier: verifier,
			RedirectURL:  redirectURL,
			Permissions:  perms,
			CreatedAt:    a.nowTime(),
		}); err != nil {
			return "", err
		}
		return a.AuthCodeURL(state, verifier, redirectURL, perms, oauth2.SetAuthURLParam(fgoauth2.ParamCancelURL, cancelURL)), nil
	})
	if err != nil {
		_ = a.flows.Delete(state)
		if fgerrors.Is(err, fgerrors.ErrDialogDismissed) || fgerrors.Is(err, context.Canceled) {
			log.Info().Msg("[auth Authorize] login dismissed")
			a.session.NotLogin(true)
			return fgerrors.Wrapf(fgerrors.ErrLoginCancelled, "[auth Authorize]")
		}
		log.Error().Err(err).Msg("[auth Authorize] login did not complete")
		a.session.NotLogin(false)
		return fgerrors.Wrapf(fgerrors.ErrLoginFailed, "[auth Authorize] %v", err)
	}
	if out.Cancelled {
		_ = a.flows.Delete(state)
		a.session.NotLogin(true)
		return fgerrors.Wrapf(fgerrors.ErrLoginCancelled, "[auth Authorize]")
	}
	return a.handleRedirect(ctx, out.URL, state)
}

// AuthCodeURL builds the authorize page URL with a S256 PKCE challenge.
func (a *Authorizer) AuthCodeURL(state, verifier, redirectURL string, perms []string, extra ...oauth2.AuthCodeOption) string {
	opts := append([]oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam(fgoauth2.ParamDisplay, fgoauth2.Display),
	}, extra...)
	return a.config(redirectURL, perms).AuthCodeURL(state, opts...)
}

// HandleOpenURL processes a redirect delivered to the app, either on its
// custom scheme or on the loopback callback. It returns false when u is not
// meant for this client; otherwise the session delegate reports the outcome.
func (a *Authorizer) HandleOpenURL(ctx context.Context, u *url.URL) bool {
	if err := a.validator.ValidateRedirect(u); err != nil {
		log.Debug().Err(err).Msg("[auth HandleOpenURL] ignoring url")
		return false
	}
	_ = a.handleRedirect(ctx, u, "")
	return true
}

// handleRedirect turns a redirect into a login. When expectedState is set the
// redirect must carry that state; otherwise a state, if present, must belong
// to a pending flow.
func (a *Authorizer) handleRedirect(ctx context.Context, u *url.URL, expectedState string) error {
	p := fgoauth2.ParseRedirect(u)

	switch {
	case p.HasToken():
		if err := a.checkState(p, expectedState); err != nil {
			return err
		}
		if p.State != "" {
			if _, err := a.flows.Take(p.State); err != nil {
				log.Warn().Err(err).Msg("[auth handleRedirect] unknown or expired state")
				a.session.NotLogin(false)
				return fgerrors.Wrapf(err, "[auth handleRedirect]")
			}
		}
		expiry := p.Expiry(a.nowTime())
		if expiry.IsZero() {
			expiry = token.ExpiryOr(p.AccessToken, time.Time{})
		}
		return a.login(p.AccessToken, expiry)

	case p.HasCode():
		if err := a.checkState(p, expectedState); err != nil {
			return err
		}
		return a.exchange(ctx, p)

	case p.IsError():
		cancelled := p.IsCancelled()
		if p.State != "" {
			_ = a.flows.Delete(p.State)
		}
		log.Info().Bool("cancelled", cancelled).Str("error", p.Error).Str("error_reason", p.ErrorReason).Msg("[auth] login did not complete")
		a.session.NotLogin(cancelled)
		if cancelled {
			return fgerrors.Wrapf(fgerrors.ErrLoginCancelled, "[auth handleRedirect]")
		}
		return fgerrors.Join(fgerrors.ErrLoginFailed, p.Err())

	default:
		a.session.NotLogin(false)
		return fgerrors.Wrapf(fgerrors.ErrLoginFailed, "[auth handleRedirect] redirect carried no token, code or error")
	}
}

func (a *Authorizer) checkState(p fgoauth2.RedirectParams, expectedState string) error {
	if expectedState == "" || p.State == expectedState {
		return nil
	}
	_ = a.flows.Delete(expectedState)
	a.session.NotLogin(false)
	if p.State == "" {
		return fgerrors.Wrapf(fgerrors.ErrMissingState, "[auth checkState]")
	}
	log.Warn().Msg("[auth checkState] redirect state does not match the login in progress")
	return fgerrors.Wrapf(fgerrors.ErrStateMismatch, "[auth checkState]")
}

func (a *Authorizer) exchange(ctx context.Context, p fgoauth2.RedirectParams) error {
	if p.State == "" {
		a.session.NotLogin(false)
		return fgerrors.Wrapf(fgerrors.ErrMissingState, "[auth exchange]")
	}
	flow, err := a.flows.Take(p.State)
	if err != nil {
		log.Warn().Err(err).Msg("[auth exchange] unknown or expired state")
		a.session.NotLogin(false)
		return fgerrors.Wrapf(err, "[auth exchange]")
	}
	if err := a.validator.ValidateCodeVerifier(flow.CodeVerifier); err != nil {
		a.session.NotLogin(false)
		return fgerrors.Wrapf(err, "[auth exchange]")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.config(flow.RedirectURL, flow.Permissions).Exchange(ctx, p.Code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		log.Error().Err(err).Msg("[auth exchange] token request failed")
		a.session.NotLogin(false)
		return fgerrors.Join(fgerrors.ErrLoginFailed, err)
	}

	// Granted scope may differ from what was asked for.
	if scope, ok := tok.Extra(fgoauth2.ParamScope).(string); ok && scope != "" {
		a.session.SetPermissions(strings.FieldsFunc(scope, func(r rune) bool { return r == ' ' || r == ',' }))
	}
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = token.ExpiryOr(tok.AccessToken, time.Time{})
	}
	return a.login(tok.AccessToken, expiry)
}

func (a *Authorizer) login(accessToken string, expiry time.Time) error {
	if err := a.session.Login(accessToken, expiry); err != nil {
		a.session.NotLogin(false)
		return fgerrors.Join(fgerrors.ErrLoginFailed, err)
	}
	log.Info().Time("expires", expiry).Msg("[auth] logged in")
	return nil
}

func (a *Authorizer) config(redirectURL string, perms []string) *oauth2.Config {
	style := oauth2.AuthStyleInHeader
	if a.clientSecret == "" {
		style = oauth2.AuthStyleInParams
	}
	return &oauth2.Config{
		ClientID:     a.session.ClientID(),
		ClientSecret: a.clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.endpoints.AuthURL,
			TokenURL:  a.endpoints.TokenURL,
			AuthStyle: style,
		},
		RedirectURL: redirectURL,
		Scopes:      perms,
	}
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
