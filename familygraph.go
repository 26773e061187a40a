// Package familygraph is a client for the Family Graph API. It logs the user
// in through a browser, keeps the resulting access token and sends Graph
// requests and dialogs on the user's behalf.
package familygraph

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-familygraph/auth"
	"github.com/jrsteele09/go-familygraph/dialog"
	"github.com/jrsteele09/go-familygraph/graph"
	"github.com/jrsteele09/go-familygraph/internal/config"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/server"
	"github.com/jrsteele09/go-familygraph/sessions"
	"github.com/rs/zerolog/log"
)

// FamilyGraph is the entry point of the SDK. Methods are safe for concurrent use.
type FamilyGraph struct {
	opts       options
	session    *sessions.Session
	authorizer *auth.Authorizer
	graph      *graph.Client
	runner     *dialog.Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	requests map[*graph.Request]struct{}
}

// New returns a client for the app registered as clientID. delegate receives
// session events and may be nil.
func New(clientID string, delegate sessions.Delegate, opts ...Option) (*FamilyGraph, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sessOpts := []sessions.Option{
		sessions.WithURLSchemeSuffix(o.suffix),
		sessions.WithClock(o.now),
	}
	if o.repo != nil {
		sessOpts = append(sessOpts, sessions.WithRepo(o.repo))
	}
	session, err := sessions.New(clientID, delegate, sessOpts...)
	if err != nil {
		return nil, fgerrors.Wrapf(err, "[familygraph New]")
	}
	if o.repo != nil {
		if ok, err := session.Restore(); err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("[familygraph New] unable to restore session")
		} else if ok {
			log.Debug().Str("client_id", clientID).Msg("[familygraph New] session restored")
		}
	}

	runner := dialog.NewRunner(o.browser, o.redirectPort,
		server.WithAppName(o.appName),
		server.WithEnv(o.env),
	)
	authorizer, err := auth.New(session, runner, auth.Endpoints{
		AuthURL:   o.endpoints.AuthURL,
		TokenURL:  o.endpoints.TokenURL,
		RevokeURL: o.endpoints.RevokeURL,
	},
		auth.WithHTTPClient(o.httpClient),
		auth.WithClientSecret(o.clientSecret),
		auth.WithLoginTimeout(o.loginTimeout),
		auth.WithNowTime(o.now),
	)
	if err != nil {
		return nil, fgerrors.Wrapf(err, "[familygraph New]")
	}

	ctx, cancel := context.WithCancel(context.Background())
	fg := &FamilyGraph{
		opts:       o,
		session:    session,
		authorizer: authorizer,
		runner:     runner,
		ctx:        ctx,
		cancel:     cancel,
		requests:   make(map[*graph.Request]struct{}),
	}
	fg.graph = graph.NewClient(o.endpoints.GraphURL, session,
		graph.WithHTTPClient(o.httpClient),
		graph.WithTokenInvalidated(func(token string) { session.Invalidate(token) }),
	)
	return fg, nil
}

// NewFromConfig builds a client from cfg. When cfg names an issuer, the
// authorize, token and revocation endpoints are discovered from it. opts are
// applied last and win over cfg.
func NewFromConfig(ctx context.Context, cfg config.Config, delegate sessions.Delegate, opts ...Option) (*FamilyGraph, error) {
	endpoints := Endpoints{
		GraphURL:  cfg.GetGraphURL(),
		DialogURL: cfg.GetDialogURL(),
		AuthURL:   cfg.GetAuthURL(),
		TokenURL:  cfg.GetTokenURL(),
		RevokeURL: cfg.GetRevokeURL(),
	}

	if issuer := cfg.GetIssuerURL(); issuer != "" {
		o := defaultOptions()
		for _, opt := range opts {
			opt(&o)
		}
		discovered, err := auth.Discover(ctx, issuer, o.httpClient)
		if err != nil {
			return nil, fgerrors.Wrapf(err, "[familygraph NewFromConfig]")
		}
		// Discovered endpoints win; configured ones fill what the issuer does not advertise.
		merged := discovered.Merge(auth.Endpoints{
			AuthURL:   endpoints.AuthURL,
			TokenURL:  endpoints.TokenURL,
			RevokeURL: endpoints.RevokeURL,
		})
		endpoints.AuthURL, endpoints.TokenURL, endpoints.RevokeURL = merged.AuthURL, merged.TokenURL, merged.RevokeURL
	}

	base := []Option{
		WithEndpoints(endpoints),
		WithURLSchemeSuffix(cfg.GetURLSchemeSuffix()),
		WithRedirectPort(cfg.GetRedirectPort()),
		WithClientSecret(cfg.GetClientSecret()),
		WithLoginTimeout(cfg.GetLoginTimeout()),
		WithRequestTimeout(cfg.GetRequestTimeout()),
		WithAppName(cfg.GetAppName()),
		WithEnv(cfg.GetEnv()),
	}
	return New(cfg.GetClientID(), delegate, append(base, opts...)...)
}

// Session exposes the underlying session.
func (fg *FamilyGraph) Session() *sessions.Session {
	return fg.session
}

func (fg *FamilyGraph) IsSessionValid() bool {
	return fg.session.IsValid()
}

func (fg *FamilyGraph) AccessToken() string {
	return fg.session.AccessToken()
}

// ExpirationDate is the zero time for tokens that never expire.
func (fg *FamilyGraph) ExpirationDate() time.Time {
	return fg.session.ExpirationDate()
}

func (fg *FamilyGraph) Permissions() []string {
	return fg.session.Permissions()
}

func (fg *FamilyGraph) URLSchemeSuffix() string {
	return fg.session.URLSchemeSuffix()
}

func (fg *FamilyGraph) SetURLSchemeSuffix(suffix string) {
	fg.session.SetURLSchemeSuffix(suffix)
}

// SetSessionDelegate replaces the receiver of session events.
func (fg *FamilyGraph) SetSessionDelegate(d sessions.Delegate) {
	fg.session.SetDelegate(d)
}

// Endpoints returns the endpoints in use, after discovery.
func (fg *FamilyGraph) Endpoints() Endpoints {
	e := fg.opts.endpoints
	ae := fg.authorizer.Endpoints()
	e.AuthURL, e.TokenURL, e.RevokeURL = ae.AuthURL, ae.TokenURL, ae.RevokeURL
	return e
}

// Authorize starts the login flow for permissions and blocks until it ends.
// The session delegate receives DidLogin or DidNotLogin.
func (fg *FamilyGraph) Authorize(ctx context.Context, permissions []string) error {
	if err := fg.checkOpen(); err != nil {
		return err
	}
	ctx, stop := fg.bind(ctx)
	defer stop()
	return fg.authorizer.Authorize(ctx, permissions)
}

// HandleOpenURL completes a login from a redirect delivered to the app's
// fg<client id><suffix>://authorize scheme. It returns false when u is not for this client.
func (fg *FamilyGraph) HandleOpenURL(ctx context.Context, u *url.URL) bool {
	return fg.authorizer.HandleOpenURL(ctx, u)
}

// Logout clears the session and its stored copy, then notifies the delegate.
// When a revocation endpoint is configured the token is revoked first; a
// failed revocation is returned but does not keep the session alive.
func (fg *FamilyGraph) Logout(ctx context.Context) error {
	var err error
	if token := fg.session.AccessToken(); token != "" {
		if rerr := fg.authorizer.Revoke(ctx, token); rerr != nil && !fgerrors.Is(rerr, fgerrors.ErrUnsupported) {
			log.Warn().Err(rerr).Msg("[familygraph Logout] token revocation failed")
			err = rerr
		}
	}
	fg.session.Logout()
	return err
}

// Close dismisses any open dialog, cancels in-flight requests and waits for
// their callbacks. The client cannot be used afterwards.
func (fg *FamilyGraph) Close() error {
	fg.mu.Lock()
	if fg.closed {
		fg.mu.Unlock()
		return nil
	}
	fg.closed = true
	fg.mu.Unlock()

	fg.cancel()
	fg.runner.Dismiss()
	fg.wg.Wait()
	return nil
}

func (fg *FamilyGraph) checkOpen() error {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	if fg.closed {
		return fgerrors.ErrClosed
	}
	return nil
}

// bind returns a context that is also cancelled by Close.
func (fg *FamilyGraph) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(fg.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
