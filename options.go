package familygraph

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-familygraph/dialog"
	"github.com/jrsteele09/go-familygraph/internal/config"
	"github.com/jrsteele09/go-familygraph/sessions"
)

// Endpoints are the remote URLs the client talks to. GraphURL and DialogURL
// are prefixes: graph paths and dialog actions are appended to them.
type Endpoints struct {
	GraphURL  string
	DialogURL string
	AuthURL   string
	TokenURL  string
	RevokeURL string
}

// DefaultEndpoints are the production Family Graph endpoints.
func DefaultEndpoints() Endpoints {
	d := config.Defaults()
	return Endpoints{
		GraphURL:  d.GraphURL,
		DialogURL: d.DialogURL,
		AuthURL:   d.AuthURL,
		TokenURL:  d.TokenURL,
	}
}

type options struct {
	httpClient     *http.Client
	browser        dialog.Browser
	repo           sessions.Repo
	now            func() time.Time
	suffix         string
	endpoints      Endpoints
	redirectPort   int
	clientSecret   string
	loginTimeout   time.Duration
	requestTimeout time.Duration
	appName        string
	env            string
}

type Option func(*options)

// WithHTTPClient sets the client used for Graph, token and revocation requests.
// A nil client keeps http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithBrowser replaces the system browser used for login and dialogs.
func WithBrowser(b dialog.Browser) Option {
	return func(o *options) { o.browser = b }
}

// WithRepo persists the session. A stored, unexpired session is restored by New.
func WithRepo(r sessions.Repo) Option {
	return func(o *options) { o.repo = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithURLSchemeSuffix distinguishes several apps sharing one client id.
func WithURLSchemeSuffix(suffix string) Option {
	return func(o *options) { o.suffix = suffix }
}

// WithEndpoints overrides the non-empty fields of e.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) {
		if e.GraphURL != "" {
			o.endpoints.GraphURL = e.GraphURL
		}
		if e.DialogURL != "" {
			o.endpoints.DialogURL = e.DialogURL
		}
		if e.AuthURL != "" {
			o.endpoints.AuthURL = e.AuthURL
		}
		if e.TokenURL != "" {
			o.endpoints.TokenURL = e.TokenURL
		}
		if e.RevokeURL != "" {
			o.endpoints.RevokeURL = e.RevokeURL
		}
	}
}

// WithRedirectPort fixes the loopback port redirects are received on.
// The authorization server must accept http://localhost:<port>/callback.
func WithRedirectPort(port int) Option {
	return func(o *options) { o.redirectPort = port }
}

func WithClientSecret(secret string) Option {
	return func(o *options) { o.clientSecret = secret }
}

func WithLoginTimeout(d time.Duration) Option {
	return func(o *options) { o.loginTimeout = d }
}

// WithRequestTimeout bounds each Graph request; 0 leaves them to the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithAppName is shown on the pages the browser lands on after a redirect.
func WithAppName(name string) Option {
	return func(o *options) { o.appName = name }
}

func WithEnv(env string) Option {
	return func(o *options) { o.env = env }
}

func defaultOptions() options {
	d := config.Defaults()
	return options{
		httpClient:     http.DefaultClient,
		browser:        dialog.SystemBrowser{},
		now:            time.Now,
		endpoints:      DefaultEndpoints(),
		loginTimeout:   d.LoginTimeout,
		requestTimeout: d.RequestTimeout,
		appName:        d.AppName,
		env:            d.Env,
	}
}
