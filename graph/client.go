// Package graph issues requests against the Family Graph API.
package graph

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
)

const (
	defaultUserAgent = "FamilyGraphGoSDK"
	// multipartBoundary is fixed so request bodies are reproducible.
	multipartBoundary = "3i2ndDfv2rTHiSisAbouNdArYfORhtTPEefj3q2f"
)

// Credentials supplies the access token to attach to requests. ok is false
// when there is no valid session.
type Credentials interface {
	Credentials() (token string, ok bool)
}

// Client builds and sends Graph requests for one session.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	credentials    Credentials
	userAgent      string
	onInvalidToken func(token string)
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithTokenInvalidated is called with the token a request carried when the
// server reports that token as invalid.
func WithTokenInvalidated(f func(token string)) ClientOption {
	return func(cl *Client) { cl.onInvalidToken = f }
}

// NewClient returns a Client for the Graph API at baseURL. creds may be nil
// for unauthenticated requests.
func NewClient(baseURL string, creds Credentials, opts ...ClientOption) *Client {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		credentials: creds,
		userAgent:   defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a request for graphPath. params is copied; method
// defaults to GET. The access token is captured now, so a later logout does
// not change what the request sends.
func (c *Client) NewRequest(graphPath string, params Params, method string, delegate RequestDelegate) (*Request, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fgerrors.Wrapf(fgerrors.ErrInvalidMethod, "[graph NewRequest] %q", method)
	}
	if strings.Contains(graphPath, "://") {
		return nil, fgerrors.Wrapf(fgerrors.ErrInvalidPath, "[graph NewRequest] %q is not relative", graphPath)
	}
	if delegate == nil {
		delegate = RequestDelegateFuncs{}
	}

	p := params.Clone()
	if _, ok := p[paramFormat]; !ok {
		p[paramFormat] = "json"
	}
	token := ""
	if c.credentials != nil {
		if tok, ok := c.credentials.Credentials(); ok {
			token = tok
		}
	}
	if explicit, ok := p[paramAccessToken]; ok {
		token = stringValue(explicit)
	} else if token != "" {
		p[paramAccessToken] = token
	}

	return &Request{
		ID:         uuid.NewString(),
		GraphPath:  strings.TrimPrefix(graphPath, "/"),
		Params:     p,
		HTTPMethod: method,
		Delegate:   delegate,
		client:     c,
		token:      token,
		done:       make(chan struct{}),
	}, nil
}
