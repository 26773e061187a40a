// Package server runs the loopback HTTP receiver that stands in for the
// embedded web view: the system browser is sent to the authorize or dialog
// page, and the redirect back lands here.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of a redirect. Exactly one is delivered per Server.
type Result struct {
	// URL is the full redirect URL, including query parameters.
	URL *url.URL
	// Cancelled is set when the browser was sent to RouteCancel.
	Cancelled bool
	// Err is set when the server itself failed.
	Err error
}

type Server struct {
	env      string
	appName  string
	mux      *http.ServeMux
	routes   []string
	addr     string
	s        *http.Server
	resultCh chan Result

	complete *template.Template
	failed   *template.Template
	relay    *template.Template
}

type Option func(*Server)

// WithEnv enables route logging in DEV.
func WithEnv(env string) Option {
	return func(s *Server) { s.env = strings.ToUpper(env) }
}

// WithAppName sets the title shown on the result pages.
func WithAppName(name string) Option {
	return func(s *Server) { s.appName = name }
}

// New listens on localhost:port, or on a free port when port is 0, and starts serving.
func New(port int, opts ...Option) (*Server, error) {
	l, err := listen(port)
	if err != nil {
		return nil, fmt.Errorf("[server New] failed to listen: %w", err)
	}
	addr := l.Addr().String()

	s := &Server{
		appName:  "Family Graph",
		mux:      http.NewServeMux(),
		addr:     "http://localhost:" + addr[strings.LastIndex(addr, ":")+1:],
		resultCh: make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.parseTemplates(); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("[server New] %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	s.s = &http.Server{Handler: s, ReadHeaderTimeout: time.Second}

	go func() {
		if err := s.s.Serve(l); err != nil && err != http.ErrServerClosed {
			s.putResult(Result{Err: err})
		}
	}()
	return s, nil
}

func listen(port int) (net.Listener, error) {
	if port > 0 {
		return net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	}
	var l net.Listener
	var err error
	for i := 0; i < 10; i++ {
		if l, err = net.Listen("tcp", "localhost:0"); err == nil {
			return l, nil
		}
	}
	return nil, err
}

func (s *Server) parseTemplates() error {
	var err error
	if s.complete, err = ParseTemplate("complete.html"); err != nil {
		return err
	}
	if s.failed, err = ParseTemplate("failed.html"); err != nil {
		return err
	}
	s.relay, err = ParseTemplate("relay.html")
	return err
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Addr is the base URL the server answers on, e.g. http://localhost:53682.
func (s *Server) Addr() string {
	return s.addr
}

// RedirectURL is passed as redirect_uri.
func (s *Server) RedirectURL() string {
	return s.addr + RouteCallback
}

// CancelURL is where a dismissed dialog is sent.
func (s *Server) CancelURL() string {
	return s.addr + RouteCancel
}

// Result waits for the redirect. ctx deadline will be honored.
func (s *Server) Result(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case r := <-s.resultCh:
		return r
	}
}

// Shutdown stops the server. It must not be called from a handler.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.s.Shutdown(ctx)
}

// putResult keeps the first result only.
func (s *Server) putResult(r Result) bool {
	select {
	case s.resultCh <- r:
		return true
	default:
		return false
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Str("addr", s.addr).Msg("[server] route")
	}
}
