package dialog

import (
	"context"
	"net/url"
	"sync"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/server"
	"github.com/rs/zerolog/log"
)

// Outcome is the redirect a dialog ended with.
type Outcome struct {
	URL       *url.URL
	Cancelled bool
}

// URLBuilder returns the page to open, given where the browser must be sent back to.
type URLBuilder func(redirectURL, cancelURL string) (string, error)

// Runner opens pages in a browser and waits for the redirect back. At most
// one page is shown at a time: starting a run dismisses the one in progress.
type Runner struct {
	browser Browser
	port    int
	opts    []server.Option

	mu      sync.Mutex
	current *run
}

type run struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// NewRunner returns a Runner that listens for redirects on localhost:port (0 for any free port).
func NewRunner(b Browser, port int, opts ...server.Option) *Runner {
	if b == nil {
		b = SystemBrowser{}
	}
	return &Runner{browser: b, port: port, opts: opts}
}

// Run opens the page built by build and blocks until the browser is
// redirected back, ctx is done, or another run dismisses this one.
func (r *Runner) Run(ctx context.Context, build URLBuilder) (Outcome, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	cur := &run{cancel: cancel, done: make(chan struct{})}
	r.replace(cur)
	defer r.clear(cur)
	if ctx.Err() != nil {
		return Outcome{}, context.Cause(ctx)
	}

	srv, err := server.New(r.port, r.opts...)
	if err != nil {
		return Outcome{}, fgerrors.Wrapf(err, "[dialog Run] redirect listener")
	}
	defer srv.Shutdown()

	pageURL, err := build(srv.RedirectURL(), srv.CancelURL())
	if err != nil {
		return Outcome{}, fgerrors.Wrapf(err, "[dialog Run] build url")
	}
	// Only the listener address is logged; the page URL may carry an access token.
	log.Debug().Str("redirect_url", srv.RedirectURL()).Msg("[dialog Run] opening browser")
	if err := r.browser.OpenURL(pageURL); err != nil {
		return Outcome{}, fgerrors.Wrapf(err, "[dialog Run] open browser")
	}

	res := srv.Result(ctx)
	if res.Err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return Outcome{}, cause
		}
		return Outcome{}, fgerrors.Wrapf(res.Err, "[dialog Run] redirect")
	}
	return Outcome{URL: res.URL, Cancelled: res.Cancelled}, nil
}

// Dismiss ends the run in progress, if any.
func (r *Runner) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.cancel(fgerrors.ErrDialogDismissed)
		r.current = nil
	}
}

// replace dismisses the previous run and waits for its listener to close,
// so a fixed redirect port can be reused.
func (r *Runner) replace(next *run) {
	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	if prev != nil {
		prev.cancel(fgerrors.ErrDialogDismissed)
		<-prev.done
	}
}

func (r *Runner) clear(done *run) {
	r.mu.Lock()
	if r.current == done {
		r.current = nil
	}
	r.mu.Unlock()
	close(done.done)
}
