package familygraph

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-familygraph/graph"
	"github.com/rs/zerolog/log"
)

// RequestWithGraphPath sends a GET for graphPath, e.g. "me" or "me/photos".
func (fg *FamilyGraph) RequestWithGraphPath(ctx context.Context, graphPath string, delegate graph.RequestDelegate) (*graph.Request, error) {
	return fg.RequestWithMethod(ctx, graphPath, nil, http.MethodGet, delegate)
}

// RequestWithParams sends a GET for graphPath with params.
func (fg *FamilyGraph) RequestWithParams(ctx context.Context, graphPath string, params graph.Params, delegate graph.RequestDelegate) (*graph.Request, error) {
	return fg.RequestWithMethod(ctx, graphPath, params, http.MethodGet, delegate)
}

// RequestWithMethod sends a request in the background and returns at once.
// The delegate is called from the request's goroutine; Request.Wait blocks
// for the result. A response rejecting the access token invalidates the session.
func (fg *FamilyGraph) RequestWithMethod(ctx context.Context, graphPath string, params graph.Params, method string, delegate graph.RequestDelegate) (*graph.Request, error) {
	r, err := fg.graph.NewRequest(graphPath, params, method, delegate)
	if err != nil {
		return nil, err
	}

	fg.mu.Lock()
	if fg.closed {
		fg.mu.Unlock()
		return nil, errClosed()
	}
	fg.requests[r] = struct{}{}
	fg.wg.Add(1)
	fg.mu.Unlock()

	go func() {
		defer fg.wg.Done()
		defer fg.untrack(r)

		reqCtx, stop := fg.bind(ctx)
		defer stop()
		if fg.opts.requestTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(reqCtx, fg.opts.requestTimeout)
			defer cancel()
		}
		if _, err := r.Connect(reqCtx); err != nil {
			log.Debug().Err(err).Str("request_id", r.ID).Str("graph_path", r.GraphPath).Msg("[familygraph Request] failed")
		}
	}()
	return r, nil
}

// InFlight reports the number of requests that have not finished yet.
func (fg *FamilyGraph) InFlight() int {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return len(fg.requests)
}

func (fg *FamilyGraph) untrack(r *graph.Request) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	delete(fg.requests, r)
}
