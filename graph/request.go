package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	fgoauth2 "github.com/jrsteele09/go-familygraph/oauth2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	paramFormat      = "format"
	paramAccessToken = fgoauth2.ParamAccessToken
)

// State is where a request is in its lifecycle.
type State int

const (
	StateReady State = iota
	StateLoading
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request is a single Graph API call. It is connected once.
type Request struct {
	ID         string
	GraphPath  string
	Params     Params
	HTTPMethod string
	Delegate   RequestDelegate

	client *Client
	token  string

	mu               sync.Mutex
	state            State
	sessionDidExpire bool
	result           any
	err              error
	done             chan struct{}
}

func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SessionDidExpire reports whether the server rejected the request's access token.
func (r *Request) SessionDidExpire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionDidExpire
}

// AccessToken is the token the request was built with, empty when none.
func (r *Request) AccessToken() string {
	return r.token
}

// Done is closed once the request has completed or failed.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome of a finished request.
func (r *Request) Result() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

// Wait blocks until the request finishes or ctx is done.
func (r *Request) Wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return r.Result()
	}
}

// URL returns the request URL. For GET and DELETE it carries the
// parameters; binary values cannot be serialised and are left out.
func (r *Request) URL() (string, error) {
	u, err := url.Parse(r.client.baseURL + r.GraphPath)
	if err != nil {
		return "", fgerrors.Wrapf(fgerrors.ErrInvalidPath, "[graph URL] %v", err)
	}
	if r.hasBody() {
		return u.String(), nil
	}

	q := u.Query()
	for _, k := range r.Params.Keys() {
		v := r.Params[k]
		if isBinary(v) {
			log.Warn().Str("graph_path", r.GraphPath).Str("param", k).Msg("[graph URL] binary parameter can not be sent with " + r.HTTPMethod)
			continue
		}
		q.Set(k, stringValue(v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *Request) hasBody() bool {
	return r.HTTPMethod == http.MethodPost || r.HTTPMethod == http.MethodPut
}

// Connect sends the request and reports through the delegate. It blocks
// until the response is handled and returns the same result the delegate saw.
func (r *Request) Connect(ctx context.Context) (any, error) {
	r.mu.Lock()
	if r.state != StateReady {
		r.mu.Unlock()
		return nil, fmt.Errorf("[graph Connect] request %s already %s", r.ID, r.State())
	}
	r.state = StateLoading
	r.mu.Unlock()

	logger := log.With().Str("request_id", r.ID).Str("graph_path", r.GraphPath).Str("method", r.HTTPMethod).Logger()
	r.Delegate.RequestLoading(r)

	req, err := r.httpRequest(ctx)
	if err != nil {
		return r.fail(err)
	}
	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("[graph Connect] request failed")
		return r.fail(err)
	}
	defer resp.Body.Close()

	r.Delegate.DidReceiveResponse(r, resp)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return r.fail(fmt.Errorf("[graph Connect] read body: %w", err))
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("[graph Connect] response")
	r.Delegate.DidLoadRawResponse(r, body)

	if err := parseError(resp.StatusCode, body); err != nil {
		var gerr *GraphError
		if fgerrors.As(err, &gerr) && gerr.InvalidatesSession() {
			logger.Warn().Err(err).Msg("[graph Connect] access token rejected")
			r.mu.Lock()
			r.sessionDidExpire = true
			r.mu.Unlock()
			if r.client.onInvalidToken != nil && r.token != "" {
				r.client.onInvalidToken(r.token)
			}
		}
		return r.fail(err)
	}

	result := decode(body)
	r.finish(StateComplete, result, nil)
	r.Delegate.DidLoad(r, result)
	return result, nil
}

func (r *Request) fail(err error) (any, error) {
	r.finish(StateError, nil, err)
	r.Delegate.DidFailWithError(r, err)
	return nil, err
}

func (r *Request) finish(state State, result any, err error) {
	r.mu.Lock()
	r.state = state
	r.result = result
	r.err = err
	r.mu.Unlock()
	close(r.done)
}

func (r *Request) httpRequest(ctx context.Context) (*http.Request, error) {
	target, err := r.URL()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	if r.hasBody() {
		buf, ct, err := r.multipartBody()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	}

	req, err := http.NewRequestWithContext(ctx, r.HTTPMethod, target, body)
	if err != nil {
		return nil, fmt.Errorf("[graph httpRequest] failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.client.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// multipartBody writes string params as fields and binary params as file parts.
func (r *Request) multipartBody() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.SetBoundary(multipartBoundary); err != nil {
		return nil, "", err
	}

	for _, k := range r.Params.Keys() {
		var err error
		switch v := r.Params[k].(type) {
		case []byte:
			err = writeFile(w, k, File{Name: k, Data: v})
		case File:
			err = writeFile(w, k, v)
		case *File:
			if v != nil {
				err = writeFile(w, k, *v)
			}
		default:
			err = w.WriteField(k, stringValue(v))
		}
		if err != nil {
			return nil, "", fmt.Errorf("[graph multipartBody] %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, f File) error {
	name := f.Name
	if name == "" {
		name = field
	}
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(name)))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Data)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decode returns the JSON value of body, or the body as a string when it is not JSON.
func decode(body []byte) any {
	if gjson.ValidBytes(body) {
		return gjson.ParseBytes(body).Value()
	}
	return string(body)
}
