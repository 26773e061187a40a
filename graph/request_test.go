package graph_test

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-familygraph/graph"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/stretchr/testify/require"
)

type staticCreds struct {
	token string
	ok    bool
}

func (c staticCreds) Credentials() (string, bool) { return c.token, c.ok }

type captured struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newGraphServer(t *testing.T, status int, body string) (*httptest.Server, chan captured) {
	t.Helper()
	got := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- captured{method: r.Method, path: r.URL.Path, query: r.URL.Query(), header: r.Header.Clone(), body: b}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewRequest_Validation(t *testing.T) {
	c := graph.NewClient("https://graph.example.com", nil)
	require.Equal(t, "https://graph.example.com/", c.BaseURL())

	_, err := c.NewRequest("me", nil, "PATCH", nil)
	require.ErrorIs(t, err, fgerrors.ErrInvalidMethod)

	_, err = c.NewRequest("https://evil.example.com/me", nil, "", nil)
	require.ErrorIs(t, err, fgerrors.ErrInvalidPath)

	r, err := c.NewRequest("/me", nil, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, r.HTTPMethod)
	require.Equal(t, "me", r.GraphPath)
	require.Equal(t, graph.StateReady, r.State())
	require.NotEmpty(t, r.ID)
}

func TestNewRequest_DefaultParams(t *testing.T) {
	params := graph.Params{"fields": "name"}

	t.Run("valid session adds the token", func(t *testing.T) {
		c := graph.NewClient("https://graph.example.com/", staticCreds{token: "tok", ok: true})
		r, err := c.NewRequest("me", params, "get", nil)
		require.NoError(t, err)
		require.Equal(t, "json", r.Params["format"])
		require.Equal(t, "tok", r.Params["access_token"])
		require.Equal(t, "tok", r.AccessToken())
		require.NotContains(t, params, "format", "caller params are not modified")
	})

	t.Run("invalid session sends no token", func(t *testing.T) {
		c := graph.NewClient("https://graph.example.com/", staticCreds{token: "stale", ok: false})
		r, err := c.NewRequest("me", params, "", nil)
		require.NoError(t, err)
		require.NotContains(t, r.Params, "access_token")
		require.Empty(t, r.AccessToken())
	})

	t.Run("explicit token wins", func(t *testing.T) {
		c := graph.NewClient("https://graph.example.com/", staticCreds{token: "tok", ok: true})
		r, err := c.NewRequest("me", graph.Params{"access_token": "other", "format": "xml"}, "", nil)
		require.NoError(t, err)
		require.Equal(t, "other", r.Params["access_token"])
		require.Equal(t, "xml", r.Params["format"])
		require.Equal(t, "other", r.AccessToken())
	})
}

func TestURL_GetDropsBinary(t *testing.T) {
	c := graph.NewClient("https://graph.example.com/", nil)
	r, err := c.NewRequest("me/photos?limit=5", graph.Params{"type": "large", "n": 3, "blob": []byte{1, 2}}, "", nil)
	require.NoError(t, err)

	raw, err := r.URL()
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "/me/photos", u.Path)
	q := u.Query()
	require.Equal(t, "large", q.Get("type"))
	require.Equal(t, "3", q.Get("n"))
	require.Equal(t, "5", q.Get("limit"))
	require.Equal(t, "json", q.Get("format"))
	require.False(t, q.Has("blob"))
}

func TestConnect_GetJSON(t *testing.T) {
	srv, got := newGraphServer(t, http.StatusOK, `{"id":"42","name":"Ada"}`)
	c := graph.NewClient(srv.URL, staticCreds{token: "tok", ok: true})

	var events []string
	var raw []byte
	d := graph.RequestDelegateFuncs{
		OnLoading:         func(*graph.Request) { events = append(events, "loading") },
		OnResponse:        func(_ *graph.Request, resp *http.Response) { events = append(events, "response") },
		OnLoadRawResponse: func(_ *graph.Request, body []byte) { events = append(events, "raw"); raw = body },
		OnLoad:            func(*graph.Request, any) { events = append(events, "load") },
		OnFailWithError:   func(*graph.Request, error) { events = append(events, "fail") },
	}
	r, err := c.NewRequest("me", graph.Params{"fields": "name"}, "", d)
	require.NoError(t, err)

	result, err := r.Connect(testContext(t))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "42", "name": "Ada"}, result)
	require.Equal(t, []string{"loading", "response", "raw", "load"}, events)
	require.Equal(t, `{"id":"42","name":"Ada"}`, string(raw))
	require.Equal(t, graph.StateComplete, r.State())

	req := <-got
	require.Equal(t, http.MethodGet, req.method)
	require.Equal(t, "/me", req.path)
	require.Equal(t, "tok", req.query.Get("access_token"))
	require.Equal(t, "json", req.query.Get("format"))
	require.Equal(t, "FamilyGraphGoSDK", req.header.Get("User-Agent"))

	_, err = r.Connect(testContext(t))
	require.Error(t, err, "a request connects once")

	res, err := r.Wait(testContext(t))
	require.NoError(t, err)
	require.Equal(t, result, res)
}

func TestConnect_NonJSONBody(t *testing.T) {
	srv, _ := newGraphServer(t, http.StatusOK, "plain text")
	r, err := graph.NewClient(srv.URL, nil).NewRequest("me", nil, "", nil)
	require.NoError(t, err)

	result, err := r.Connect(testContext(t))
	require.NoError(t, err)
	require.Equal(t, "plain text", result)
}

func TestConnect_NilHTTPClientUsesDefault(t *testing.T) {
	srv, _ := newGraphServer(t, http.StatusOK, `{"id":"1"}`)
	r, err := graph.NewClient(srv.URL, nil, graph.WithHTTPClient(nil)).NewRequest("me", nil, "", nil)
	require.NoError(t, err)

	result, err := r.Connect(testContext(t))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "1"}, result)
}

func TestConnect_PostMultipart(t *testing.T) {
	srv, got := newGraphServer(t, http.StatusOK, `true`)
	c := graph.NewClient(srv.URL, staticCreds{token: "tok", ok: true})
	r, err := c.NewRequest("me/photos", graph.Params{
		"message": "hello",
		"raw":     []byte("abc"),
		"photo":   graph.File{Name: "p.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
	}, http.MethodPost, nil)
	require.NoError(t, err)

	result, err := r.Connect(testContext(t))
	require.NoError(t, err)
	require.Equal(t, true, result)

	req := <-got
	require.Equal(t, http.MethodPost, req.method)
	require.Empty(t, req.query, "POST parameters travel in the body")

	mediaType, mparams, err := mime.ParseMediaType(req.header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)
	require.Equal(t, "3i2ndDfv2rTHiSisAbouNdArYfORhtTPEefj3q2f", mparams["boundary"])

	form, err := multipart.NewReader(strings.NewReader(string(req.body)), mparams["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, form.Value["message"])
	require.Equal(t, []string{"tok"}, form.Value["access_token"])
	require.Equal(t, []string{"json"}, form.Value["format"])

	require.Len(t, form.File["photo"], 1)
	require.Equal(t, "p.jpg", form.File["photo"][0].Filename)
	require.Equal(t, "image/jpeg", form.File["photo"][0].Header.Get("Content-Type"))
	require.Len(t, form.File["raw"], 1)
	require.Equal(t, "application/octet-stream", form.File["raw"][0].Header.Get("Content-Type"))
}

func TestConnect_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		invalidates bool
		check       func(t *testing.T, err error)
	}{
		{
			name:   "false body",
			status: http.StatusOK,
			body:   "false",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, fgerrors.ErrOperationFailed)
				require.Equal(t, "This operation can not be completed", err.Error())
			},
		},
		{
			name:        "graph oauth exception",
			status:      http.StatusBadRequest,
			body:        `{"error":{"type":"OAuthException","message":"Error validating access token","code":190}}`,
			invalidates: true,
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, "OAuthException", gerr.Type)
				require.Equal(t, int64(190), gerr.Code)
				require.Equal(t, "Error validating access token", gerr.Message)
			},
		},
		{
			name:   "graph error in a 200",
			status: http.StatusOK,
			body:   `{"error":{"type":"GraphMethodException","message":"Unsupported get request","code":100}}`,
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, int64(100), gerr.Code)
			},
		},
		{
			name:        "rest invalid token",
			status:      http.StatusOK,
			body:        `{"error_code":102,"error_msg":"Session key invalid"}`,
			invalidates: true,
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.True(t, gerr.REST)
				require.Equal(t, "Session key invalid", gerr.Message)
			},
		},
		{
			name:   "rest other error",
			status: http.StatusOK,
			body:   `{"error_code":4,"error_msg":"Too many calls"}`,
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, int64(4), gerr.Code)
			},
		},
		{
			name:        "oauth string error with 401",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_token","error_description":"expired"}`,
			invalidates: true,
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, "invalid_token", gerr.Type)
			},
		},
		{
			name:   "plain 500",
			status: http.StatusInternalServerError,
			body:   "oops",
			check: func(t *testing.T, err error) {
				var gerr *graph.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, http.StatusInternalServerError, gerr.StatusCode)
				require.Equal(t, "oops", gerr.Body)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newGraphServer(t, tc.status, tc.body)
			var invalidated []string
			c := graph.NewClient(srv.URL, staticCreds{token: "tok", ok: true},
				graph.WithTokenInvalidated(func(token string) { invalidated = append(invalidated, token) }))

			var delegateErr error
			r, err := c.NewRequest("me", nil, "", graph.RequestDelegateFuncs{
				OnFailWithError: func(_ *graph.Request, err error) { delegateErr = err },
				OnLoad:          func(*graph.Request, any) { t.Fatal("DidLoad on an error response") },
			})
			require.NoError(t, err)

			_, err = r.Connect(testContext(t))
			require.Error(t, err)
			require.Equal(t, err, delegateErr)
			require.Equal(t, graph.StateError, r.State())
			require.Equal(t, tc.invalidates, r.SessionDidExpire())
			if tc.invalidates {
				require.Equal(t, []string{"tok"}, invalidated)
			} else {
				require.Empty(t, invalidated)
			}
			tc.check(t, err)
		})
	}
}

func TestConnect_TransportError(t *testing.T) {
	srv, _ := newGraphServer(t, http.StatusOK, "{}")
	srv.Close()

	var failed bool
	r, err := graph.NewClient(srv.URL, nil).NewRequest("me", nil, "", graph.RequestDelegateFuncs{
		OnFailWithError: func(*graph.Request, error) { failed = true },
	})
	require.NoError(t, err)

	_, err = r.Connect(testContext(t))
	require.Error(t, err)
	require.True(t, failed)
	require.False(t, r.SessionDidExpire())
}

func TestWait_ContextDone(t *testing.T) {
	r, err := graph.NewClient("https://graph.example.com/", nil).NewRequest("me", nil, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
