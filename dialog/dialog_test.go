package dialog_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-familygraph/dialog"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/server"
	"github.com/stretchr/testify/require"
)

// followBrowser plays the dialog page: it reads redirect_uri from the opened
// URL and requests it with the given query. With no query it also does what
// the relay page script does for an empty fragment.
func followBrowser(t *testing.T, query string) (dialog.Browser, *[]string) {
	var mu sync.Mutex
	opened := []string{}
	return dialog.BrowserFunc(func(raw string) error {
		mu.Lock()
		opened = append(opened, raw)
		mu.Unlock()

		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		target := u.Query().Get("redirect_uri")
		if query != "" {
			target += "?" + query
		}
		go func() {
			hit(target)
			if query == "" {
				hit(target + "?" + server.ParamRelay + "=1")
			}
		}()
		return nil
	}), &opened
}

func hit(target string) {
	resp, err := http.Get(target)
	if err == nil {
		_ = resp.Body.Close()
	}
}

type recorder struct {
	events []string
	url    *url.URL
	err    error
}

func (r *recorder) delegate() dialog.DelegateFuncs {
	return dialog.DelegateFuncs{
		OnComplete:           func() { r.events = append(r.events, "complete") },
		OnCompleteWithURL:    func(u *url.URL) { r.events = append(r.events, "completeWithURL"); r.url = u },
		OnNotCompleteWithURL: func(u *url.URL) { r.events = append(r.events, "notCompleteWithURL"); r.url = u },
		OnNotComplete:        func() { r.events = append(r.events, "notComplete") },
		OnFailWithError:      func(err error) { r.events = append(r.events, "fail"); r.err = err },
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var target = dialog.Target{BaseURL: "https://accounts.example.com/dialog/", ClientID: "app-1"}

func TestURL(t *testing.T) {
	d := dialog.New("feed", url.Values{"message": {"hello"}, "client_id": {"spoofed"}}, nil)

	raw, err := d.URL(target, "http://localhost:1234/callback", "http://localhost:1234/cancel")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	require.Equal(t, "accounts.example.com", u.Host)
	require.Equal(t, "/dialog/feed", u.Path)
	q := u.Query()
	require.Equal(t, "touch", q.Get("display"))
	require.Equal(t, "http://localhost:1234/callback", q.Get("redirect_uri"))
	require.Equal(t, "http://localhost:1234/cancel", q.Get("cancel_url"))
	require.Equal(t, "app-1", q.Get("client_id"))
	require.Equal(t, "hello", q.Get("message"))
	require.False(t, q.Has("access_token"), "no token without a valid session")

	withToken := target
	withToken.AccessToken = "tok"
	raw, err = d.URL(withToken, "http://localhost:1234/callback", "")
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "tok", u.Query().Get("access_token"))
	require.False(t, u.Query().Has("cancel_url"))

	_, err = dialog.New("", nil, nil).URL(target, "x", "")
	require.Error(t, err)
}

func TestNewCopiesParams(t *testing.T) {
	params := url.Values{"a": {"1"}}
	d := dialog.New("feed", params, nil)
	params.Set("a", "2")
	require.Equal(t, "1", d.Params.Get("a"))
	require.NotEmpty(t, d.ID)
}

func TestShow_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		events  []string
		wantErr bool
	}{
		{name: "complete", query: "post_id=42", events: []string{"completeWithURL", "complete"}},
		{name: "bare redirect", query: "", events: []string{"completeWithURL", "complete"}},
		{name: "user denied", query: "error_reason=user_denied", events: []string{"notCompleteWithURL", "notComplete"}},
		{name: "access denied", query: "error=access_denied", events: []string{"notCompleteWithURL", "notComplete"}},
		{name: "error code", query: "error_code=100&error_msg=bad+param", events: []string{"fail"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := followBrowser(t, tc.query)
			r := dialog.NewRunner(b, 0)
			rec := &recorder{}
			d := dialog.New("feed", nil, rec.delegate())

			err := d.Show(testContext(t), r, target)
			require.Equal(t, tc.events, rec.events)
			if tc.wantErr {
				var derr *dialog.DialogError
				require.ErrorAs(t, err, &derr)
				require.Equal(t, "100", derr.Code)
				require.Equal(t, "bad param", derr.Message)
				require.Equal(t, err, rec.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestShow_CompleteCarriesURL(t *testing.T) {
	b, opened := followBrowser(t, "post_id=42")
	r := dialog.NewRunner(b, 0)
	rec := &recorder{}

	require.NoError(t, dialog.New("feed", nil, rec.delegate()).Show(testContext(t), r, target))
	require.Len(t, *opened, 1)
	require.Equal(t, "42", rec.url.Query().Get("post_id"))
}

func TestShow_UserDismissesPage(t *testing.T) {
	// The page sends the browser to cancel_url, as a close button would.
	b := dialog.BrowserFunc(func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		go hit(u.Query().Get("cancel_url"))
		return nil
	})
	rec := &recorder{}

	err := dialog.New("feed", nil, rec.delegate()).Show(testContext(t), dialog.NewRunner(b, 0), target)
	require.NoError(t, err)
	require.Equal(t, []string{"notCompleteWithURL", "notComplete"}, rec.events)
	require.Equal(t, server.RouteCancel, rec.url.Path)
}

func TestShow_BrowserError(t *testing.T) {
	b := dialog.BrowserFunc(func(string) error { return fgerrors.ErrBrowser })
	rec := &recorder{}

	err := dialog.New("feed", nil, rec.delegate()).Show(testContext(t), dialog.NewRunner(b, 0), target)
	require.ErrorIs(t, err, fgerrors.ErrBrowser)
	require.Equal(t, []string{"fail"}, rec.events)
}

func TestShow_ContextCancelled(t *testing.T) {
	b := dialog.BrowserFunc(func(string) error { return nil })
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := dialog.New("feed", nil, rec.delegate()).Show(ctx, dialog.NewRunner(b, 0), target)
	require.ErrorIs(t, err, fgerrors.ErrDialogDismissed)
	require.Equal(t, []string{"notComplete"}, rec.events)
}

func TestRunner_NewDialogDismissesCurrent(t *testing.T) {
	opened := make(chan struct{}, 1)
	idle := dialog.BrowserFunc(func(string) error {
		opened <- struct{}{}
		return nil
	})
	r := dialog.NewRunner(idle, 0)

	first := &recorder{}
	done := make(chan error, 1)
	go func() {
		done <- dialog.New("feed", nil, first.delegate()).Show(testContext(t), r, target)
	}()
	<-opened

	// The second run replaces the first; its own wait is ended with Dismiss.
	go func() {
		<-opened
		r.Dismiss()
	}()
	second := &recorder{}
	err := dialog.New("apprequests", nil, second.delegate()).Show(testContext(t), r, target)
	require.ErrorIs(t, err, fgerrors.ErrDialogDismissed)

	require.ErrorIs(t, <-done, fgerrors.ErrDialogDismissed)
	require.Equal(t, []string{"notComplete"}, first.events)
	require.Equal(t, []string{"notComplete"}, second.events)
}
