// Package dialog shows Family Graph dialogs (feed, apprequests, ...) in a
// browser and reports how they ended.
package dialog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/oauth2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dialog is a single dialog request. It is discarded once its delegate has
// been told how it ended.
type Dialog struct {
	ID       string
	Action   string
	Params   url.Values
	Delegate Delegate
}

// New returns a dialog for action. params is copied.
func New(action string, params url.Values, delegate Delegate) *Dialog {
	p := url.Values{}
	for k, v := range params {
		p[k] = append([]string(nil), v...)
	}
	if delegate == nil {
		delegate = DelegateFuncs{}
	}
	return &Dialog{
		ID:       uuid.NewString(),
		Action:   action,
		Params:   p,
		Delegate: delegate,
	}
}

// Target is where dialogs are served and who they are shown for.
type Target struct {
	BaseURL  string
	ClientID string
	// AccessToken is added only when non-empty, i.e. when the session is valid.
	AccessToken string
}

// URL builds the dialog page URL. The page sends the browser to redirectURI
// when it finishes and to cancelURL when the user dismisses it. Caller params
// cannot override the values the redirect depends on.
func (d *Dialog) URL(t Target, redirectURI, cancelURL string) (string, error) {
	if strings.TrimSpace(d.Action) == "" {
		return "", fmt.Errorf("[dialog URL] action is required")
	}
	base, err := url.Parse(t.BaseURL + strings.TrimPrefix(d.Action, "/"))
	if err != nil {
		return "", fgerrors.Wrapf(err, "[dialog URL] invalid dialog url")
	}

	q := base.Query()
	for k, v := range d.Params {
		q[k] = v
	}
	q.Set(oauth2.ParamDisplay, oauth2.Display)
	q.Set(oauth2.ParamRedirectURI, redirectURI)
	if cancelURL != "" {
		q.Set(oauth2.ParamCancelURL, cancelURL)
	} else {
		q.Del(oauth2.ParamCancelURL)
	}
	q.Set(oauth2.ParamClientID, t.ClientID)
	if t.AccessToken != "" {
		q.Set(oauth2.ParamAccessToken, t.AccessToken)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Show runs the dialog through r and reports the outcome to its delegate.
// It blocks until the dialog ends and returns the error the delegate saw, if any.
func (d *Dialog) Show(ctx context.Context, r *Runner, t Target) error {
	logger := log.With().Str("action", d.Action).Str("dialog_id", d.ID).Logger()

	out, err := r.Run(ctx, func(redirectURL, cancelURL string) (string, error) {
		return d.URL(t, redirectURL, cancelURL)
	})
	if err != nil {
		if fgerrors.Is(err, fgerrors.ErrDialogDismissed) || fgerrors.Is(err, context.Canceled) {
			logger.Debug().Msg("[dialog Show] dismissed")
			d.Delegate.DidNotComplete()
			return fgerrors.ErrDialogDismissed
		}
		logger.Error().Err(err).Msg("[dialog Show] failed")
		d.Delegate.DidFailWithError(err)
		return err
	}
	return d.report(out, logger)
}

func (d *Dialog) report(out Outcome, logger zerolog.Logger) error {
	params := oauth2.ParseRedirect(out.URL)
	switch {
	case out.Cancelled || params.IsCancelled():
		logger.Debug().Msg("[dialog Show] cancelled")
		d.Delegate.DidNotCompleteWithURL(out.URL)
		d.Delegate.DidNotComplete()
		return nil
	case params.ErrorCode != "" || params.Error != "":
		err := NewDialogError(params)
		logger.Warn().Err(err).Msg("[dialog Show] dialog reported an error")
		d.Delegate.DidFailWithError(err)
		return err
	default:
		d.Delegate.DidCompleteWithURL(out.URL)
		d.Delegate.DidComplete()
		return nil
	}
}
