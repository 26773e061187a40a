package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	fgoauth2 "github.com/jrsteele09/go-familygraph/oauth2"
)

// Revoke asks the authorization server to revoke accessToken (RFC 7009).
// It returns ErrUnsupported when no revocation endpoint is configured.
func (a *Authorizer) Revoke(ctx context.Context, accessToken string) error {
	if a.endpoints.RevokeURL == "" {
		return fgerrors.ErrUnsupported
	}
	if accessToken == "" {
		return fgerrors.ErrMissingToken
	}

	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {fgoauth2.ParamAccessToken},
	}
	if a.clientSecret == "" {
		form.Set(fgoauth2.ParamClientID, a.session.ClientID())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[auth Revoke] %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.clientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(a.session.ClientID()), url.QueryEscape(a.clientSecret))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[auth Revoke] %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("[auth Revoke] revocation endpoint returned %s", resp.Status)
	}
	return nil
}
