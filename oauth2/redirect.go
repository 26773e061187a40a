package oauth2

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// RedirectParams are the OAuth parameters carried by a redirect back to the app.
// Implicit-flow redirects carry them in the fragment, code-flow and dialog
// redirects in the query.
type RedirectParams struct {
	AccessToken      string
	ExpiresIn        string
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
	ErrorCode        string
	ErrorMessage     string

	// Raw holds every parameter, fragment values winning over query values.
	Raw url.Values
}

// ParseRedirect reads the fragment first, then fills anything missing from the query.
func ParseRedirect(u *url.URL) RedirectParams {
	raw := url.Values{}
	if u == nil {
		return RedirectParams{Raw: raw}
	}
	if frag, err := url.ParseQuery(u.EscapedFragment()); err == nil {
		for k, v := range frag {
			raw[k] = v
		}
	}
	for k, v := range u.Query() {
		if _, ok := raw[k]; !ok {
			raw[k] = v
		}
	}
	return RedirectParams{
		AccessToken:      raw.Get(ParamAccessToken),
		ExpiresIn:        raw.Get(ParamExpiresIn),
		Code:             raw.Get(ParamCode),
		State:            raw.Get(ParamState),
		Error:            raw.Get(ParamError),
		ErrorReason:      raw.Get(ParamErrorReason),
		ErrorDescription: raw.Get(ParamErrorDescription),
		ErrorCode:        raw.Get(ParamErrorCode),
		ErrorMessage:     raw.Get(ParamErrorMessage),
		Raw:              raw,
	}
}

func (p RedirectParams) HasToken() bool {
	return p.AccessToken != ""
}

func (p RedirectParams) HasCode() bool {
	return p.Code != ""
}

func (p RedirectParams) IsError() bool {
	return p.Error != "" || p.ErrorReason != "" || p.ErrorCode != ""
}

// IsCancelled reports a user decision (dismiss or deny), not a failure.
func (p RedirectParams) IsCancelled() bool {
	return p.ErrorReason == ErrorReasonUserDenied || p.Error == ErrorAccessDenied
}

// Expiry converts expires_in to an absolute time. Absent, zero, negative or
// malformed values mean the token never expires, reported as the zero time.
func (p RedirectParams) Expiry(now time.Time) time.Time {
	return ExpiryFromSeconds(p.ExpiresIn, now)
}

// ExpiryFromSeconds is Expiry for a bare expires_in value.
func ExpiryFromSeconds(expiresIn string, now time.Time) time.Time {
	if expiresIn == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(secs) * time.Second)
}

// Err describes the error carried by the redirect, nil when there is none.
func (p RedirectParams) Err() error {
	if !p.IsError() {
		return nil
	}
	code := p.Error
	if code == "" {
		code = p.ErrorCode
	}
	if code == "" {
		code = p.ErrorReason
	}
	desc := p.ErrorDescription
	if desc == "" {
		desc = p.ErrorMessage
	}
	if desc == "" {
		return fmt.Errorf("authorization error: %s", code)
	}
	return fmt.Errorf("authorization error: %s: %s", code, desc)
}
