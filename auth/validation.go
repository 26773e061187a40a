package auth

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/server"
)

// authorizeHost is the host part of the app's custom-scheme redirect, fg<client id><suffix>://authorize.
const authorizeHost = "authorize"

// Validator decides which redirects belong to this client.
type Validator struct {
	clientID string
	suffix   func() string
}

func NewValidator(clientID string, suffix func() string) *Validator {
	if suffix == nil {
		suffix = func() string { return "" }
	}
	return &Validator{clientID: clientID, suffix: suffix}
}

// AppScheme is the custom URL scheme registered for this client.
func (v *Validator) AppScheme() string {
	return "fg" + v.clientID + v.suffix()
}

// ValidateRedirect accepts the app's custom-scheme authorize URL and the
// loopback callback. Anything else is ErrUnhandledURL.
func (v *Validator) ValidateRedirect(u *url.URL) error {
	if u == nil {
		return fgerrors.ErrUnhandledURL
	}
	if strings.EqualFold(u.Scheme, v.AppScheme()) {
		// fg123://authorize#... parses with Host "authorize"; fg123:authorize is Opaque.
		if strings.EqualFold(u.Host, authorizeHost) || strings.EqualFold(u.Opaque, authorizeHost) {
			return nil
		}
		return fmt.Errorf("[auth ValidateRedirect] unexpected app url host %q: %w", u.Host, fgerrors.ErrUnhandledURL)
	}
	if u.Scheme == "http" && isLoopback(u.Hostname()) && u.Path == server.RouteCallback {
		return nil
	}
	return fgerrors.ErrUnhandledURL
}

// ValidatePermissions drops empty entries and rejects separators inside a permission.
func (v *Validator) ValidatePermissions(perms []string) ([]string, error) {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, " ,") {
			return nil, fmt.Errorf("[auth ValidatePermissions] invalid permission %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// ValidateCodeVerifier checks the RFC 7636 length bounds.
func (v *Validator) ValidateCodeVerifier(verifier string) error {
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code_verifier must be between 43 and 128 characters")
	}
	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
