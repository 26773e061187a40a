// Package token inspects access tokens on the client side. Family Graph tokens
// are opaque to the SDK, but when the server hands out a JWT its claims are
// read (never verified) to fill in what the redirect left out.
package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-familygraph/internal/utils"
)

// Introspection represents what could be read from an access token.
// IsJWT is false for opaque tokens, in which case the other fields are empty.
type Introspection struct {
	IsJWT    bool      `json:"is_jwt"`
	Expires  time.Time `json:"exp,omitempty"`   // Expiration
	IssuedAt time.Time `json:"iat,omitempty"`   // Issued at time
	Issuer   string    `json:"iss,omitempty"`   // Issuer of the token
	Subject  string    `json:"sub,omitempty"`   // Users unique ID
	Audience []string  `json:"aud,omitempty"`   // Audience
	Scopes   []string  `json:"scope,omitempty"` // scope claim, space separated or a list
}

// Introspect parses raw without verifying its signature. It never fails:
// anything that is not a well formed JWT is reported as opaque.
func Introspect(raw string) Introspection {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return Introspection{}
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return Introspection{}
	}

	in := Introspection{IsJWT: true}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		in.Expires = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		in.IssuedAt = iat.Time
	}
	in.Issuer, _ = claims.GetIssuer()
	in.Subject, _ = claims.GetSubject()
	if aud, err := claims.GetAudience(); err == nil {
		in.Audience = aud
	}
	switch scope := claims["scope"].(type) {
	case string:
		in.Scopes = strings.Fields(scope)
	case []any:
		in.Scopes = utils.ToStringSlice(scope)
	}
	return in
}

// ExpiryOr returns the token's exp claim when it has one, otherwise fallback.
func ExpiryOr(raw string, fallback time.Time) time.Time {
	if in := Introspect(raw); in.IsJWT && !in.Expires.IsZero() {
		return in.Expires
	}
	return fallback
}
