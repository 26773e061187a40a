package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
)

// Discover reads the authorization server endpoints from the issuer's
// /.well-known/openid-configuration document.
func Discover(ctx context.Context, issuerURL string, client *http.Client) (Endpoints, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("[auth Discover] failed to create OIDC provider: %w", err)
	}

	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return Endpoints{}, fmt.Errorf("[auth Discover] failed to read provider metadata: %w", err)
	}

	ep := provider.Endpoint()
	endpoints := Endpoints{
		AuthURL:   ep.AuthURL,
		TokenURL:  ep.TokenURL,
		RevokeURL: claims.RevocationEndpoint,
	}
	log.Debug().Str("issuer", issuerURL).Str("authorize", endpoints.AuthURL).Str("token", endpoints.TokenURL).Msg("[auth Discover] endpoints discovered")
	return endpoints, nil
}

// Merge fills empty fields of e from other.
func (e Endpoints) Merge(other Endpoints) Endpoints {
	if e.AuthURL == "" {
		e.AuthURL = other.AuthURL
	}
	if e.TokenURL == "" {
		e.TokenURL = other.TokenURL
	}
	if e.RevokeURL == "" {
		e.RevokeURL = other.RevokeURL
	}
	return e
}
