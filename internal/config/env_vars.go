package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	appNameVar         = "FG_APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "FG_LOG_LEVEL"
	clientIDVar        = "FG_CLIENT_ID"
	clientSecretVar    = "FG_CLIENT_SECRET"
	urlSchemeSuffixVar = "FG_URL_SCHEME_SUFFIX"
	redirectPortVar    = "FG_REDIRECT_PORT"
	graphURLVar        = "FG_GRAPH_URL"
	dialogURLVar       = "FG_DIALOG_URL"
	authURLVar         = "FG_AUTH_URL"
	tokenURLVar        = "FG_TOKEN_URL"
	revokeURLVar       = "FG_REVOKE_URL"
	issuerURLVar       = "FG_ISSUER_URL"
)

type EnvVars struct {
	base Values
}

var _ AppConfig = EnvVars{}
var _ EndpointConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, e.base.AppName)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, e.base.Env))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, e.base.LogLevel)
}

func (e EnvVars) GetClientID() string {
	return GetEnv(clientIDVar, e.base.ClientID)
}

// GetClientSecret is only set for confidential clients; mobile and CLI apps leave it empty.
func (e EnvVars) GetClientSecret() string {
	return GetEnv(clientSecretVar, e.base.ClientSecret)
}

func (e EnvVars) GetURLSchemeSuffix() string {
	return GetEnv(urlSchemeSuffixVar, e.base.URLSchemeSuffix)
}

// GetRedirectPort returns the loopback port for redirects, 0 picks a free port.
func (e EnvVars) GetRedirectPort() int {
	port, err := strconv.Atoi(GetEnv(redirectPortVar, strconv.Itoa(e.base.RedirectPort)))
	if err != nil || port < 0 {
		return 0
	}
	return port
}

func (e EnvVars) GetGraphURL() string {
	return withTrailingSlash(GetEnv(graphURLVar, e.base.GraphURL))
}

func (e EnvVars) GetDialogURL() string {
	return withTrailingSlash(GetEnv(dialogURLVar, e.base.DialogURL))
}

func (e EnvVars) GetAuthURL() string {
	return GetEnv(authURLVar, e.base.AuthURL)
}

func (e EnvVars) GetTokenURL() string {
	return GetEnv(tokenURLVar, e.base.TokenURL)
}

func (e EnvVars) GetRevokeURL() string {
	return GetEnv(revokeURLVar, e.base.RevokeURL)
}

// GetIssuerURL enables OIDC discovery of the authorize and token endpoints when set.
func (e EnvVars) GetIssuerURL() string {
	return GetEnv(issuerURLVar, e.base.IssuerURL)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func withTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
