package config

import "time"

const (
	defaultGraphURL  = "https://familygraph.myheritage.com/"
	defaultDialogURL = "https://accounts.myheritage.com/oauth2/"
	defaultAuthURL   = "https://accounts.myheritage.com/oauth2/authorize"
	defaultTokenURL  = "https://accounts.myheritage.com/oauth2/token"
)

// Values is the on-disk shape of the configuration file.
type Values struct {
	AppName         string        `yaml:"app_name,omitempty"`
	Env             string        `yaml:"env,omitempty"`
	LogLevel        string        `yaml:"log_level,omitempty"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret,omitempty"`
	URLSchemeSuffix string        `yaml:"url_scheme_suffix,omitempty"`
	RedirectPort    int           `yaml:"redirect_port,omitempty"`
	GraphURL        string        `yaml:"graph_url,omitempty"`
	DialogURL       string        `yaml:"dialog_url,omitempty"`
	AuthURL         string        `yaml:"auth_url,omitempty"`
	TokenURL        string        `yaml:"token_url,omitempty"`
	RevokeURL       string        `yaml:"revoke_url,omitempty"`
	IssuerURL       string        `yaml:"issuer_url,omitempty"`
	Permissions     []string      `yaml:"permissions,omitempty"`
	LoginTimeout    time.Duration `yaml:"login_timeout,omitempty"`
	RequestTimeout  time.Duration `yaml:"request_timeout,omitempty"`
	StorePath       string        `yaml:"store_path,omitempty"`
	StorePassphrase string        `yaml:"store_passphrase,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Values {
	return Values{
		AppName:        "Family Graph",
		Env:            "DEV",
		LogLevel:       "info",
		GraphURL:       defaultGraphURL,
		DialogURL:      defaultDialogURL,
		AuthURL:        defaultAuthURL,
		TokenURL:       defaultTokenURL,
		Permissions:    []string{"basic"},
		LoginTimeout:   5 * time.Minute,
		RequestTimeout: 30 * time.Second,
	}
}
