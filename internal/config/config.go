package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file name used under the user config directory.
const DefaultConfigFile = "config.yaml"

type Config interface {
	AppConfig
	EndpointConfig
	OAuthConfig
	StoreConfig
}

type AppConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetClientID() string
	GetURLSchemeSuffix() string
	GetRedirectPort() int
}

type EndpointConfig interface {
	GetGraphURL() string
	GetDialogURL() string
	GetAuthURL() string
	GetTokenURL() string
	GetRevokeURL() string
	GetIssuerURL() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Store
}

// New returns a Config backed by environment variables over the built-in defaults.
func New() Config {
	return FromValues(Defaults())
}

// FromValues returns a Config where environment variables override v.
func FromValues(v Values) Config {
	return mainConfig{
		EnvVars: EnvVars{base: v},
		OAuth:   OAuth{base: v},
		Store:   Store{base: v},
	}
}

// Load reads a YAML config file over the defaults. Environment variables
// still take precedence over the file.
func Load(file string) (Config, Values, error) {
	v := Defaults()
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, v, fmt.Errorf("[config Load] unable to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, v, fmt.Errorf("[config Load] unable to parse config file: %w", err)
	}
	if v.ClientID == "" && os.Getenv(clientIDVar) == "" {
		return nil, v, errors.New("[config Load] client_id is required")
	}
	return FromValues(v), v, nil
}

// Save writes v as YAML, creating the parent directory.
func Save(file string, v Values) error {
	if file == "" {
		return errors.New("[config Save] file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("[config Save] unable to create config directory: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("[config Save] unable to generate configuration: %w", err)
	}
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fmt.Errorf("[config Save] unable to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the config file location under the OS config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("[config DefaultPath] failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "familygraph", DefaultConfigFile), nil
}
