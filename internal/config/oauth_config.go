package config

import (
	"os"
	"strings"
	"time"
)

const (
	permissionsVar    = "FG_PERMISSIONS"
	loginTimeoutVar   = "FG_LOGIN_TIMEOUT"
	requestTimeoutVar = "FG_REQUEST_TIMEOUT"
)

type OAuthConfig interface {
	GetClientSecret() string
	GetDefaultPermissions() []string
	GetLoginTimeout() time.Duration
	GetRequestTimeout() time.Duration
	GetFlowStateTimeout() time.Duration
}

type OAuth struct {
	base Values
}

var _ OAuthConfig = mainConfig{}

// GetDefaultPermissions is a comma separated list when read from the environment.
func (o OAuth) GetDefaultPermissions() []string {
	if v := os.Getenv(permissionsVar); v != "" {
		var perms []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
		return perms
	}
	return append([]string(nil), o.base.Permissions...)
}

func (o OAuth) GetLoginTimeout() time.Duration {
	return durationEnv(loginTimeoutVar, o.base.LoginTimeout, 5*time.Minute)
}

func (o OAuth) GetRequestTimeout() time.Duration {
	return durationEnv(requestTimeoutVar, o.base.RequestTimeout, 30*time.Second)
}

// GetFlowStateTimeout bounds how long a pending authorize state can be redeemed.
func (o OAuth) GetFlowStateTimeout() time.Duration {
	return 15 * time.Minute
}

func durationEnv(envVar string, base, fallback time.Duration) time.Duration {
	if v := os.Getenv(envVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if base > 0 {
		return base
	}
	return fallback
}
