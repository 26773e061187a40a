package config

import (
	"os"
	"path/filepath"
)

const (
	storePathVar       = "FG_STORE_PATH"
	storePassphraseVar = "FG_STORE_PASSPHRASE"
)

type StoreConfig interface {
	GetStorePath() string
	GetStorePassphrase() string
}

type Store struct {
	base Values
}

var _ StoreConfig = Store{}

// GetStorePath defaults to sessions.db under the user config directory.
func (s Store) GetStorePath() string {
	if p := GetEnv(storePathVar, s.base.StorePath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "familygraph-sessions.db"
	}
	return filepath.Join(dir, "familygraph", "sessions.db")
}

func (s Store) GetStorePassphrase() string {
	return GetEnv(storePassphraseVar, s.base.StorePassphrase)
}
