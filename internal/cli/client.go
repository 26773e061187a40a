package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	familygraph "github.com/jrsteele09/go-familygraph"
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/sessions"
	"github.com/jrsteele09/go-familygraph/sessions/boltrepo"
	"go.etcd.io/bbolt"
)

// openClient opens the session store and returns a client restored from it.
// The returned close function must be called to release the store.
func openClient(ctx context.Context) (*familygraph.FamilyGraph, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("no configuration loaded")
	}

	path := storePath
	if path == "" {
		path = cfg.GetStorePath()
	}
	passphrase := cfg.GetStorePassphrase()
	if passphrase == "" {
		return nil, nil, fgerrors.Wrapf(fgerrors.ErrMissingSecret, "set FG_STORE_PASSPHRASE or store_passphrase in %s", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("unable to create store directory: %w", err)
	}
	store, err := boltrepo.Open(path, passphrase, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, nil, err
	}

	fg, err := familygraph.NewFromConfig(ctx, cfg, sessionDelegate(), familygraph.WithRepo(store))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return fg, func() {
		_ = fg.Close()
		_ = store.Close()
	}, nil
}

// sessionDelegate reports session events that a command did not ask for.
func sessionDelegate() sessions.Delegate {
	return sessions.DelegateFuncs{
		OnInvalidated: func() {
			if !jsonOutput {
				warnLabel.Fprintln(os.Stderr, "! The server rejected the stored session. Run \"familygraph login\" again.")
			}
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
