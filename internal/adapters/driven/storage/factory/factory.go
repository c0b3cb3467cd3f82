// Package factory constructs the configured storage backend. Backend
// selection is an application-configuration concern: the config store
// names the backend and supplies whatever connection details it needs.
package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/strataconf/strata/internal/adapters/driven/storage/jsonfile"
	"github.com/strataconf/strata/internal/adapters/driven/storage/memory"
	"github.com/strataconf/strata/internal/adapters/driven/storage/remote"
	"github.com/strataconf/strata/internal/adapters/driven/storage/sqlite"
	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
)

// Backend names accepted in the "storage.backend" config key.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Config keys consulted when building a driver.
const (
	KeyBackend  = "storage.backend"
	KeyDataDir  = "storage.data_dir"
	KeyWatch    = "storage.watch"
	KeyHost     = "storage.host"
	KeyPassword = "storage.password"
)

// Backends lists every backend name the factory can construct.
func Backends() []string {
	return []string{BackendJSON, BackendSQLite, BackendMemory, BackendRemote}
}

// New builds the driver named by the config store. An unset backend
// defaults to the file-based JSON store.
func New(cfg driven.ConfigStore) (driven.ConfigDriver, error) {
	backend := cfg.GetString(KeyBackend)
	if backend == "" {
		backend = BackendJSON
	}
	return NewBackend(cfg, backend)
}

// NewBackend builds a named backend, taking connection details from
// the config store. Used directly when migrating between backends.
func NewBackend(cfg driven.ConfigStore, backend string) (driven.ConfigDriver, error) {
	dataDir := cfg.GetString(KeyDataDir)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".strata", "data")
	}

	switch backend {
	case BackendJSON:
		var opts []jsonfile.Option
		if cfg.GetBool(KeyWatch) {
			opts = append(opts, jsonfile.WithWatcher())
		}
		return jsonfile.NewDriver(filepath.Join(dataDir, "json"), opts...)
	case BackendSQLite:
		return sqlite.NewDriver(dataDir)
	case BackendMemory:
		return memory.NewDriver(), nil
	case BackendRemote:
		return remote.NewDriver(remote.Config{
			Host:     cfg.GetString(KeyHost),
			Password: cfg.GetString(KeyPassword),
		})
	default:
		return nil, fmt.Errorf("%w: backend %q", domain.ErrUnsupportedType, backend)
	}
}
