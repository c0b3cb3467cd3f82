// Package file provides TOML file-based application configuration.
//
// This is the store for strata's own settings (selected backend,
// connection details, data directory), not for the hierarchical config
// data the storage drivers manage.
package file
