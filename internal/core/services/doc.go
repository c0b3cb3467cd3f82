// Package services holds the application layer: the per-namespace
// settings facade, typed cached setting accessors, and the backend
// migrator. Services depend only on domain types and driven ports,
// never on concrete adapters.
package services
