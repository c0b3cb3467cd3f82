// Package cli implements the command-line interface. Commands operate
// on the configured storage backend through the core services and
// driven ports.
package cli
