// Package sqlite provides the relational implementation of the storage
// contract.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. One JSON
// document is stored per (namespace, instance) row and manipulated with
// the JSON1 functions (json_extract, json_set, json_remove), so the
// database never needs to understand the shape of the stored values.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory. Each migration is a pair of .up.sql and
// .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. Increment and Toggle run inside a
// transaction and additionally serialize per document, so concurrent
// counters never lose updates.
package sqlite
