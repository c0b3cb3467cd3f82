// Package jsonfile provides the file-based JSON implementation of the
// storage contract.
//
// # Data Location
//
// Each (namespace, instance) pair owns one document at
// <baseDir>/<namespace>/<instance>/settings.json. Writes replace the
// whole document atomically (temp file + rename), so a crash mid-write
// never leaves a torn document behind.
//
// # Thread Safety
//
// All operations are thread-safe. Increment and Toggle additionally
// serialize per document so concurrent counters never lose updates.
package jsonfile
