package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/strataconf/strata/internal/adapters/driven/storage"
	"github.com/strataconf/strata/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
)

// Ensure Driver implements the interface.
var _ driven.ConfigDriver = (*Driver)(nil)

// Driver is a relational implementation of driven.ConfigDriver backed
// by SQLite. One JSON document is kept per (namespace, instance) row
// and addressed with the JSON1 path functions.
type Driver struct {
	db    *sql.DB
	path  string
	locks *storage.KeyedMutex
}

// NewDriver creates a SQLite driver at the specified data directory.
func NewDriver(dataDir string) (*Driver, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "config.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &Driver{
		db:    db,
		path:  dbPath,
		locks: storage.NewKeyedMutex(),
	}

	if err := d.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *Driver) Path() string {
	return d.path
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// migrate runs all pending migrations.
func (d *Driver) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "0001_config_documents.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := d.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// jsonPath builds a JSON1 path expression from the segments below the
// (namespace, instance) level. Segments are quoted so keys containing
// dots or quotes address correctly.
func jsonPath(id domain.Identifier) string {
	segments := id.Path()[2:]
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segments {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		b.WriteString(`"`)
	}
	return b.String()
}

// decodeExtract converts the (json_type, json_extract) column pair into
// the canonical in-memory value shape.
func decodeExtract(typ string, raw any) (any, error) {
	switch typ {
	case "null":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "integer", "real":
		switch n := raw.(type) {
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, &domain.BackendError{Op: "get", Detail: fmt.Sprintf("unexpected numeric shape %T", raw)}
	case "text":
		switch s := raw.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return nil, &domain.BackendError{Op: "get", Detail: fmt.Sprintf("unexpected text shape %T", raw)}
	case "object", "array":
		var text string
		switch s := raw.(type) {
		case string:
			text = s
		case []byte:
			text = string(s)
		default:
			return nil, &domain.BackendError{Op: "get", Detail: fmt.Sprintf("unexpected json shape %T", raw)}
		}
		var out any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, &domain.BackendError{Op: "get", Err: err}
		}
		return out, nil
	default:
		return nil, &domain.BackendError{Op: "get", Detail: "unknown json type " + typ}
	}
}

// extract reads the value and its JSON type at the identifier's path.
// Returns domain.ErrNotFound when the row or the path is absent.
func (d *Driver) extract(ctx context.Context, q queryer, id domain.Identifier) (any, error) {
	path := jsonPath(id)
	row := q.QueryRowContext(ctx, `
		SELECT json_type(data, ?), json_extract(data, ?)
		FROM config_documents WHERE namespace = ? AND instance_id = ?
	`, path, path, id.Namespace(), id.InstanceID())

	var typ sql.NullString
	var raw any
	if err := row.Scan(&typ, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.BackendError{Op: "get", Err: err}
	}
	if !typ.Valid {
		return nil, domain.ErrNotFound
	}
	return decodeExtract(typ.String, raw)
}

// queryer abstracts *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get retrieves the value stored at the exact identifier path.
func (d *Driver) Get(ctx context.Context, id domain.Identifier) (any, error) {
	return d.extract(ctx, d.db, id)
}

// ensurePath creates the document row and every intermediate object
// along the identifier's path. Descending through an existing
// non-object value fails with domain.ErrTypeMismatch.
func (d *Driver) ensurePath(ctx context.Context, tx queryer, id domain.Identifier) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO config_documents (namespace, instance_id, data)
		VALUES (?, ?, '{}')
		ON CONFLICT (namespace, instance_id) DO NOTHING
	`, id.Namespace(), id.InstanceID())
	if err != nil {
		return &domain.BackendError{Op: "set", Err: err}
	}

	segments := id.Path()[2:]
	path := "$"
	for _, seg := range segments[:max(len(segments)-1, 0)] {
		path += `."` + strings.ReplaceAll(seg, `"`, `\"`) + `"`
		row := tx.QueryRowContext(ctx, `
			SELECT json_type(data, ?) FROM config_documents
			WHERE namespace = ? AND instance_id = ?
		`, path, id.Namespace(), id.InstanceID())
		var typ sql.NullString
		if err := row.Scan(&typ); err != nil {
			return &domain.BackendError{Op: "set", Err: err}
		}
		switch {
		case !typ.Valid:
			if _, err := tx.ExecContext(ctx, `
				UPDATE config_documents SET data = json_set(data, ?, json('{}'))
				WHERE namespace = ? AND instance_id = ?
			`, path, id.Namespace(), id.InstanceID()); err != nil {
				return &domain.BackendError{Op: "set", Err: err}
			}
		case typ.String != "object":
			return fmt.Errorf("%w: cannot descend into %s value at %s", domain.ErrTypeMismatch, typ.String, path)
		}
	}
	return nil
}

// setValue writes an encoded JSON value at the identifier's path.
func (d *Driver) setValue(ctx context.Context, tx queryer, id domain.Identifier, encoded []byte) error {
	if err := d.ensurePath(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE config_documents SET data = json_set(data, ?, json(?))
		WHERE namespace = ? AND instance_id = ?
	`, jsonPath(id), string(encoded), id.Namespace(), id.InstanceID()); err != nil {
		return &domain.BackendError{Op: "set", Err: err}
	}
	return nil
}

// Set fully replaces the value at the identifier.
func (d *Driver) Set(ctx context.Context, id domain.Identifier, value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.BackendError{Op: "set", Err: err}
	}
	defer tx.Rollback()

	if err := d.setValue(ctx, tx, id, encoded); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, &domain.BackendError{Op: "set", Err: err}
	}

	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return normalized, nil
}

// Clear deletes the value or subtree at the identifier.
func (d *Driver) Clear(ctx context.Context, id domain.Identifier) error {
	if _, err := d.db.ExecContext(ctx, `
		UPDATE config_documents SET data = json_remove(data, ?)
		WHERE namespace = ? AND instance_id = ?
	`, jsonPath(id), id.Namespace(), id.InstanceID()); err != nil {
		return &domain.BackendError{Op: "clear", Err: err}
	}
	return nil
}

// Increment atomically adds delta to the numeric value at the identifier.
func (d *Driver) Increment(ctx context.Context, id domain.Identifier, delta, def float64) (float64, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.BackendError{Op: "increment", Err: err}
	}
	defer tx.Rollback()

	current := def
	stored, err := d.extract(ctx, tx, id)
	switch {
	case err == nil:
		n, ok := numberValue(stored)
		if !ok {
			return 0, fmt.Errorf("%w: %s holds %T, not a number", domain.ErrTypeMismatch, id, stored)
		}
		current = n
	case !errors.Is(err, domain.ErrNotFound):
		return 0, err
	}

	next := current + delta
	encoded, _ := json.Marshal(next)
	if err := d.setValue(ctx, tx, id, encoded); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, &domain.BackendError{Op: "increment", Err: err}
	}
	return next, nil
}

// Toggle atomically flips or sets the boolean value at the identifier.
func (d *Driver) Toggle(ctx context.Context, id domain.Identifier, value *bool, def bool) (bool, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, &domain.BackendError{Op: "toggle", Err: err}
	}
	defer tx.Rollback()

	// The stored value must be boolean (or absent) for either branch.
	current := def
	stored, err := d.extract(ctx, tx, id)
	switch {
	case err == nil:
		b, ok := stored.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %s holds %T, not a boolean", domain.ErrTypeMismatch, id, stored)
		}
		current = b
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	next := !current
	if value != nil {
		next = *value
	}

	encoded, _ := json.Marshal(next)
	if err := d.setValue(ctx, tx, id, encoded); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, &domain.BackendError{Op: "toggle", Err: err}
	}
	return next, nil
}

// ImportData migrates whole-category payloads into this driver.
func (d *Driver) ImportData(ctx context.Context, ns domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error {
	return storage.ImportData(ctx, d, ns, rows, registry)
}

// DeleteAllData removes every stored document.
func (d *Driver) DeleteAllData(ctx context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM config_documents"); err != nil {
		return &domain.BackendError{Op: "delete_all", Err: err}
	}
	return nil
}

// Namespaces enumerates stored (namespace, instance) pairs.
func (d *Driver) Namespaces(ctx context.Context) iter.Seq2[domain.Namespace, error] {
	return func(yield func(domain.Namespace, error) bool) {
		rows, err := d.db.QueryContext(ctx, `
			SELECT namespace, instance_id FROM config_documents
			ORDER BY namespace, instance_id
		`)
		if err != nil {
			yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Err: err})
			return
		}
		defer rows.Close()

		for rows.Next() {
			var ns domain.Namespace
			if err := rows.Scan(&ns.Name, &ns.InstanceID); err != nil {
				yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Err: err})
				return
			}
			if !yield(ns, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Err: err})
		}
	}
}

// numberValue reports a decoded value as float64.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
