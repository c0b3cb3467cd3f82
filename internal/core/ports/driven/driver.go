package driven

import (
	"context"
	"iter"

	"github.com/strataconf/strata/internal/core/domain"
)

// ConfigDriver is the storage contract every backend implements. All
// backends satisfy it identically: a file-based JSON store, a relational
// store, an in-memory store, and a remote HTTP API store are equally
// valid implementations.
//
// Operations against different identifiers may interleave freely.
// Concurrent Increment/Toggle against the same identifier must not lose
// updates; each backend serializes same-document mutations itself.
type ConfigDriver interface {
	// Get returns the value stored at the exact identifier path.
	// Returns domain.ErrNotFound when nothing is stored there; defaults
	// are a caller concern, never injected at this layer.
	Get(ctx context.Context, id domain.Identifier) (any, error)

	// Set fully replaces the value at the identifier, creating
	// intermediate containers as needed. It returns the stored value
	// after backend-side normalization (a codec round trip).
	Set(ctx context.Context, id domain.Identifier, value any) (any, error)

	// Clear deletes the value or subtree at the identifier. Clearing a
	// path that holds nothing is a no-op, not an error.
	Clear(ctx context.Context, id domain.Identifier) error

	// Increment adds delta to the numeric value at the identifier,
	// seeding from def when absent, and returns the new value. A stored
	// non-numeric value fails with domain.ErrTypeMismatch. Atomic per
	// identifier with respect to concurrent increments in this process.
	Increment(ctx context.Context, id domain.Identifier, delta, def float64) (float64, error)

	// Toggle flips the stored boolean when value is nil (seeding from
	// def when absent) or sets it explicitly when value is non-nil, and
	// returns the new boolean. A stored non-boolean value fails with
	// domain.ErrTypeMismatch. Same atomicity guarantee as Increment.
	Toggle(ctx context.Context, id domain.Identifier, value *bool, def bool) (bool, error)

	// ImportData migrates whole-category payloads into this backend.
	// Each category is first written with a single bulk Set; on failure
	// the payload is split by the category's declared primary-key arity
	// and retried per leaf. Leaves that still fail are logged and
	// skipped. Partial success is a terminal state, not an error.
	ImportData(ctx context.Context, namespace domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error

	// DeleteAllData irreversibly wipes everything owned by this driver
	// instance. Without confirm it fails with
	// domain.ErrConfirmationRequired before any I/O occurs.
	DeleteAllData(ctx context.Context, confirm bool) error

	// Namespaces enumerates stored (namespace, instance) pairs as a
	// lazy, finite, non-restartable sequence. A non-nil error ends the
	// sequence.
	Namespaces(ctx context.Context) iter.Seq2[domain.Namespace, error]

	// Close releases the driver's long-lived resources. No operation
	// may be issued after Close begins.
	Close() error
}
