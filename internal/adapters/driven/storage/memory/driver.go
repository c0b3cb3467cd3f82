// Package memory provides an in-memory implementation of the storage
// contract. It backs tests and acts as the process-local stand-in for a
// remote key-value cache backend: documents live only as long as the
// process does.
package memory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/strataconf/strata/internal/adapters/driven/storage"
	"github.com/strataconf/strata/internal/adapters/driven/storage/doctree"
	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
)

// Ensure Driver implements the interface.
var _ driven.ConfigDriver = (*Driver)(nil)

// Driver is an in-memory implementation of driven.ConfigDriver. One
// document is kept per (namespace, instance) pair.
type Driver struct {
	mu    sync.RWMutex
	docs  map[domain.Namespace]map[string]any
	locks *storage.KeyedMutex
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		docs:  make(map[domain.Namespace]map[string]any),
		locks: storage.NewKeyedMutex(),
	}
}

// docPath strips the namespace and instance segments: they select the
// document, the rest addresses within it.
func docPath(id domain.Identifier) []string {
	return id.Path()[2:]
}

func nsOf(id domain.Identifier) domain.Namespace {
	return domain.Namespace{Name: id.Namespace(), InstanceID: id.InstanceID()}
}

// Get retrieves the value stored at the exact identifier path.
func (d *Driver) Get(_ context.Context, id domain.Identifier) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[nsOf(id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	value, err := doctree.Get(doc, docPath(id))
	if err != nil {
		return nil, err
	}
	// Copy out so callers can never alias stored state.
	return doctree.Normalize(value)
}

// Set fully replaces the value at the identifier.
func (d *Driver) Set(_ context.Context, id domain.Identifier, value any) (any, error) {
	normalized, err := doctree.Normalize(value)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ns := nsOf(id)
	doc, ok := d.docs[ns]
	if !ok {
		doc = make(map[string]any)
		d.docs[ns] = doc
	}
	if err := doctree.Set(doc, docPath(id), normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Clear deletes the value or subtree at the identifier.
func (d *Driver) Clear(_ context.Context, id domain.Identifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[nsOf(id)]
	if !ok {
		return nil
	}
	doctree.Remove(doc, docPath(id))
	return nil
}

// Increment atomically adds delta to the numeric value at the identifier.
func (d *Driver) Increment(ctx context.Context, id domain.Identifier, delta, def float64) (float64, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	current := def
	stored, err := d.Get(ctx, id)
	switch {
	case err == nil:
		n, ok := doctree.Number(stored)
		if !ok {
			return 0, fmt.Errorf("%w: %s holds %T, not a number", domain.ErrTypeMismatch, id, stored)
		}
		current = n
	case !errors.Is(err, domain.ErrNotFound):
		return 0, err
	}

	next := current + delta
	if _, err := d.Set(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Toggle atomically flips or sets the boolean value at the identifier.
func (d *Driver) Toggle(ctx context.Context, id domain.Identifier, value *bool, def bool) (bool, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	// The stored value must be boolean (or absent) for either branch.
	current := def
	stored, err := d.Get(ctx, id)
	switch {
	case err == nil:
		b, ok := doctree.Bool(stored)
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

	if _, err := d.Set(ctx, id, next); err != nil {
		return false, err
	}
	return next, nil
}

// ImportData migrates whole-category payloads into this driver.
func (d *Driver) ImportData(ctx context.Context, ns domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error {
	return storage.ImportData(ctx, d, ns, rows, registry)
}

// DeleteAllData wipes every stored document.
func (d *Driver) DeleteAllData(_ context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = make(map[domain.Namespace]map[string]any)
	return nil
}

// Namespaces enumerates stored (namespace, instance) pairs.
func (d *Driver) Namespaces(_ context.Context) iter.Seq2[domain.Namespace, error] {
	d.mu.RLock()
	snapshot := make([]domain.Namespace, 0, len(d.docs))
	for ns := range d.docs {
		snapshot = append(snapshot, ns)
	}
	d.mu.RUnlock()

	sort.Slice(snapshot, func(a, b int) bool {
		if snapshot[a].Name != snapshot[b].Name {
			return snapshot[a].Name < snapshot[b].Name
		}
		return snapshot[a].InstanceID < snapshot[b].InstanceID
	})

	return func(yield func(domain.Namespace, error) bool) {
		for _, ns := range snapshot {
			if !yield(ns, nil) {
				return
			}
		}
	}
}

// Close releases nothing; the memory driver holds no external resources.
func (d *Driver) Close() error {
	return nil
}
