// Package storage holds infrastructure shared by the storage drivers:
// the bulk-then-fallback migration algorithm and per-document locking.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/logger"
)

// Setter is the slice of the driver contract the import algorithm needs.
type Setter interface {
	Set(ctx context.Context, id domain.Identifier, value any) (any, error)
}

// ImportData writes whole-category payloads into a backend using its
// own Set. Phase one attempts a single wholesale write per category;
// when that fails the payload is split by the category's declared
// primary-key arity and each leaf is written individually. Leaves that
// still fail are logged and skipped so one bad row never aborts the
// migration. Partial success is an accepted terminal state.
func ImportData(ctx context.Context, setter Setter, ns domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error {
	logger.Info("importing data for %s/%s", ns.Name, ns.InstanceID)
	for _, row := range rows {
		logger.Info("importing category: %s", row.Category)
		info := registry.Lookup(row.Category)
		id, err := domain.NewIdentifier(ns.Name, ns.InstanceID, row.Category, nil, nil, info)
		if err != nil {
			return err
		}
		if _, err := setter.Set(ctx, id, row.Data); err == nil {
			continue
		}
		if err := importLeaves(ctx, setter, ns, row, info); err != nil {
			return err
		}
	}
	return nil
}

// importLeaves is the per-leaf fallback for one category.
func importLeaves(ctx context.Context, setter Setter, ns domain.Namespace, row domain.CategoryData, info domain.CategoryInfo) error {
	leaves, err := domain.SplitPrimaryKey(row.Data, info.PrimaryKeyLen)
	if err != nil {
		logger.Error("cannot split category %s for %s/%s: %v", row.Category, ns.Name, ns.InstanceID, err)
		return nil
	}
	for _, leaf := range leaves {
		id, err := domain.NewIdentifier(ns.Name, ns.InstanceID, row.Category, leaf.PrimaryKey, nil, info)
		if err != nil {
			logger.Error("skipping row %v in category %s: %v", leaf.PrimaryKey, row.Category, err)
			continue
		}
		if _, err := setter.Set(ctx, id, leaf.Data); err != nil {
			logger.Error("error saving %s: %v", id, err)
		}
	}
	return ctx.Err()
}

// KeyedMutex serializes operations per document key. Drivers use it to
// keep same-identifier increment and toggle free of lost updates.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and
// returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// DocKey builds the lock key for an identifier's owning document.
func DocKey(id domain.Identifier) string {
	return fmt.Sprintf("%s/%s", id.Namespace(), id.InstanceID())
}
