package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
)

// Store is the per-namespace settings facade. It owns the namespace's
// category registry and declared defaults, builds identifiers for the
// caller, and resolves defaults when the backend holds no value. One
// Store is created per owning module; all of them share one driver.
type Store struct {
	driver     driven.ConfigDriver
	namespace  string
	instanceID string

	mu       sync.RWMutex
	registry domain.CategoryRegistry
	defaults map[string]map[string]any
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithInstanceID sets the instance id disambiguating multiple installed
// copies of the same namespace. Defaults to "0".
func WithInstanceID(id string) StoreOption {
	return func(s *Store) {
		s.instanceID = id
	}
}

// WithRegistry replaces the category registry. Defaults to the built-in
// categories.
func WithRegistry(r domain.CategoryRegistry) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.registry = r
		}
	}
}

// NewStore creates a settings facade for one namespace.
func NewStore(driver driven.ConfigDriver, namespace string, opts ...StoreOption) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: empty namespace", domain.ErrInvalidInput)
	}
	s := &Store{
		driver:     driver,
		namespace:  namespace,
		instanceID: "0",
		registry:   domain.BuiltinCategories(),
		defaults:   make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Namespace returns the owning module name.
func (s *Store) Namespace() string { return s.namespace }

// InstanceID returns the instance id.
func (s *Store) InstanceID() string { return s.instanceID }

// Registry returns the category registry this store consults.
func (s *Store) Registry() domain.CategoryRegistry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.CategoryRegistry, len(s.registry))
	for name, info := range s.registry {
		out[name] = info
	}
	return out
}

// RegisterCategory declares a custom category with the given
// primary-key arity.
func (s *Store) RegisterCategory(name string, primaryKeyLen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Register(name, primaryKeyLen)
}

// RegisterDefaults declares default values for fields in a category.
// Defaults are resolved locally on ErrNotFound; they are never written
// to the backend.
func (s *Store) RegisterDefaults(category string, defaults map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.defaults[category]
	if !ok {
		existing = make(map[string]any)
		s.defaults[category] = existing
	}
	for key, value := range defaults {
		existing[key] = value
	}
}

// Default returns the declared default for a field path in a category.
func (s *Store) Default(category string, keys ...string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.defaults[category]
	if !ok {
		return nil, false
	}
	var value any = node
	for _, key := range keys {
		m, isMap := value.(map[string]any)
		if !isMap {
			return nil, false
		}
		value, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// Identifier builds a validated identifier for a field in this
// namespace. The primary key addresses the entity; keys address the
// field within the record and double as the default-lookup path.
func (s *Store) Identifier(category string, primaryKey []string, keys ...string) (domain.Identifier, error) {
	s.mu.RLock()
	info := s.registry.Lookup(category)
	s.mu.RUnlock()
	return domain.NewIdentifier(s.namespace, s.instanceID, category, primaryKey, keys, info)
}

// Get reads a field, falling back to its declared default when the
// backend holds no value. Fields with no stored value and no declared
// default fail with domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, category string, primaryKey []string, keys ...string) (any, error) {
	id, err := s.Identifier(category, primaryKey, keys...)
	if err != nil {
		return nil, err
	}
	value, err := s.driver.Get(ctx, id)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		if def, ok := s.Default(category, keys...); ok {
			return def, nil
		}
	}
	return nil, err
}

// Set writes a field.
func (s *Store) Set(ctx context.Context, category string, primaryKey []string, value any, keys ...string) (any, error) {
	id, err := s.Identifier(category, primaryKey, keys...)
	if err != nil {
		return nil, err
	}
	return s.driver.Set(ctx, id, value)
}

// Clear deletes a field or subtree.
func (s *Store) Clear(ctx context.Context, category string, primaryKey []string, keys ...string) error {
	id, err := s.Identifier(category, primaryKey, keys...)
	if err != nil {
		return err
	}
	return s.driver.Clear(ctx, id)
}

// Increment adds delta to a numeric field, seeding from the declared
// default (or zero) when absent.
func (s *Store) Increment(ctx context.Context, category string, primaryKey []string, delta float64, keys ...string) (float64, error) {
	id, err := s.Identifier(category, primaryKey, keys...)
	if err != nil {
		return 0, err
	}
	def := 0.0
	if declared, ok := s.Default(category, keys...); ok {
		if n, isNum := numericDefault(declared); isNum {
			def = n
		}
	}
	return s.driver.Increment(ctx, id, delta, def)
}

// Toggle flips or sets a boolean field, seeding from the declared
// default (or false) when absent.
func (s *Store) Toggle(ctx context.Context, category string, primaryKey []string, value *bool, keys ...string) (bool, error) {
	id, err := s.Identifier(category, primaryKey, keys...)
	if err != nil {
		return false, err
	}
	def := false
	if declared, ok := s.Default(category, keys...); ok {
		if b, isBool := declared.(bool); isBool {
			def = b
		}
	}
	return s.driver.Toggle(ctx, id, value, def)
}

// numericDefault reports a declared default as float64. Defaults are
// registered as plain Go values, so integer shapes appear here too.
func numericDefault(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Export reads every category's full payload for this namespace. Used
// when migrating data into another backend. Categories with no stored
// data are skipped.
func (s *Store) Export(ctx context.Context) ([]domain.CategoryData, error) {
	registry := s.Registry()
	rows := make([]domain.CategoryData, 0, len(registry))
	for category := range registry {
		id, err := s.Identifier(category, nil)
		if err != nil {
			return nil, err
		}
		value, err := s.driver.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		payload, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: category %s is not a mapping", domain.ErrTypeMismatch, category)
		}
		rows = append(rows, domain.CategoryData{Category: category, Data: payload})
	}
	return rows, nil
}
