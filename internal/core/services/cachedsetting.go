package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/strataconf/strata/internal/core/domain"
)

// Scope names the context a cached setting value belongs to: the global
// record or one entity within the setting's category.
type Scope struct {
	scoped bool
	id     string
}

// GlobalScope addresses the category-wide record.
func GlobalScope() Scope { return Scope{} }

// ScopedTo addresses one entity by primary key.
func ScopedTo(id string) Scope { return Scope{scoped: true, id: id} }

// IsGlobal reports whether the scope is the global record.
func (s Scope) IsGlobal() bool { return !s.scoped }

// ID returns the entity id for a scoped scope.
func (s Scope) ID() string { return s.id }

func (s Scope) primaryKey() []string {
	if !s.scoped {
		return nil
	}
	return []string{s.id}
}

// CachedSetting is a typed accessor for one field with an in-process
// read-through cache keyed by scope. The cache is mutated only after
// the backend call succeeds, so a failed write never leaves a stale
// entry behind.
type CachedSetting[T any] struct {
	store    *Store
	category string
	keys     []string
	def      T

	mu      sync.Mutex
	cache   map[Scope]T
	caching bool
}

// SettingOption customizes a CachedSetting.
type SettingOption func(*settingConfig)

type settingConfig struct {
	caching bool
}

// WithoutCache disables the in-process cache, forcing every read
// through to the backend.
func WithoutCache() SettingOption {
	return func(c *settingConfig) {
		c.caching = false
	}
}

// NewCachedSetting declares a typed setting in a category. The default
// is registered with the store so untyped reads resolve it too.
func NewCachedSetting[T any](store *Store, category string, keys []string, def T, opts ...SettingOption) (*CachedSetting[T], error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: setting needs at least one key", domain.ErrInvalidInput)
	}
	cfg := settingConfig{caching: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	defaults := map[string]any{}
	node := defaults
	for _, key := range keys[:len(keys)-1] {
		child := map[string]any{}
		node[key] = child
		node = child
	}
	node[keys[len(keys)-1]] = def
	store.RegisterDefaults(category, defaults)
	return &CachedSetting[T]{
		store:    store,
		category: category,
		keys:     keys,
		def:      def,
		cache:    make(map[Scope]T),
		caching:  cfg.caching,
	}, nil
}

// Get returns the value for a scope, reading through to the backend on
// a cache miss.
func (c *CachedSetting[T]) Get(ctx context.Context, scope Scope) (T, error) {
	if c.caching {
		c.mu.Lock()
		cached, ok := c.cache[scope]
		c.mu.Unlock()
		if ok {
			return cached, nil
		}
	}
	var zero T
	raw, err := c.store.Get(ctx, c.category, scope.primaryKey(), c.keys...)
	if err != nil {
		return zero, err
	}
	value, err := convert[T](raw)
	if err != nil {
		return zero, err
	}
	if c.caching {
		c.mu.Lock()
		c.cache[scope] = value
		c.mu.Unlock()
	}
	return value, nil
}

// Set writes the value for a scope. A nil value clears the stored field
// so subsequent reads resolve the declared default again.
func (c *CachedSetting[T]) Set(ctx context.Context, scope Scope, value *T) error {
	if value == nil {
		if err := c.store.Clear(ctx, c.category, scope.primaryKey(), c.keys...); err != nil {
			return err
		}
		if c.caching {
			c.mu.Lock()
			c.cache[scope] = c.def
			c.mu.Unlock()
		}
		return nil
	}
	if _, err := c.store.Set(ctx, c.category, scope.primaryKey(), *value, c.keys...); err != nil {
		return err
	}
	if c.caching {
		c.mu.Lock()
		c.cache[scope] = *value
		c.mu.Unlock()
	}
	return nil
}

// Invalidate drops cached entries. With no arguments the whole cache is
// dropped; otherwise only the named scopes.
func (c *CachedSetting[T]) Invalidate(scopes ...Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(scopes) == 0 {
		clear(c.cache)
		return
	}
	for _, scope := range scopes {
		delete(c.cache, scope)
	}
}

// GetContextValue resolves the setting for an entity id, collapsing to
// the global record when the setting lives in the global category.
func (c *CachedSetting[T]) GetContextValue(ctx context.Context, entityID string) (T, error) {
	if c.category == domain.CategoryGlobal {
		return c.Get(ctx, GlobalScope())
	}
	return c.Get(ctx, ScopedTo(entityID))
}

// convert coerces a decoded document value into T via a JSON
// round-trip, so map payloads land in struct types and numbers land in
// whichever numeric type the caller declared.
func convert[T any](raw any) (T, error) {
	var out T
	if direct, ok := raw.(T); ok {
		return direct, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrTypeMismatch, err)
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrTypeMismatch, err)
	}
	return out, nil
}
