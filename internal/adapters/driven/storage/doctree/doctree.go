// Package doctree manipulates nested JSON-compatible documents in place.
// The document-shaped drivers (memory, jsonfile) store one tree per
// (namespace, instance) pair and address values by ordered path segments.
package doctree

import (
	"encoding/json"
	"fmt"

	"github.com/strataconf/strata/internal/core/domain"
)

// Get returns the value at path. Returns domain.ErrNotFound when any
// segment is missing or an intermediate node is not a mapping.
func Get(root map[string]any, path []string) (any, error) {
	var node any = root
	for _, seg := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, domain.ErrNotFound
		}
		node, ok = m[seg]
		if !ok {
			return nil, domain.ErrNotFound
		}
	}
	return node, nil
}

// Set replaces the value at path, creating intermediate mappings as
// needed. Setting beneath an existing non-mapping value fails with
// domain.ErrTypeMismatch.
func Set(root map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	node := root
	for _, seg := range path[:len(path)-1] {
		child, ok := node[seg]
		if !ok {
			next := make(map[string]any)
			node[seg] = next
			node = next
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: cannot descend into non-mapping at %q", domain.ErrTypeMismatch, seg)
		}
		node = m
	}
	node[path[len(path)-1]] = value
	return nil
}

// Remove deletes the value or subtree at path. Removing a path that
// holds nothing is a no-op.
func Remove(root map[string]any, path []string) {
	if len(path) == 0 {
		for key := range root {
			delete(root, key)
		}
		return
	}
	node := root
	for _, seg := range path[:len(path)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, path[len(path)-1])
}

// Normalize round-trips a value through JSON, yielding the canonical
// in-memory shape (map[string]any, []any, float64, string, bool, nil).
// Every driver returns values in this shape so callers never observe
// codec differences between backends.
func Normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return out, nil
}

// Number reports a stored value as float64. Accepts the integer shapes
// that appear before normalization.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool reports a stored value as bool.
func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// Copy deep-copies a JSON-compatible document.
func Copy(root map[string]any) (map[string]any, error) {
	out, err := Normalize(root)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return make(map[string]any), nil
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document root must be a mapping", domain.ErrInvalidInput)
	}
	return m, nil
}
