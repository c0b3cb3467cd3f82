package domain

import (
	"fmt"
	"strings"
)

// Identifier is the full address of one configuration value or subtree:
// the owning namespace, its instance id, a category, and the ordered
// primary and secondary key tuples. Identifiers are immutable; construct
// a fresh one per operation.
//
// A primary key shorter than the category's declared arity addresses a
// subtree (valid for Clear and bulk reads), never a leaf.
type Identifier struct {
	namespace     string
	instanceID    string
	category      string
	primaryKey    []string
	secondaryKey  []string
	custom        bool
	primaryKeyLen int
}

// NewIdentifier builds a validated Identifier. The namespace must be
// non-empty and the primary key must not exceed the category's declared
// arity; violations wrap ErrInvalidInput.
func NewIdentifier(namespace, instanceID, category string, primaryKey, secondaryKey []string, info CategoryInfo) (Identifier, error) {
	if namespace == "" {
		return Identifier{}, fmt.Errorf("%w: empty namespace", ErrInvalidInput)
	}
	if len(primaryKey) > info.PrimaryKeyLen {
		return Identifier{}, fmt.Errorf(
			"%w: primary key %v exceeds declared length %d for category %s",
			ErrInvalidInput, primaryKey, info.PrimaryKeyLen, category,
		)
	}
	return Identifier{
		namespace:     namespace,
		instanceID:    instanceID,
		category:      category,
		primaryKey:    append([]string(nil), primaryKey...),
		secondaryKey:  append([]string(nil), secondaryKey...),
		custom:        info.Custom,
		primaryKeyLen: info.PrimaryKeyLen,
	}, nil
}

// Namespace returns the owning module name.
func (i Identifier) Namespace() string { return i.namespace }

// InstanceID disambiguates multiple installed copies of the same owner.
func (i Identifier) InstanceID() string { return i.instanceID }

// Category returns the logical table name.
func (i Identifier) Category() string { return i.category }

// PrimaryKey returns a copy of the ordered entity path.
func (i Identifier) PrimaryKey() []string {
	return append([]string(nil), i.primaryKey...)
}

// SecondaryKey returns a copy of the key tuple used for default-value
// resolution, distinct from primary addressing.
func (i Identifier) SecondaryKey() []string {
	return append([]string(nil), i.secondaryKey...)
}

// Custom reports whether the category was dynamically registered.
func (i Identifier) Custom() bool { return i.custom }

// PrimaryKeyLen returns the arity leaf addresses in this category require.
func (i Identifier) PrimaryKeyLen() int { return i.primaryKeyLen }

// IsLeaf reports whether the identifier addresses a single value rather
// than a subtree.
func (i Identifier) IsLeaf() bool {
	return len(i.primaryKey) == i.primaryKeyLen
}

// Path returns the ordered address segments used by backends that need
// a flat or nested address: namespace, instance, category, then the
// primary and secondary key segments.
func (i Identifier) Path() []string {
	path := make([]string, 0, 3+len(i.primaryKey)+len(i.secondaryKey))
	path = append(path, i.namespace, i.instanceID, i.category)
	path = append(path, i.primaryKey...)
	path = append(path, i.secondaryKey...)
	return path
}

// String returns a human-readable form for error and log messages.
func (i Identifier) String() string {
	return "<" + strings.Join(i.Path(), "/") + ">"
}
