package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentifier_Success(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryMember)

	id, err := NewIdentifier("economy", "0", CategoryMember,
		[]string{"guild-1", "user-2"}, []string{"balance"}, info)

	require.NoError(t, err)
	assert.Equal(t, "economy", id.Namespace())
	assert.Equal(t, "0", id.InstanceID())
	assert.Equal(t, CategoryMember, id.Category())
	assert.Equal(t, []string{"guild-1", "user-2"}, id.PrimaryKey())
	assert.Equal(t, []string{"balance"}, id.SecondaryKey())
	assert.True(t, id.IsLeaf())
}

func TestNewIdentifier_EmptyNamespace(t *testing.T) {
	_, err := NewIdentifier("", "0", CategoryGlobal, nil, nil, CategoryInfo{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewIdentifier_PrimaryKeyTooLong(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryGuild)

	_, err := NewIdentifier("economy", "0", CategoryGuild,
		[]string{"a", "b"}, nil, info)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIdentifier_Path(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryMember)
	id, err := NewIdentifier("economy", "0", CategoryMember,
		[]string{"g", "u"}, []string{"bank", "balance"}, info)
	require.NoError(t, err)

	assert.Equal(t, []string{"economy", "0", "MEMBER", "g", "u", "bank", "balance"}, id.Path())
}

func TestIdentifier_PathCopies(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryGuild)
	id, err := NewIdentifier("economy", "0", CategoryGuild, []string{"g"}, nil, info)
	require.NoError(t, err)

	path := id.Path()
	path[0] = "mutated"

	assert.Equal(t, []string{"economy", "0", "GUILD", "g"}, id.Path())
}

func TestIdentifier_IsLeaf(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryGuild)

	partial, err := NewIdentifier("economy", "0", CategoryGuild, nil, nil, info)
	require.NoError(t, err)
	assert.False(t, partial.IsLeaf())

	leaf, err := NewIdentifier("economy", "0", CategoryGuild, []string{"g"}, nil, info)
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf())
}

func TestIdentifier_String(t *testing.T) {
	info := BuiltinCategories().Lookup(CategoryGlobal)
	id, err := NewIdentifier("core", "0", CategoryGlobal, nil, []string{"locale"}, info)
	require.NoError(t, err)

	assert.Equal(t, "<core/0/GLOBAL/locale>", id.String())
}

func TestCategoryRegistry_LookupBuiltins(t *testing.T) {
	registry := BuiltinCategories()

	assert.Equal(t, 0, registry.Lookup(CategoryGlobal).PrimaryKeyLen)
	assert.Equal(t, 1, registry.Lookup(CategoryGuild).PrimaryKeyLen)
	assert.Equal(t, 2, registry.Lookup(CategoryMember).PrimaryKeyLen)
	assert.False(t, registry.Lookup(CategoryGuild).Custom)
}

func TestCategoryRegistry_LookupUnknownIsCustom(t *testing.T) {
	registry := BuiltinCategories()

	info := registry.Lookup("PLAYLIST")

	assert.True(t, info.Custom)
	assert.Equal(t, 1, info.PrimaryKeyLen)
}

func TestCategoryRegistry_Register(t *testing.T) {
	registry := BuiltinCategories()
	registry.Register("SCOREBOARD", 3)

	info := registry.Lookup("SCOREBOARD")

	assert.True(t, info.Custom)
	assert.Equal(t, 3, info.PrimaryKeyLen)
}
