package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/strata/internal/core/domain"
)

func ident(t *testing.T, category string, primaryKey []string, keys ...string) domain.Identifier {
	t.Helper()
	info := domain.BuiltinCategories().Lookup(category)
	id, err := domain.NewIdentifier("economy", "0", category, primaryKey, keys, info)
	require.NoError(t, err)
	return id
}

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := NewDriver(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDriver_SetAndGet(t *testing.T) {
	d := newTestDriver(t)
	id := ident(t, domain.CategoryGuild, []string{"g"}, "payday")

	stored, err := d.Set(context.Background(), id, 120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, stored)

	value, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 120.0, value)
}

func TestDriver_GetMissing(t *testing.T) {
	d := newTestDriver(t)

	_, err := d.Get(context.Background(), ident(t, domain.CategoryGlobal, nil, "locale"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_GetSubtree(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	_, err := d.Set(ctx, ident(t, domain.CategoryGuild, []string{"g"}, "a"), 1)
	require.NoError(t, err)
	_, err = d.Set(ctx, ident(t, domain.CategoryGuild, []string{"g"}, "b"), true)
	require.NoError(t, err)

	value, err := d.Get(ctx, ident(t, domain.CategoryGuild, []string{"g"}))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": true}, value)
}

func TestDriver_ValueShapes(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	cases := map[string]any{
		"string": "hello",
		"number": 2.5,
		"bool":   true,
		"null":   nil,
		"list":   []any{1.0, "two"},
		"map":    map[string]any{"nested": false},
	}
	for key, want := range cases {
		id := ident(t, domain.CategoryGlobal, nil, key)
		_, err := d.Set(ctx, id, want)
		require.NoError(t, err)

		got, err := d.Get(ctx, id)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
}

func TestDriver_SetReplacesSubtree(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	_, err := d.Set(ctx, ident(t, domain.CategoryGuild, []string{"g"}), map[string]any{"a": 1.0, "b": 2.0})
	require.NoError(t, err)

	_, err = d.Set(ctx, ident(t, domain.CategoryGuild, []string{"g"}), map[string]any{"c": 3.0})
	require.NoError(t, err)

	value, err := d.Get(ctx, ident(t, domain.CategoryGuild, []string{"g"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"c": 3.0}, value)
}

func TestDriver_Clear(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "prefix")
	_, err := d.Set(ctx, id, "!")
	require.NoError(t, err)

	require.NoError(t, d.Clear(ctx, id))

	_, err = d.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDriver(dir)
	require.NoError(t, err)

	id := ident(t, domain.CategoryGlobal, nil, "locale")
	_, err = d.Set(context.Background(), id, "en-US")
	require.NoError(t, err)
	require.NoError(t, d.Close())

	reopened, err := NewDriver(dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "en-US", value)
}

func TestDriver_IncrementSeedsFromDefault(t *testing.T) {
	d := newTestDriver(t)

	result, err := d.Increment(context.Background(), ident(t, domain.CategoryUser, []string{"u"}, "balance"), 5, 100)

	require.NoError(t, err)
	assert.Equal(t, 105.0, result)
}

func TestDriver_IncrementTypeMismatch(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	id := ident(t, domain.CategoryUser, []string{"u"}, "balance")
	_, err := d.Set(ctx, id, "not a number")
	require.NoError(t, err)

	_, err = d.Increment(ctx, id, 1, 0)

	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDriver_IncrementConcurrent(t *testing.T) {
	d := newTestDriver(t)
	id := ident(t, domain.CategoryUser, []string{"u"}, "balance")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Increment(context.Background(), id, 1, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 10.0, value)
}

func TestDriver_ToggleFlips(t *testing.T) {
	d := newTestDriver(t)
	id := ident(t, domain.CategoryGuild, []string{"g"}, "enabled")

	first, err := d.Toggle(context.Background(), id, nil, false)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := d.Toggle(context.Background(), id, nil, false)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestDriver_ToggleExplicitValueTypeMismatch(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "enabled")
	_, err := d.Set(ctx, id, "not a bool")
	require.NoError(t, err)
	target := true

	_, err = d.Toggle(ctx, id, &target, false)

	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDriver_ImportData(t *testing.T) {
	d := newTestDriver(t)
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryMember, Data: map[string]any{
			"g": map[string]any{
				"u": map[string]any{"balance": 10.0},
			},
		}},
	}

	err := d.ImportData(context.Background(), ns, rows, domain.BuiltinCategories())
	require.NoError(t, err)

	value, err := d.Get(context.Background(), ident(t, domain.CategoryMember, []string{"g", "u"}, "balance"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, value)
}

func TestDriver_DeleteAllData(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	id := ident(t, domain.CategoryGlobal, nil, "k")
	_, err := d.Set(ctx, id, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, d.DeleteAllData(ctx, false), domain.ErrConfirmationRequired)
	require.NoError(t, d.DeleteAllData(ctx, true))

	_, err = d.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_Namespaces(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()
	_, err := d.Set(ctx, ident(t, domain.CategoryGlobal, nil, "k"), 1)
	require.NoError(t, err)

	var seen []domain.Namespace
	for ns, err := range d.Namespaces(ctx) {
		require.NoError(t, err)
		seen = append(seen, ns)
	}

	assert.Equal(t, []domain.Namespace{{Name: "economy", InstanceID: "0"}}, seen)
}
