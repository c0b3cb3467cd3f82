package memory

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

func TestDriver_SetAndGet(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"guild-1"}, "payday")

	stored, err := d.Set(context.Background(), id, 120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, stored)

	value, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 120.0, value)
}

func TestDriver_GetMissing(t *testing.T) {
	d := NewDriver()

	_, err := d.Get(context.Background(), ident(t, domain.CategoryGlobal, nil, "locale"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_GetSubtree(t *testing.T) {
	d := NewDriver()
	require.NoError(t, setValue(d, ident(t, domain.CategoryGuild, []string{"g"}, "a"), 1))
	require.NoError(t, setValue(d, ident(t, domain.CategoryGuild, []string{"g"}, "b"), 2))

	value, err := d.Get(context.Background(), ident(t, domain.CategoryGuild, []string{"g"}))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, value)
}

func setValue(d *Driver, id domain.Identifier, v any) error {
	_, err := d.Set(context.Background(), id, v)
	return err
}

func TestDriver_GetReturnsCopy(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"g"})
	require.NoError(t, setValue(d, id, map[string]any{"prefix": "!"}))

	value, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	value.(map[string]any)["prefix"] = "mutated"

	again, err := d.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "!", again.(map[string]any)["prefix"])
}

func TestDriver_Clear(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "prefix")
	require.NoError(t, setValue(d, id, "!"))

	require.NoError(t, d.Clear(context.Background(), id))

	_, err := d.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_ClearMissingIsNoOp(t *testing.T) {
	d := NewDriver()

	err := d.Clear(context.Background(), ident(t, domain.CategoryGuild, []string{"g"}, "prefix"))

	assert.NoError(t, err)
}

func TestDriver_IncrementSeedsFromDefault(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryUser, []string{"u"}, "balance")

	result, err := d.Increment(context.Background(), id, 5, 100)

	require.NoError(t, err)
	assert.Equal(t, 105.0, result)
}

func TestDriver_IncrementTypeMismatch(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryUser, []string{"u"}, "balance")
	require.NoError(t, setValue(d, id, "not a number"))

	_, err := d.Increment(context.Background(), id, 1, 0)

	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDriver_IncrementConcurrent(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryUser, []string{"u"}, "balance")

	var wg sync.WaitGroup
	for range 20 {
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
	assert.Equal(t, 20.0, value)
}

func TestDriver_ToggleFlips(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "enabled")

	first, err := d.Toggle(context.Background(), id, nil, false)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := d.Toggle(context.Background(), id, nil, false)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestDriver_ToggleExplicitValue(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "enabled")
	target := false

	result, err := d.Toggle(context.Background(), id, &target, true)

	require.NoError(t, err)
	assert.False(t, result)
}

func TestDriver_ToggleExplicitValueTypeMismatch(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGuild, []string{"g"}, "enabled")
	require.NoError(t, setValue(d, id, "not a bool"))
	target := true

	_, err := d.Toggle(context.Background(), id, &target, false)

	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDriver_ImportData(t *testing.T) {
	d := NewDriver()
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryGlobal, Data: map[string]any{"rate": 1.5}},
		{Category: domain.CategoryGuild, Data: map[string]any{
			"g": map[string]any{"payday": 120.0},
		}},
	}

	err := d.ImportData(context.Background(), ns, rows, domain.BuiltinCategories())
	require.NoError(t, err)

	value, err := d.Get(context.Background(), ident(t, domain.CategoryGuild, []string{"g"}, "payday"))
	require.NoError(t, err)
	assert.Equal(t, 120.0, value)
}

func TestDriver_DeleteAllDataRequiresConfirmation(t *testing.T) {
	d := NewDriver()
	id := ident(t, domain.CategoryGlobal, nil, "locale")
	require.NoError(t, setValue(d, id, "en-US"))

	err := d.DeleteAllData(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)

	require.NoError(t, d.DeleteAllData(context.Background(), true))

	_, err = d.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_Namespaces(t *testing.T) {
	d := NewDriver()
	require.NoError(t, setValue(d, ident(t, domain.CategoryGlobal, nil, "k"), 1))

	var seen []domain.Namespace
	for ns, err := range d.Namespaces(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, ns)
	}

	assert.Equal(t, []domain.Namespace{{Name: "economy", InstanceID: "0"}}, seen)
}
