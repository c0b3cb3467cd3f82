package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/strata/internal/core/domain"
)

// recordingSetter captures every Set call and fails the ones whose
// identifier matches failOn.
type recordingSetter struct {
	calls  []domain.Identifier
	failOn func(domain.Identifier) bool
}

func (r *recordingSetter) Set(_ context.Context, id domain.Identifier, _ any) (any, error) {
	r.calls = append(r.calls, id)
	if r.failOn != nil && r.failOn(id) {
		return nil, errors.New("write rejected")
	}
	return nil, nil
}

func TestImportData_BulkWrite(t *testing.T) {
	setter := &recordingSetter{}
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryGuild, Data: map[string]any{
			"guild-1": map[string]any{"payday": 120.0},
		}},
	}

	err := ImportData(context.Background(), setter, ns, rows, domain.BuiltinCategories())

	require.NoError(t, err)
	require.Len(t, setter.calls, 1)
	assert.Equal(t, domain.CategoryGuild, setter.calls[0].Category())
	assert.Empty(t, setter.calls[0].PrimaryKey())
}

func TestImportData_FallbackSplitsByPrimaryKey(t *testing.T) {
	// Reject category-level writes so the per-row fallback runs.
	setter := &recordingSetter{
		failOn: func(id domain.Identifier) bool { return len(id.PrimaryKey()) == 0 },
	}
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryMember, Data: map[string]any{
			"guild-1": map[string]any{
				"user-1": map[string]any{"balance": 10.0},
				"user-2": map[string]any{"balance": 20.0},
			},
		}},
	}

	err := ImportData(context.Background(), setter, ns, rows, domain.BuiltinCategories())

	require.NoError(t, err)
	// One failed bulk write, then one write per member row.
	require.Len(t, setter.calls, 3)
	for _, call := range setter.calls[1:] {
		assert.Len(t, call.PrimaryKey(), 2)
	}
}

func TestImportData_SkipsFailingRows(t *testing.T) {
	// Everything fails; the migration still finishes.
	setter := &recordingSetter{
		failOn: func(domain.Identifier) bool { return true },
	}
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryGuild, Data: map[string]any{
			"guild-1": map[string]any{"payday": 120.0},
		}},
	}

	err := ImportData(context.Background(), setter, ns, rows, domain.BuiltinCategories())

	require.NoError(t, err)
	assert.Len(t, setter.calls, 2)
}

func TestImportData_UnsplittablePayloadIsSkipped(t *testing.T) {
	setter := &recordingSetter{
		failOn: func(id domain.Identifier) bool { return len(id.PrimaryKey()) == 0 },
	}
	ns := domain.Namespace{Name: "economy", InstanceID: "0"}
	rows := []domain.CategoryData{
		{Category: domain.CategoryMember, Data: map[string]any{
			"guild-1": "not a record",
		}},
	}

	err := ImportData(context.Background(), setter, ns, rows, domain.BuiltinCategories())

	require.NoError(t, err)
	assert.Len(t, setter.calls, 1)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("doc")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestDocKey(t *testing.T) {
	info := domain.BuiltinCategories().Lookup(domain.CategoryGuild)
	id, err := domain.NewIdentifier("economy", "1", domain.CategoryGuild, []string{"g"}, nil, info)
	require.NoError(t, err)

	assert.Equal(t, "economy/1", DocKey(id))
}
