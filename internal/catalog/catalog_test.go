package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_NotEmpty(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	for _, ex := range all {
		assert.NotEmpty(t, ex.Name)
		assert.True(t, ex.Type.Valid(), "exercise %q has invalid type", ex.Name)
	}
}

func TestDisplayName(t *testing.T) {
	withShort := Exercise{Name: "Mountain Climbers", Short: "Climbers"}
	assert.Equal(t, "Climbers", withShort.DisplayName())

	plain := Exercise{Name: "Burpees"}
	assert.Equal(t, "Burpees", plain.DisplayName())

	// The embedded catalog carries at least one short name.
	found := false
	for _, ex := range All() {
		if ex.Short != "" {
			found = true
			assert.NotEqual(t, ex.Name, ex.Short, "short name of %q should differ from the full name", ex.Name)
		}
	}
	assert.True(t, found)
}

func TestAll_ReturnsCopy(t *testing.T) {
	first := All()
	first[0].Name = "mutated"

	again := All()
	assert.NotEqual(t, "mutated", again[0].Name)
}

func TestAll_EveryTypeRepresented(t *testing.T) {
	seen := make(map[Type]bool)
	for _, ex := range All() {
		seen[ex.Type] = true
	}
	for _, typ := range AllTypes {
		assert.True(t, seen[typ], "no exercise of type %q", typ)
	}
}

func TestFilter_PreservesCatalogOrder(t *testing.T) {
	all := All()
	filtered := Filter([]Type{TypeCardio, TypeSquat})

	require.NotEmpty(t, filtered)

	// Filtered list must be the subsequence of the catalog with the
	// selected types, in the same order.
	var want []Exercise
	for _, ex := range all {
		if ex.Type == TypeCardio || ex.Type == TypeSquat {
			want = append(want, ex)
		}
	}
	assert.Equal(t, want, filtered)
}

func TestFilter_EmptySelection(t *testing.T) {
	assert.Empty(t, Filter(nil))
	assert.Empty(t, Filter([]Type{}))
}

func TestFilter_SingleType(t *testing.T) {
	for _, ex := range Filter([]Type{TypeLunge}) {
		assert.Equal(t, TypeLunge, ex.Type)
	}
	require.NotEmpty(t, Filter([]Type{TypeLunge}))
}

func TestCatalog_HasAsymmetricalExercises(t *testing.T) {
	var found bool
	for _, ex := range All() {
		if ex.Asymmetrical {
			found = true
			break
		}
	}
	assert.True(t, found, "catalog needs at least one asymmetrical exercise")
}
