package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseValues() map[string]any {
	return map[string]any{
		"title":          "New laptops for the sales team",
		"description":    "Replace the 2019 fleet",
		"priority_code":  "P2",
		"category":       "hardware",
		"estimated_cost": "15000",
	}
}

func TestIsMaterialChange(t *testing.T) {
	tests := []struct {
		name     string
		patch    map[string]any
		material bool
	}{
		{
			name:     "title change",
			patch:    map[string]any{"title": "New laptops for everyone"},
			material: true,
		},
		{
			name:     "description change",
			patch:    map[string]any{"description": "Replace the whole fleet"},
			material: true,
		},
		{
			name:     "priority change",
			patch:    map[string]any{"priority_code": "P1"},
			material: true,
		},
		{
			name:     "category change",
			patch:    map[string]any{"category": "equipment"},
			material: true,
		},
		{
			name:     "cost change only",
			patch:    map[string]any{"estimated_cost": "20000"},
			material: false,
		},
		{
			name:     "same value is not a change",
			patch:    map[string]any{"title": "New laptops for the sales team"},
			material: false,
		},
		{
			name:     "absent fields never count",
			patch:    map[string]any{},
			material: false,
		},
		{
			name:     "value to null",
			patch:    map[string]any{"description": nil},
			material: true,
		},
		{
			name:     "mixed patch with one material field",
			patch:    map[string]any{"estimated_cost": "1", "category": "software"},
			material: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.material, IsMaterialChange(baseValues(), tt.patch))
		})
	}
}

func TestIsMaterialChangeNullToValue(t *testing.T) {
	old := baseValues()
	old["category"] = nil

	require.True(t, IsMaterialChange(old, map[string]any{"category": "hardware"}))
	require.False(t, IsMaterialChange(old, map[string]any{"category": nil}))
}

func TestChangedFieldsOrder(t *testing.T) {
	patch := map[string]any{
		"estimated_cost": "99",
		"watchers":       "someone",
		"title":          "Changed title",
		"category":       "software",
	}

	changed := ChangedFields(baseValues(), patch)

	// Material fields first in their fixed order, then the rest sorted.
	require.Equal(t, []string{"title", "category", "estimated_cost", "watchers"}, changed)
}

func TestChangedFieldsSkipsUnchanged(t *testing.T) {
	patch := map[string]any{
		"title":         "New laptops for the sales team", // same value
		"priority_code": "P1",
	}

	require.Equal(t, []string{"priority_code"}, ChangedFields(baseValues(), patch))
}

func TestChangedFieldsComparesCostNumerically(t *testing.T) {
	// Stored costs are decimal strings; JSON patches carry numbers. The same
	// amount in either representation is not a change.
	require.Empty(t, ChangedFields(baseValues(), map[string]any{"estimated_cost": float64(15000)}))
	require.Empty(t, ChangedFields(baseValues(), map[string]any{"estimated_cost": "15000.00"}))

	require.Equal(t, []string{"estimated_cost"},
		ChangedFields(baseValues(), map[string]any{"estimated_cost": float64(15000.5)}))
}
