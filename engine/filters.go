package engine

import (
	"strings"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// FILTERS — Label-based selection via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per row in one loop.
// Returns a SubView (index list into parent) — zero data copy.
// ============================================================================

// ApplyFilters returns a view of rows matching all dimension filters.
// Dimensions are AND-combined; labels within a dimension are OR-combined and
// compared case-insensitively. Empty filter = no restriction.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			val := strings.ToLower(view.Dimension(i, dim))
			if !set[val] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// Select returns the entries of q whose labels pass filters. A filter on a
// dimension q does not have matches nothing.
func Select(q *quantity.Quantity, filters Filters) (*quantity.Quantity, error) {
	if filters.IsEmpty() {
		return q, nil
	}
	out, err := ToQuantity(ApplyFilters(NewQuantityView(q), filters), ValueKey)
	if err != nil {
		return nil, err
	}
	return out.WithName(q.Name()), nil
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
