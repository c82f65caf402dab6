package engine

import (
	"fmt"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// RECORD VIEW — Row-wise access to labeled data
// ============================================================================
// Output, filtering and CSV ingestion read data row by row through this
// interface.
//
// Implementations:
//   QuantityView   — entries of a Quantity, sorted by coordinates
//   SliceView      — wraps []Record (CSV, API payloads)
//   SubView        — filtered subset (indices into parent, zero-copy)
// ============================================================================

// ValueKey is the measure name under which a view exposes entry values.
const ValueKey = "value"

// RecordView provides indexed access to a dataset.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // available measure keys
}

// ============================================================================
// QUANTITY VIEW
// ============================================================================

// QuantityView exposes each stored entry of a Quantity as a row.
type QuantityView struct {
	dims    []string
	pos     map[string]int
	entries []quantity.Entry
}

// NewQuantityView creates a RecordView over q's entries.
func NewQuantityView(q *quantity.Quantity) RecordView {
	v := &QuantityView{dims: q.Dims(), pos: make(map[string]int), entries: q.Entries()}
	for i, d := range v.dims {
		v.pos[d] = i
	}
	return v
}

func (v *QuantityView) Len() int { return len(v.entries) }

func (v *QuantityView) Dimension(i int, key string) string {
	p, ok := v.pos[key]
	if !ok || i < 0 || i >= len(v.entries) {
		return ""
	}
	return v.entries[i].Coords[p]
}

func (v *QuantityView) Measure(i int, key string) float64 {
	if key != ValueKey || i < 0 || i >= len(v.entries) {
		return 0
	}
	return v.entries[i].Value
}

func (v *QuantityView) DimensionKeys() []string { return v.dims }
func (v *QuantityView) MeasureKeys() []string   { return []string{ValueKey} }

// ============================================================================
// SLICE VIEW — wraps []Record
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
type SliceView struct {
	records []Record
	dimKeys []string
}

// NewSliceView creates a RecordView from a []Record slice. Dimension keys are
// listed in the order first seen; pass dims to fix the order explicitly.
func NewSliceView(records []Record, dims ...string) RecordView {
	v := &SliceView{records: records, dimKeys: dims}
	if len(dims) == 0 {
		v.cacheKeys()
	}
	return v
}

func (v *SliceView) cacheKeys() {
	seen := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Dimensions {
			if !seen[k] {
				seen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	return v.records[i].Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) float64 {
	if key != ValueKey || i < 0 || i >= len(v.records) {
		return 0
	}
	return v.records[i].Value
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return []string{ValueKey} }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent — no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// ============================================================================
// VIEW → QUANTITY
// ============================================================================

// ToQuantity collects the rows of view into a Quantity over its dimension
// keys, reading values from measure. Rows that repeat a coordinate collapse to
// the last value.
func ToQuantity(view RecordView, measure string) (*quantity.Quantity, error) {
	dims := view.DimensionKeys()
	b := quantity.NewBuilder(dims...)
	coords := make([]string, len(dims))
	for i := 0; i < view.Len(); i++ {
		for j, d := range dims {
			coords[j] = view.Dimension(i, d)
		}
		b.Set(view.Measure(i, measure), coords...)
	}
	q, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("view to quantity: %w", err)
	}
	return q, nil
}

// Records returns q's entries as Records.
func Records(q *quantity.Quantity) []Record {
	dims := q.Dims()
	entries := q.Entries()
	out := make([]Record, len(entries))
	for i, e := range entries {
		r := Record{Dimensions: make(map[string]string, len(dims)), Value: e.Value}
		for j, d := range dims {
			r.Dimensions[d] = e.Coords[j]
		}
		out[i] = r
	}
	return out
}
