// Package computations implements the reporting operations over quantities:
// filled addition, conversion of a set mapping table into an indicator
// quantity, and broadcasting a quantity through such an indicator.
//
// All functions are pure. They never modify their arguments and are safe to
// call from any number of goroutines.
package computations

import (
	"errors"
	"fmt"

	"github.com/spektr-org/quanta/dims"
	"github.com/spektr-org/quanta/quantity"
)

var (
	ErrTableShape = errors.New("association table must have exactly two columns")
	ErrNotAMap    = errors.New("map must be a 2-dimensional quantity")
)

// ============================================================================
// ADD
// ============================================================================

// Add returns the sum of a and b. Where one operand has no value at a
// coordinate, fillValue is used in its place. Coordinates that neither operand
// defines are absent from the result, as are sums that are NaN.
func Add(a, b *quantity.Quantity, fillValue float64) (*quantity.Quantity, error) {
	sum, err := a.Add(b, fillValue)
	if err != nil {
		return nil, err
	}
	return sum.DropNaN(), nil
}

// ============================================================================
// MAP AS QUANTITY
// ============================================================================

// MapAsQuantity converts a two-column set mapping table into an indicator
// quantity, renaming the columns with dims.Default.
//
// At (s1, s2) the result is 1 if the row (s1, s2) appears in t. Other
// coordinates are undefined, never 0. Repeated rows give a single entry.
func MapAsQuantity(t Table) (*quantity.Quantity, error) {
	return MapAsQuantityWith(t, dims.Default)
}

// MapAsQuantityWith is MapAsQuantity with an explicit rename lookup. A nil
// lookup keeps the column names as they are.
func MapAsQuantityWith(t Table, lookup dims.Lookup) (*quantity.Quantity, error) {
	if len(t.Columns) != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTableShape, len(t.Columns))
	}
	setFrom, setTo := t.Columns[0], t.Columns[1]

	b := quantity.NewBuilder(lookup.Canonical(setFrom), lookup.Canonical(setTo))
	for i, row := range t.Rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrTableShape, i, len(row))
		}
		b.Set(1, row[0], row[1])
	}
	q, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("map %s → %s: %w", setFrom, setTo, err)
	}
	return q, nil
}

// ============================================================================
// BROADCAST MAP
// ============================================================================

// BroadcastMap re-expresses q along the second dimension of m.
//
// m must have exactly two dimensions [d0, d1], typically the output of
// MapAsQuantity. The product q·m is formed, d0 (the first dimension of m) is
// dropped by summing over it, and rename (old → new) is applied to what
// remains. Values of q whose d0 label maps to several d1 labels appear under
// each of them; several d0 labels mapping to one d1 label are summed.
func BroadcastMap(q, m *quantity.Quantity, rename map[string]string) (*quantity.Quantity, error) {
	if m.NDim() != 2 {
		return nil, fmt.Errorf("%w: got dims %v", ErrNotAMap, m.Dims())
	}
	product, err := q.Mul(m)
	if err != nil {
		return nil, err
	}
	dropped, err := product.Drop(m.Dims()[0])
	if err != nil {
		return nil, err
	}
	return dropped.Rename(rename)
}

// ============================================================================
// PRODUCT / CONCAT
// ============================================================================

// Product multiplies qs left to right. It needs at least one operand.
func Product(qs ...*quantity.Quantity) (*quantity.Quantity, error) {
	if len(qs) == 0 {
		return nil, errors.New("product of no quantities")
	}
	out := qs[0]
	for _, q := range qs[1:] {
		var err error
		if out, err = out.Mul(q); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Concat joins quantities over the same set of dimensions into one. The
// dimension order of the first operand is kept. A coordinate defined by more
// than one operand is an error.
func Concat(qs ...*quantity.Quantity) (*quantity.Quantity, error) {
	if len(qs) == 0 {
		return nil, errors.New("concat of no quantities")
	}
	order := qs[0].Dims()
	b := quantity.NewBuilder(order...)
	seen := make(map[string]bool)
	for i, q := range qs {
		aligned, err := q.Transpose(order...)
		if err != nil {
			return nil, fmt.Errorf("concat operand %d: %w", i, err)
		}
		for _, e := range aligned.Entries() {
			k := fmt.Sprintf("%q", e.Coords)
			if seen[k] {
				return nil, fmt.Errorf("%w: %v in operand %d", quantity.ErrOverlap, e.Coords, i)
			}
			seen[k] = true
			b.Set(e.Value, e.Coords...)
		}
	}
	return b.Build()
}
