package quantity

import (
	"fmt"
	"math"
	"sort"
)

// ============================================================================
// ALIGNMENT
// ============================================================================
// Binary operations align operands by dimension name. Shared dimensions match
// on equal labels; a dimension present on one side only is broadcast. The
// result carries the receiver's dimensions followed by the other operand's
// extra dimensions.
// ============================================================================

type alignment struct {
	dims    []string
	aPos    []int // result position of each dim of a
	bPos    []int // result position of each dim of b
	aOnly   []int // result positions present only in a
	bOnly   []int // result positions present only in b
	shared  [][2]int
	resultN int
}

func align(a, b *Quantity) alignment {
	al := alignment{dims: append([]string(nil), a.dims...)}
	al.aPos = make([]int, len(a.dims))
	for i := range a.dims {
		al.aPos[i] = i
	}
	al.bPos = make([]int, len(b.dims))
	for j, d := range b.dims {
		if i := a.dimIndex(d); i >= 0 {
			al.bPos[j] = i
			al.shared = append(al.shared, [2]int{i, j})
			continue
		}
		al.bPos[j] = len(al.dims)
		al.bOnly = append(al.bOnly, len(al.dims))
		al.dims = append(al.dims, d)
	}
	for i, d := range a.dims {
		if b.dimIndex(d) < 0 {
			al.aOnly = append(al.aOnly, i)
		}
	}
	al.resultN = len(al.dims)
	return al
}

// project extracts the labels at positions from full result coordinates.
func project(coords []string, positions []int) []string {
	out := make([]string, len(positions))
	for i, p := range positions {
		out[i] = coords[p]
	}
	return out
}

// combos returns the distinct label combinations q actually holds on the
// dimensions at dimIdx (indices into q.dims), sorted.
func combos(q *Quantity, dimIdx []int) [][]string {
	if len(dimIdx) == 0 {
		return [][]string{nil}
	}
	seen := make(map[string]bool)
	var out [][]string
	for _, e := range q.sorted() {
		c := project(e.coords, dimIdx)
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// sorted returns q's entries ordered by coordinates.
func (q *Quantity) sorted() []entry {
	out := make([]entry, 0, len(q.data))
	for _, e := range q.data {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return lessCoords(out[i].coords, out[j].coords) })
	return out
}

// ============================================================================
// ADD
// ============================================================================

// Add returns q + other over the union of coordinates where either operand is
// defined. Where one side has no entry, fill stands in for it. Coordinates
// undefined in both operands are never produced. The result may contain NaN,
// for example when fill is NaN; see DropNaN.
func (q *Quantity) Add(other *Quantity, fill float64) (*Quantity, error) {
	al := align(q, other)

	bOnlyIdx := make([]int, len(al.bOnly))
	for i, p := range al.bOnly {
		bOnlyIdx[i] = other.dimIndex(al.dims[p])
	}
	bCombos := combos(other, bOnlyIdx)
	aCombos := combos(q, al.aOnly)

	var out []entry
	produced := make(map[string]bool)
	emit := func(coords []string, v float64) {
		k := key(coords)
		if produced[k] {
			return
		}
		produced[k] = true
		out = append(out, entry{coords: coords, value: v})
	}

	// Entries of q, broadcast over the extra label combinations other holds.
	for _, ea := range q.sorted() {
		for _, c := range bCombos {
			coords := make([]string, al.resultN)
			copy(coords, ea.coords)
			for i, p := range al.bOnly {
				coords[p] = c[i]
			}
			vb, ok := other.At(project(coords, al.bPos)...)
			if !ok {
				vb = fill
			}
			emit(coords, ea.value+vb)
		}
	}

	// Entries of other not already covered by a defined entry of q.
	for _, eb := range other.sorted() {
		for _, c := range aCombos {
			coords := make([]string, al.resultN)
			for j, p := range al.bPos {
				coords[p] = eb.coords[j]
			}
			for i, p := range al.aOnly {
				coords[p] = c[i]
			}
			if _, ok := q.At(project(coords, al.aPos)...); ok {
				continue
			}
			emit(coords, fill+eb.value)
		}
	}

	return fromEntries("", al.dims, out), nil
}

// DropNaN returns q without entries whose value is NaN.
func (q *Quantity) DropNaN() *Quantity {
	var out []entry
	for _, e := range q.sorted() {
		if !math.IsNaN(e.value) {
			out = append(out, e)
		}
	}
	return fromEntries(q.name, append([]string(nil), q.dims...), out)
}

// ============================================================================
// MUL
// ============================================================================

// Mul returns the product of q and other. Entries join on equal labels along
// shared dimensions; remaining dimensions form an outer product. Only
// coordinates where both operands are defined appear in the result.
func (q *Quantity) Mul(other *Quantity) (*Quantity, error) {
	al := align(q, other)

	aShared := make([]int, len(al.shared))
	bShared := make([]int, len(al.shared))
	for i, s := range al.shared {
		aShared[i], bShared[i] = s[0], s[1]
	}

	buckets := make(map[string][]entry)
	for _, eb := range other.sorted() {
		k := key(project(eb.coords, bShared))
		buckets[k] = append(buckets[k], eb)
	}

	var out []entry
	for _, ea := range q.sorted() {
		for _, eb := range buckets[key(project(ea.coords, aShared))] {
			coords := make([]string, al.resultN)
			for j, p := range al.bPos {
				coords[p] = eb.coords[j]
			}
			copy(coords, ea.coords)
			out = append(out, entry{coords: coords, value: ea.value * eb.value})
		}
	}
	return fromEntries("", al.dims, out), nil
}

// ============================================================================
// REDUCTION
// ============================================================================

// Drop removes dim from q. Entries that coincide on the remaining dimensions
// are summed.
func (q *Quantity) Drop(dim string) (*Quantity, error) {
	return q.Sum(dim)
}

// Sum removes each of dims from q, summing entries that coincide on the
// remaining dimensions.
func (q *Quantity) Sum(dims ...string) (*Quantity, error) {
	drop := make(map[int]bool, len(dims))
	for _, d := range dims {
		i := q.dimIndex(d)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q not in %v", ErrMissingDimension, d, q.dims)
		}
		drop[i] = true
	}
	var keep []int
	var kept []string
	for i, d := range q.dims {
		if !drop[i] {
			keep = append(keep, i)
			kept = append(kept, d)
		}
	}

	b := NewBuilder(kept...)
	for _, e := range q.sorted() {
		b.Accumulate(e.value, project(e.coords, keep)...)
	}
	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	out.name = q.name
	return out, nil
}

// Reduce collapses every dimension not in keep using fn over the values that
// coincide on the kept dimensions.
func (q *Quantity) Reduce(keep []string, fn func([]float64) float64) (*Quantity, error) {
	pos := make([]int, len(keep))
	for i, d := range keep {
		pos[i] = q.dimIndex(d)
		if pos[i] < 0 {
			return nil, fmt.Errorf("%w: %q not in %v", ErrMissingDimension, d, q.dims)
		}
	}
	groups := make(map[string][]float64)
	var order [][]string
	for _, e := range q.sorted() {
		c := project(e.coords, pos)
		k := key(c)
		if _, ok := groups[k]; !ok {
			order = append(order, c)
		}
		groups[k] = append(groups[k], e.value)
	}
	b := NewBuilder(keep...)
	for _, c := range order {
		b.Set(fn(groups[key(c)]), c...)
	}
	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	out.name = q.name
	return out, nil
}

// ============================================================================
// RELABELLING
// ============================================================================

// Rename returns q with dimensions renamed per names (old → new). Names that
// are not dimensions of q are ignored.
func (q *Quantity) Rename(names map[string]string) (*Quantity, error) {
	dims := make([]string, len(q.dims))
	seen := make(map[string]bool, len(dims))
	for i, d := range q.dims {
		if n, ok := names[d]; ok {
			d = n
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: rename produces %q twice", ErrDuplicateDimension, d)
		}
		seen[d] = true
		dims[i] = d
	}
	out := *q
	out.dims = dims
	return &out, nil
}

// Transpose returns q with its dimensions in the given order, which must be a
// permutation of q's dimensions.
func (q *Quantity) Transpose(dims ...string) (*Quantity, error) {
	if len(dims) != len(q.dims) {
		return nil, fmt.Errorf("%w: transpose to %v from %v", ErrArity, dims, q.dims)
	}
	pos := make([]int, len(dims))
	for i, d := range dims {
		pos[i] = q.dimIndex(d)
		if pos[i] < 0 {
			return nil, fmt.Errorf("%w: %q not in %v", ErrMissingDimension, d, q.dims)
		}
	}
	b := NewBuilder(dims...)
	for _, e := range q.sorted() {
		b.Set(e.value, project(e.coords, pos)...)
	}
	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	out.name = q.name
	return out, nil
}
