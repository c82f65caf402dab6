// Package quantity implements sparse, labeled, multi-dimensional numeric arrays.
//
// A Quantity has an ordered list of named dimensions. Each stored value is keyed
// by one label per dimension. A coordinate with no stored value is undefined,
// which is not the same as a stored 0: undefined entries never take part in
// products and are never materialised by sums.
//
// Quantities are immutable. Every operation returns a new Quantity, so values
// can be shared freely between goroutines.
package quantity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrMissingDimension   = errors.New("missing dimension")
	ErrDuplicateDimension = errors.New("duplicate dimension")
	ErrArity              = errors.New("wrong number of coordinates")
	ErrOverlap            = errors.New("overlapping coordinates")
	ErrLabel              = errors.New("invalid label")
)

// keySep joins coordinate labels into a map key. Builder rejects labels
// containing it.
const keySep = "\x00"

// ============================================================================
// QUANTITY
// ============================================================================

// Quantity is a sparse labeled array.
type Quantity struct {
	name   string
	dims   []string
	labels [][]string // per dimension, first-seen order
	data   map[string]entry
}

type entry struct {
	coords []string
	value  float64
}

// Entry is one stored value and its coordinates, in dimension order.
type Entry struct {
	Coords []string
	Value  float64
}

// Scalar returns a 0-dimensional quantity holding v.
func Scalar(v float64) *Quantity {
	b := NewBuilder()
	b.Set(v)
	q, _ := b.Build()
	return q
}

// Name returns the quantity's name, if any.
func (q *Quantity) Name() string { return q.name }

// WithName returns a copy of q carrying name. Values are shared, not copied.
func (q *Quantity) WithName(name string) *Quantity {
	out := *q
	out.name = name
	return &out
}

// Dims returns the dimension names in order.
func (q *Quantity) Dims() []string {
	return append([]string(nil), q.dims...)
}

// NDim returns the number of dimensions.
func (q *Quantity) NDim() int { return len(q.dims) }

// Len returns the number of stored (defined) entries.
func (q *Quantity) Len() int { return len(q.data) }

// HasDim reports whether dim is one of q's dimensions.
func (q *Quantity) HasDim(dim string) bool { return q.dimIndex(dim) >= 0 }

func (q *Quantity) dimIndex(dim string) int {
	for i, d := range q.dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Coords returns the labels of dim in first-seen order, or nil if q has no such dimension.
func (q *Quantity) Coords(dim string) []string {
	i := q.dimIndex(dim)
	if i < 0 {
		return nil
	}
	return append([]string(nil), q.labels[i]...)
}

// At returns the value at coords, given one label per dimension in order.
func (q *Quantity) At(coords ...string) (float64, bool) {
	if len(coords) != len(q.dims) {
		return 0, false
	}
	e, ok := q.data[key(coords)]
	return e.value, ok
}

// Get returns the value at the coordinate named by labels (dimension → label).
func (q *Quantity) Get(labels map[string]string) (float64, bool) {
	coords := make([]string, len(q.dims))
	for i, d := range q.dims {
		l, ok := labels[d]
		if !ok {
			return 0, false
		}
		coords[i] = l
	}
	return q.At(coords...)
}

// Entries returns all stored entries sorted by coordinates.
func (q *Quantity) Entries() []Entry {
	out := make([]Entry, 0, len(q.data))
	for _, e := range q.data {
		out = append(out, Entry{Coords: append([]string(nil), e.coords...), Value: e.value})
	}
	sort.Slice(out, func(i, j int) bool { return lessCoords(out[i].Coords, out[j].Coords) })
	return out
}

// Equal reports whether q and other hold the same values over the same
// dimensions. Dimension order and names of the quantities are ignored.
func (q *Quantity) Equal(other *Quantity) bool {
	if q.NDim() != other.NDim() || q.Len() != other.Len() {
		return false
	}
	perm := make([]int, len(q.dims))
	for i, d := range q.dims {
		perm[i] = other.dimIndex(d)
		if perm[i] < 0 {
			return false
		}
	}
	coords := make([]string, len(q.dims))
	for _, e := range q.data {
		for i, c := range e.coords {
			coords[perm[i]] = c
		}
		v, ok := other.At(coords...)
		if !ok || !sameValue(v, e.value) {
			return false
		}
	}
	return true
}

// String renders q as one "dim=label,... value" line per entry.
func (q *Quantity) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<Quantity %s dims=%v len=%d>", q.name, q.dims, q.Len())
	for _, e := range q.Entries() {
		sb.WriteString("\n  ")
		for i, c := range e.Coords {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(q.dims[i] + "=" + c)
		}
		fmt.Fprintf(&sb, " %g", e.Value)
	}
	return sb.String()
}

// ============================================================================
// BUILDER
// ============================================================================

// Builder accumulates entries for a new Quantity.
type Builder struct {
	dims  []string
	order []string
	data  map[string]entry
	err   error
}

// NewBuilder starts a quantity with the given dimensions.
func NewBuilder(dims ...string) *Builder {
	b := &Builder{dims: append([]string(nil), dims...), data: make(map[string]entry)}
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if seen[d] {
			b.err = fmt.Errorf("%w: %q", ErrDuplicateDimension, d)
			break
		}
		seen[d] = true
	}
	return b
}

// Set stores v at coords, replacing any previous value.
func (b *Builder) Set(v float64, coords ...string) *Builder {
	k, ok := b.check(coords)
	if !ok {
		return b
	}
	if _, exists := b.data[k]; !exists {
		b.order = append(b.order, k)
	}
	b.data[k] = entry{coords: append([]string(nil), coords...), value: v}
	return b
}

// Accumulate adds v to the value at coords, defining it if absent.
func (b *Builder) Accumulate(v float64, coords ...string) *Builder {
	k, ok := b.check(coords)
	if !ok {
		return b
	}
	if e, exists := b.data[k]; exists {
		e.value += v
		b.data[k] = e
		return b
	}
	b.order = append(b.order, k)
	b.data[k] = entry{coords: append([]string(nil), coords...), value: v}
	return b
}

func (b *Builder) check(coords []string) (string, bool) {
	if b.err != nil {
		return "", false
	}
	if len(coords) != len(b.dims) {
		b.err = fmt.Errorf("%w: got %d for dims %v", ErrArity, len(coords), b.dims)
		return "", false
	}
	for i, c := range coords {
		if strings.Contains(c, keySep) {
			b.err = fmt.Errorf("%w: %q of dim %q contains NUL", ErrLabel, c, b.dims[i])
			return "", false
		}
	}
	return key(coords), true
}

// Build returns the quantity, or the first error recorded while building.
func (b *Builder) Build() (*Quantity, error) {
	if b.err != nil {
		return nil, b.err
	}
	q := &Quantity{
		dims:   append([]string(nil), b.dims...),
		labels: make([][]string, len(b.dims)),
		data:   make(map[string]entry, len(b.data)),
	}
	seen := make([]map[string]bool, len(b.dims))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}
	for _, k := range b.order {
		e := b.data[k]
		q.data[k] = e
		for i, c := range e.coords {
			if !seen[i][c] {
				seen[i][c] = true
				q.labels[i] = append(q.labels[i], c)
			}
		}
	}
	return q, nil
}

// ============================================================================
// SERIES — indexed numeric series → Quantity
// ============================================================================

// Series is an indexed numeric column: Dims names the index levels and each
// row carries one label per level.
type Series struct {
	Name string
	Dims []string
	Rows []Entry
}

// FromSeries converts s into a Quantity. Repeated index rows collapse to one
// entry holding the last value.
func FromSeries(s Series) (*Quantity, error) {
	b := NewBuilder(s.Dims...)
	for _, r := range s.Rows {
		b.Set(r.Value, r.Coords...)
	}
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	q.name = s.Name
	return q, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func key(coords []string) string {
	return strings.Join(coords, keySep)
}

func lessCoords(a, b []string) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// fromEntries builds a quantity over dims from entries whose coords are
// already unique and owned by the caller.
func fromEntries(name string, dims []string, entries []entry) *Quantity {
	q := &Quantity{
		name:   name,
		dims:   dims,
		labels: make([][]string, len(dims)),
		data:   make(map[string]entry, len(entries)),
	}
	seen := make([]map[string]bool, len(dims))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}
	for _, e := range entries {
		q.data[key(e.coords)] = e
		for i, c := range e.coords {
			if !seen[i][c] {
				seen[i][c] = true
				q.labels[i] = append(q.labels[i], c)
			}
		}
	}
	return q
}
