package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/dims"
	"github.com/spektr-org/quanta/quantity"
)

// ErrBadStep reports a step that cannot be compiled.
var ErrBadStep = errors.New("invalid step")

// opSpec describes one step operation: how many inputs it takes (max < 0 means
// unbounded) and how to build its computation.
type opSpec struct {
	min, max int
	build    func(s Step, cfg *config) Computation
}

var ops = map[string]opSpec{
	"add": {2, 2, func(s Step, cfg *config) Computation {
		fill := cfg.FillValue
		if s.FillValue != nil {
			fill = *s.FillValue
		}
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return computations.Add(in[0], in[1], fill)
		}
	}},
	"product": {1, -1, func(Step, *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return computations.Product(in...)
		}
	}},
	"broadcast_map": {2, 2, func(s Step, _ *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return computations.BroadcastMap(in[0], in[1], s.Rename)
		}
	}},
	"concat": {1, -1, func(Step, *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return computations.Concat(in...)
		}
	}},
	"sum": {1, 1, func(s Step, _ *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return in[0].Sum(s.Dims...)
		}
	}},
	"aggregate": {1, 1, func(s Step, _ *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return Aggregate(in[0], s.Dims, s.Aggregation)
		}
	}},
	"select": {1, 1, func(s Step, _ *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return Select(in[0], s.Filters)
		}
	}},
	"rename": {1, 1, func(s Step, _ *config) Computation {
		return func(_ context.Context, in ...*quantity.Quantity) (*quantity.Quantity, error) {
			return in[0].Rename(s.Rename)
		}
	}},
}

// Ops returns the names of the operations a Step may use, sorted.
func Ops() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateStep checks s without registering it.
func ValidateStep(s Step) error {
	if s.Key == "" {
		return fmt.Errorf("%w: missing key", ErrBadStep)
	}
	op, ok := ops[s.Op]
	if !ok {
		return fmt.Errorf("%w: unknown op %q", ErrBadStep, s.Op)
	}
	n := len(s.Inputs)
	if n < op.min || (op.max >= 0 && n > op.max) {
		return fmt.Errorf("%w: %s takes %s inputs, got %d", ErrBadStep, s.Op, arity(op), n)
	}
	if s.Op == "aggregate" {
		if _, ok := aggregators[s.Aggregation]; !ok {
			return fmt.Errorf("%w: unknown aggregation %q", ErrBadStep, s.Aggregation)
		}
	}
	return nil
}

func compileStep(s Step, cfg *config) (Computation, error) {
	if err := ValidateStep(s); err != nil {
		return nil, err
	}
	return ops[s.Op].build(canonicalStep(s, cfg.Renames), cfg), nil
}

// canonicalStep passes the dimension names s refers to through lookup, so
// steps may name dimensions the way their input files do.
func canonicalStep(s Step, lookup dims.Lookup) Step {
	if len(lookup) == 0 {
		return s
	}
	if len(s.Dims) > 0 {
		s.Dims = lookup.CanonicalAll(s.Dims)
	}
	if s.Rename != nil {
		rename := make(map[string]string, len(s.Rename))
		for old, name := range s.Rename {
			rename[lookup.Canonical(old)] = lookup.Canonical(name)
		}
		s.Rename = rename
	}
	if s.Filters.Dimensions != nil {
		filters := make(map[string][]string, len(s.Filters.Dimensions))
		for dim, labels := range s.Filters.Dimensions {
			filters[lookup.Canonical(dim)] = labels
		}
		s.Filters = Filters{Dimensions: filters}
	}
	return s
}

func arity(op opSpec) string {
	switch {
	case op.max < 0:
		return fmt.Sprintf("at least %d", op.min)
	case op.min == op.max:
		return fmt.Sprintf("%d", op.min)
	default:
		return fmt.Sprintf("%d–%d", op.min, op.max)
	}
}
