package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// EXECUTOR — Keyed reporting graph
// ============================================================================
// Entry point: New(opts...), then Add*/AddStep, then Get(ctx, key).
//
// Pipeline for Get:
//   1. Check the key and everything it depends on exists, with no cycles
//   2. Evaluate inputs concurrently (errgroup), each key at most once
//      (singleflight + cache)
//   3. Run the key's computation on its inputs
//   4. Cache and return the result, named after its key
// ============================================================================

var (
	ErrUnknownKey   = errors.New("unknown key")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrCycle        = errors.New("dependency cycle")
)

// Computation produces a quantity from the quantities of its input keys.
type Computation func(ctx context.Context, inputs ...*quantity.Quantity) (*quantity.Quantity, error)

type task struct {
	op     string
	comp   Computation
	inputs []string
}

// Reporter holds a graph of keyed computations and evaluates it on demand.
// Results are cached; a Reporter is safe for concurrent use.
type Reporter struct {
	cfg *config

	mu    sync.RWMutex
	tasks map[string]task
	cache map[string]*quantity.Quantity

	flight singleflight.Group
}

// New returns an empty Reporter.
func New(opts ...Option) *Reporter {
	return &Reporter{
		cfg:   applyOptions(opts),
		tasks: make(map[string]task),
		cache: make(map[string]*quantity.Quantity),
	}
}

// Add registers comp under key. op names the computation in Describe output.
func (r *Reporter) Add(key, op string, comp Computation, inputs ...string) error {
	if key == "" {
		return errors.New("empty key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	r.tasks[key] = task{op: op, comp: comp, inputs: append([]string(nil), inputs...)}
	return nil
}

// AddQuantity registers a fixed quantity under key. Its dimension names pass
// through the reporter's rename lookup, like set mapping table columns, so
// both meet under the same names.
func (r *Reporter) AddQuantity(key string, q *quantity.Quantity) error {
	if names := r.cfg.Renames.RenameMap(q.Dims()); names != nil {
		renamed, err := q.Rename(names)
		if err != nil {
			return fmt.Errorf("quantity %q: %w", key, err)
		}
		q = renamed
	}
	return r.Add(key, "quantity", func(context.Context, ...*quantity.Quantity) (*quantity.Quantity, error) {
		return q, nil
	})
}

// AddTable registers the indicator quantity of a set mapping table under key.
// Column names pass through the reporter's rename lookup.
func (r *Reporter) AddTable(key string, t computations.Table) error {
	renames := r.cfg.Renames
	return r.Add(key, "map_as_qty", func(context.Context, ...*quantity.Quantity) (*quantity.Quantity, error) {
		return computations.MapAsQuantityWith(t, renames)
	})
}

// AddStep registers a declarative step.
func (r *Reporter) AddStep(s Step) error {
	comp, err := compileStep(s, r.cfg)
	if err != nil {
		return fmt.Errorf("step %q: %w", s.Key, err)
	}
	return r.Add(s.Key, s.Op, comp, s.Inputs...)
}

// Keys returns every registered key, sorted.
func (r *Reporter) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.tasks))
	for k := range r.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get computes key, and everything it depends on, once.
func (r *Reporter) Get(ctx context.Context, key string) (*quantity.Quantity, error) {
	if err := r.Check(key); err != nil {
		return nil, err
	}
	return r.get(ctx, key)
}

// GetAll computes keys concurrently.
func (r *Reporter) GetAll(ctx context.Context, keys ...string) (map[string]*quantity.Quantity, error) {
	for _, k := range keys {
		if err := r.Check(k); err != nil {
			return nil, err
		}
	}
	results := make([]*quantity.Quantity, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			q, err := r.get(gctx, k)
			results[i] = q
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]*quantity.Quantity, len(keys))
	for i, k := range keys {
		out[k] = results[i]
	}
	return out, nil
}

func (r *Reporter) get(ctx context.Context, key string) (*quantity.Quantity, error) {
	r.mu.RLock()
	if q, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return q, nil
	}
	t := r.tasks[key]
	r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared computation outlives any one caller; each caller stops
	// waiting on its own context.
	shared := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return r.compute(shared, key, t)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*quantity.Quantity), nil
	}
}

func (r *Reporter) compute(ctx context.Context, key string, t task) (*quantity.Quantity, error) {
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	inputs := make([]*quantity.Quantity, len(t.inputs))
	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, in := range t.inputs {
		i, in := i, in
		g.Go(func() error {
			q, err := r.get(gctx, in)
			inputs[i] = q
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	start := time.Now()
	q, err := t.comp(ctx, inputs...)
	if err != nil {
		return nil, fmt.Errorf("computing %q: %w", key, err)
	}
	q = q.WithName(key)

	r.mu.Lock()
	r.cache[key] = q
	r.mu.Unlock()

	r.cfg.Logger.Debug("computed",
		zap.String("key", key),
		zap.String("op", t.op),
		zap.Strings("inputs", t.inputs),
		zap.Int("entries", q.Len()),
		zap.Duration("took", time.Since(start)))
	return q, nil
}

// Check verifies that key and all keys it depends on are registered and that
// no key depends on itself.
func (r *Reporter) Check(key string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var visit func(k, parent string, path []string) error
	visit = func(k, parent string, path []string) error {
		switch state[k] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, k), " → "))
		}
		t, ok := r.tasks[k]
		if !ok {
			if parent == "" {
				return fmt.Errorf("%w: %q", ErrUnknownKey, k)
			}
			return fmt.Errorf("%w: %q (input of %q)", ErrUnknownKey, k, parent)
		}
		state[k] = visiting
		for _, in := range t.inputs {
			if err := visit(in, k, append(path, k)); err != nil {
				return err
			}
		}
		state[k] = done
		return nil
	}
	return visit(key, "", nil)
}

// Describe renders the computation tree behind key.
func (r *Reporter) Describe(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	var walk func(k string, depth int, seen map[string]bool)
	walk = func(k string, depth int, seen map[string]bool) {
		indent := strings.Repeat("  ", depth)
		t, ok := r.tasks[k]
		if !ok {
			fmt.Fprintf(&sb, "%s'%s': <missing>\n", indent, k)
			return
		}
		if seen[k] {
			fmt.Fprintf(&sb, "%s'%s': <cycle>\n", indent, k)
			return
		}
		fmt.Fprintf(&sb, "%s'%s':\n%s- %s(%s)\n", indent, k, indent, t.op, strings.Join(t.inputs, ", "))
		seen[k] = true
		for _, in := range t.inputs {
			walk(in, depth+1, seen)
		}
		delete(seen, k)
	}
	walk(key, 0, make(map[string]bool))
	return strings.TrimRight(sb.String(), "\n")
}
