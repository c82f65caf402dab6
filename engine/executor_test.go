package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/quantity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustQ(t *testing.T, dims []string, rows ...quantity.Entry) *quantity.Quantity {
	t.Helper()
	q, err := quantity.FromSeries(quantity.Series{Dims: dims, Rows: rows})
	require.NoError(t, err)
	return q
}

func row(v float64, coords ...string) quantity.Entry {
	return quantity.Entry{Coords: coords, Value: v}
}

func newTestReporter(t *testing.T, opts ...Option) *Reporter {
	t.Helper()
	r := New(append([]Option{WithLogger(zap.NewNop()), WithRenames(nil)}, opts...)...)
	require.NoError(t, r.AddQuantity("out", mustQ(t, []string{"technology"},
		row(5, "coal"), row(3, "gas"), row(2, "wind"))))
	require.NoError(t, r.AddTable("cat_tec", computations.NewTable([]string{"technology", "category"},
		[]string{"coal", "fossil"}, []string{"gas", "fossil"}, []string{"wind", "renewable"})))
	return r
}

func TestReporterBroadcastStep(t *testing.T) {
	r := newTestReporter(t)
	require.NoError(t, r.AddStep(Step{Key: "out:category", Op: "broadcast_map", Inputs: []string{"out", "cat_tec"}}))

	q, err := r.Get(context.Background(), "out:category")
	require.NoError(t, err)

	assert.Equal(t, "out:category", q.Name())
	v, ok := q.At("fossil")
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	v, _ = q.At("renewable")
	assert.Equal(t, 2.0, v)
}

func TestReporterAddStepUsesDefaultFill(t *testing.T) {
	r := newTestReporter(t, WithFillValue(100))
	require.NoError(t, r.AddQuantity("extra", mustQ(t, []string{"technology"}, row(1, "solar"))))
	require.NoError(t, r.AddStep(Step{Key: "sum", Op: "add", Inputs: []string{"out", "extra"}}))

	one := 1.0
	require.NoError(t, r.AddStep(Step{Key: "sum1", Op: "add", Inputs: []string{"out", "extra"}, FillValue: &one}))

	got, err := r.GetAll(context.Background(), "sum", "sum1")
	require.NoError(t, err)

	v, _ := got["sum"].At("solar")
	assert.Equal(t, 101.0, v)
	v, _ = got["sum1"].At("coal")
	assert.Equal(t, 6.0, v)
}

func TestReporterAppliesRenames(t *testing.T) {
	r := New(WithRenames(map[string]string{"technology": "t"}))
	require.NoError(t, r.AddTable("map", computations.NewTable([]string{"technology", "category"}, []string{"coal", "fossil"})))

	q, err := r.Get(context.Background(), "map")
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "category"}, q.Dims())
}

func TestReporterDefaultRenamesReachQuantities(t *testing.T) {
	r := New()
	require.NoError(t, r.AddQuantity("out", mustQ(t, []string{"technology", "year"},
		row(5, "coal", "2020"), row(3, "gas", "2020"), row(2, "wind", "2020"))))
	require.NoError(t, r.AddTable("cat_tec", computations.NewTable([]string{"technology", "category"},
		[]string{"coal", "fossil"}, []string{"gas", "fossil"}, []string{"wind", "renewable"})))
	require.NoError(t, r.AddStep(Step{Key: "by_cat", Op: "broadcast_map", Inputs: []string{"out", "cat_tec"},
		Rename: map[string]string{"category": "technology"}}))
	require.NoError(t, r.AddStep(Step{Key: "by_year", Op: "sum", Inputs: []string{"out"}, Dims: []string{"technology"}}))
	require.NoError(t, r.AddStep(Step{Key: "coal", Op: "select", Inputs: []string{"out"},
		Filters: Filters{Dimensions: map[string][]string{"technology": {"coal"}}}}))

	got, err := r.GetAll(context.Background(), "out", "by_cat", "by_year", "coal")
	require.NoError(t, err)

	assert.Equal(t, []string{"t", "y"}, got["out"].Dims())

	assert.Equal(t, []string{"y", "t"}, got["by_cat"].Dims())
	assert.Equal(t, 2, got["by_cat"].Len())
	v, ok := got["by_cat"].Get(map[string]string{"t": "fossil", "y": "2020"})
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	v, _ = got["by_cat"].Get(map[string]string{"t": "renewable", "y": "2020"})
	assert.Equal(t, 2.0, v)

	v, _ = got["by_year"].At("2020")
	assert.Equal(t, 10.0, v)
	assert.Equal(t, 1, got["coal"].Len())
}

func TestReporterComputesEachKeyOnce(t *testing.T) {
	r := New(WithConcurrency(2))
	var calls int32
	require.NoError(t, r.Add("base", "counted", func(context.Context, ...*quantity.Quantity) (*quantity.Quantity, error) {
		atomic.AddInt32(&calls, 1)
		return quantity.Scalar(1), nil
	}))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddStep(Step{Key: k, Op: "product", Inputs: []string{"base"}}))
	}
	require.NoError(t, r.AddStep(Step{Key: "top", Op: "product", Inputs: []string{"a", "b", "c"}}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Get(context.Background(), "top")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestReporterErrors(t *testing.T) {
	r := newTestReporter(t)

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)

	assert.ErrorIs(t, r.AddQuantity("out", quantity.Scalar(1)), ErrDuplicateKey)

	require.NoError(t, r.AddStep(Step{Key: "x", Op: "product", Inputs: []string{"y"}}))
	require.NoError(t, r.AddStep(Step{Key: "y", Op: "product", Inputs: []string{"x"}}))
	_, err = r.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCycle)

	require.NoError(t, r.AddStep(Step{Key: "dangling", Op: "product", Inputs: []string{"missing"}}))
	_, err = r.Get(context.Background(), "dangling")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestReporterPropagatesComputationErrors(t *testing.T) {
	r := newTestReporter(t)
	require.NoError(t, r.AddStep(Step{Key: "bad", Op: "sum", Inputs: []string{"out"}, Dims: []string{"year"}}))

	_, err := r.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, quantity.ErrMissingDimension)
	assert.Contains(t, err.Error(), `computing "bad"`)

	boom := errors.New("boom")
	require.NoError(t, r.Add("fails", "custom", func(context.Context, ...*quantity.Quantity) (*quantity.Quantity, error) {
		return nil, boom
	}))
	require.NoError(t, r.AddStep(Step{Key: "after", Op: "product", Inputs: []string{"out", "fails"}}))
	_, err = r.Get(context.Background(), "after")
	assert.ErrorIs(t, err, boom)
}

func TestReporterCancelledContext(t *testing.T) {
	r := newTestReporter(t)
	require.NoError(t, r.AddStep(Step{Key: "p", Op: "product", Inputs: []string{"out"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Get(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReporterCancelledCallerDoesNotFailOthers(t *testing.T) {
	r := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	require.NoError(t, r.Add("slow", "slow", func(context.Context, ...*quantity.Quantity) (*quantity.Quantity, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return quantity.Scalar(7), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "slow")
		first <- err
	}()
	<-started

	second := make(chan *quantity.Quantity, 1)
	go func() {
		q, err := r.Get(context.Background(), "slow")
		assert.NoError(t, err)
		second <- q
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	q := <-second
	require.NotNil(t, q)
	v, _ := q.At()
	assert.Equal(t, 7.0, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAddStepValidation(t *testing.T) {
	r := New()
	tests := []struct {
		name string
		step Step
	}{
		{"missing key", Step{Op: "add", Inputs: []string{"a", "b"}}},
		{"unknown op", Step{Key: "k", Op: "divide", Inputs: []string{"a"}}},
		{"arity", Step{Key: "k", Op: "add", Inputs: []string{"a"}}},
		{"aggregation", Step{Key: "k", Op: "aggregate", Inputs: []string{"a"}, Aggregation: "median"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.AddStep(tt.step), ErrBadStep)
		})
	}
}

func TestDescribe(t *testing.T) {
	r := newTestReporter(t)
	require.NoError(t, r.AddStep(Step{Key: "by_cat", Op: "broadcast_map", Inputs: []string{"out", "cat_tec"}}))

	want := "'by_cat':\n" +
		"- broadcast_map(out, cat_tec)\n" +
		"  'out':\n" +
		"  - quantity()\n" +
		"  'cat_tec':\n" +
		"  - map_as_qty()"
	assert.Equal(t, want, r.Describe("by_cat"))
	assert.Equal(t, []string{"by_cat", "cat_tec", "out"}, r.Keys())
}
