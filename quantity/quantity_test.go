package quantity

import (
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeries(t *testing.T, dims []string, rows ...Entry) *Quantity {
	t.Helper()
	q, err := FromSeries(Series{Dims: dims, Rows: rows})
	require.NoError(t, err)
	return q
}

func e(v float64, coords ...string) Entry {
	return Entry{Coords: coords, Value: v}
}

func TestBuilderRejectsDuplicateDims(t *testing.T) {
	_, err := NewBuilder("t", "t").Build()
	require.ErrorIs(t, err, ErrDuplicateDimension)
}

func TestBuilderRejectsWrongArity(t *testing.T) {
	_, err := NewBuilder("t", "y").Set(1, "coal").Build()
	require.ErrorIs(t, err, ErrArity)
}

func TestBuilderRejectsSeparatorInLabels(t *testing.T) {
	_, err := NewBuilder("a", "b").Set(1, "x\x00y", "z").Build()
	require.ErrorIs(t, err, ErrLabel)

	_, err = NewBuilder("a", "b").Set(1, "x", "y\x00z").Accumulate(2, "x", "y").Build()
	require.ErrorIs(t, err, ErrLabel)

	_, err = FromSeries(Series{Dims: []string{"a"}, Rows: []Entry{e(1, "ok"), e(2, "bad\x00")}})
	assert.ErrorIs(t, err, ErrLabel)
}

func TestFromSeriesCollapsesDuplicates(t *testing.T) {
	q := mustSeries(t, []string{"t"}, e(1, "coal"), e(2, "gas"), e(3, "coal"))

	assert.Equal(t, 2, q.Len())
	v, ok := q.At("coal")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, []string{"coal", "gas"}, q.Coords("t"))
}

func TestZeroIsDefined(t *testing.T) {
	q := mustSeries(t, []string{"t"}, e(0, "coal"))

	v, ok := q.At("coal")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = q.At("gas")
	assert.False(t, ok)
}

func TestGetByName(t *testing.T) {
	q := mustSeries(t, []string{"t", "y"}, e(4, "coal", "2020"))

	v, ok := q.Get(map[string]string{"y": "2020", "t": "coal"})
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, ok = q.Get(map[string]string{"t": "coal"})
	assert.False(t, ok)
}

func TestEntriesSorted(t *testing.T) {
	q := mustSeries(t, []string{"t", "y"},
		e(1, "wind", "2020"), e(2, "coal", "2030"), e(3, "coal", "2020"))

	want := []Entry{e(3, "coal", "2020"), e(2, "coal", "2030"), e(1, "wind", "2020")}
	if diff := cmp.Diff(want, q.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestEqualIgnoresDimOrder(t *testing.T) {
	a := mustSeries(t, []string{"t", "y"}, e(1, "coal", "2020"))
	b := mustSeries(t, []string{"y", "t"}, e(1, "2020", "coal"))
	c := mustSeries(t, []string{"y", "t"}, e(2, "2020", "coal"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAddSameDims(t *testing.T) {
	a := mustSeries(t, []string{"t"}, e(1, "coal"), e(2, "gas"))
	b := mustSeries(t, []string{"t"}, e(10, "gas"), e(20, "wind"))

	got, err := a.Add(b, 0.5)
	require.NoError(t, err)

	want := mustSeries(t, []string{"t"}, e(1.5, "coal"), e(12, "gas"), e(20.5, "wind"))
	assert.True(t, want.Equal(got), spew.Sdump(got.Entries()))
}

func TestAddBroadcastsOneSidedDims(t *testing.T) {
	a := mustSeries(t, []string{"t"}, e(1, "coal"))
	b := mustSeries(t, []string{"t", "y"}, e(10, "coal", "2020"), e(20, "gas", "2030"))

	got, err := a.Add(b, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "y"}, got.Dims())

	// coal is broadcast over both observed years; gas only where b has it.
	want := mustSeries(t, []string{"t", "y"},
		e(11, "coal", "2020"), e(1, "coal", "2030"), e(20, "gas", "2030"))
	assert.True(t, want.Equal(got), spew.Sdump(got.Entries()))
}

func TestAddNaNFill(t *testing.T) {
	a := mustSeries(t, []string{"t"}, e(1, "coal"))
	b := mustSeries(t, []string{"t"}, e(2, "gas"))

	got, err := a.Add(b, math.NaN())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, 0, got.DropNaN().Len())
}

func TestMulJoinsOnSharedDims(t *testing.T) {
	a := mustSeries(t, []string{"t"}, e(10, "A"), e(20, "B"))
	m := mustSeries(t, []string{"t", "c"}, e(1, "A", "1"), e(1, "A", "2"), e(1, "B", "2"))

	got, err := a.Mul(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "c"}, got.Dims())

	want := mustSeries(t, []string{"t", "c"}, e(10, "A", "1"), e(10, "A", "2"), e(20, "B", "2"))
	assert.True(t, want.Equal(got), spew.Sdump(got.Entries()))
}

func TestMulOuterProduct(t *testing.T) {
	a := mustSeries(t, []string{"t"}, e(2, "A"))
	b := mustSeries(t, []string{"y"}, e(3, "2020"), e(5, "2030"))

	got, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	v, _ := got.At("A", "2030")
	assert.Equal(t, 10.0, v)
}

func TestDropSums(t *testing.T) {
	q := mustSeries(t, []string{"t", "c"}, e(10, "A", "1"), e(10, "A", "2"), e(20, "B", "2"))

	got, err := q.Drop("t")
	require.NoError(t, err)

	want := mustSeries(t, []string{"c"}, e(10, "1"), e(30, "2"))
	assert.True(t, want.Equal(got), spew.Sdump(got.Entries()))
}

func TestDropMissingDimension(t *testing.T) {
	q := mustSeries(t, []string{"t"}, e(1, "A"))

	_, err := q.Drop("c")
	assert.ErrorIs(t, err, ErrMissingDimension)
}

func TestReduce(t *testing.T) {
	q := mustSeries(t, []string{"t", "y"}, e(1, "A", "2020"), e(5, "A", "2030"), e(2, "B", "2020"))

	got, err := q.Reduce([]string{"t"}, func(vs []float64) float64 { return float64(len(vs)) })
	require.NoError(t, err)
	v, _ := got.At("A")
	assert.Equal(t, 2.0, v)
}

func TestRename(t *testing.T) {
	q := mustSeries(t, []string{"t", "y"}, e(1, "A", "2020"))

	got, err := q.Rename(map[string]string{"t": "technology", "absent": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "y"}, got.Dims())
	assert.Equal(t, []string{"t", "y"}, q.Dims(), "input must not change")

	_, err = q.Rename(map[string]string{"t": "y"})
	assert.ErrorIs(t, err, ErrDuplicateDimension)
}

func TestTranspose(t *testing.T) {
	q := mustSeries(t, []string{"t", "y"}, e(1, "A", "2020"))

	got, err := q.Transpose("y", "t")
	require.NoError(t, err)
	v, ok := got.At("2020", "A")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, err = q.Transpose("y")
	assert.ErrorIs(t, err, ErrArity)
}

func TestJSONRoundTripKeepsNaN(t *testing.T) {
	q := mustSeries(t, []string{"t"}, e(1, "A"), e(math.NaN(), "B"))

	b, err := json.Marshal(q.WithName("demo"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":null`)

	var back Quantity
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "demo", back.Name())
	assert.True(t, q.Equal(&back))
}

func TestScalar(t *testing.T) {
	s := Scalar(3)
	assert.Equal(t, 0, s.NDim())
	v, ok := s.At()
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}
