package engine

import (
	"math"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from a Quantity
// ============================================================================
// 1-D quantity → one series over the labels of its dimension.
// 2-D quantity → one series per label of the second dimension.
// Higher dimensions are summed away first; scalars give no chart.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ChartOptions selects the chart type and title.
type ChartOptions struct {
	ChartType string // "bar" (default), "line", "pie"
	Title     string
}

// BuildChart produces a ChartConfig for q, or nil when q is 0-dimensional.
func BuildChart(q *quantity.Quantity, opts ChartOptions) (*ChartConfig, error) {
	q = finiteOnly(q)
	dims := q.Dims()
	if len(dims) == 0 {
		return nil, nil
	}
	if len(dims) > 2 {
		var err error
		if q, err = q.Reduce(dims[:2], sumValues); err != nil {
			return nil, err
		}
		dims = dims[:2]
	}

	chartType := opts.ChartType
	if chartType == "" {
		chartType = "bar"
	}
	title := opts.Title
	if title == "" {
		title = q.Name()
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		XAxis:      LabelForDimension(dims[0]),
		YAxis:      LabelForDimension(ValueKey),
		ShowLegend: true,
		ShowGrid:   chartType != "pie",
	}

	if len(dims) == 2 {
		config.Series = buildMultiSeries(q)
	} else {
		config.Series = buildSingleSeries(q, title)
	}

	config.Colors = assignColors(len(config.Series))
	return config, nil
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(q *quantity.Quantity, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	entries := q.Entries()
	points := make([]ChartPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, ChartPoint{
			Label: e.Coords[0],
			Value: RoundTo2(e.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

// buildMultiSeries emits one point per x label in every series. A series with
// no value at an x label reports 0 there.
func buildMultiSeries(q *quantity.Quantity) []ChartSeries {
	labels := sortedCopy(q.Coords(q.Dims()[0]))
	subKeys := sortedCopy(q.Coords(q.Dims()[1]))

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		points := make([]ChartPoint, 0, len(labels))
		for _, label := range labels {
			v, _ := q.At(label, key)
			points = append(points, ChartPoint{
				Label: label,
				Value: RoundTo2(v),
			})
		}
		series = append(series, ChartSeries{
			Name:  key,
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	return series
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

// finiteOnly drops NaN and infinite entries, which have no place on a chart
// or in a JSON summary.
func finiteOnly(q *quantity.Quantity) *quantity.Quantity {
	entries := q.Entries()
	kept := entries[:0]
	for _, e := range entries {
		if !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return q
	}
	out, err := quantity.FromSeries(quantity.Series{Dims: q.Dims(), Rows: kept})
	if err != nil {
		return q
	}
	return out.WithName(q.Name())
}
