package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// TEXT BUILDER — Produces TextData for a Quantity
// ============================================================================

// BuildText summarizes q: its total and entry count, and, when periodDim is a
// dimension of q, the span of periods it covers and the change between the
// first and the last of them.
func BuildText(q *quantity.Quantity, periodDim string) (*TextData, error) {
	q = finiteOnly(q)
	if q.Len() == 0 {
		return &TextData{Value: "0", Period: "No data"}, nil
	}

	view := NewQuantityView(q)
	total := SumMeasure(view, ValueKey)
	text := &TextData{
		Value:    FormatNumber(total),
		RawValue: total,
		Period:   DerivePeriod(q, periodDim),
		Count:    q.Len(),
	}
	if periodDim == "" || !q.HasDim(periodDim) {
		return text, nil
	}

	growth, err := BuildGrowth(q, periodDim)
	if err != nil {
		return nil, err
	}
	text.Growth = growth
	return text, nil
}

// ============================================================================
// GROWTH BUILDER
// ============================================================================

// BuildGrowth compares the total at the earliest label of periodDim with the
// total at the latest one.
func BuildGrowth(q *quantity.Quantity, periodDim string) (*GrowthData, error) {
	q = finiteOnly(q)
	totals, err := q.Reduce([]string{periodDim}, sumValues)
	if err != nil {
		return nil, err
	}
	periods := sortedCopy(totals.Coords(periodDim))
	if len(periods) < 2 {
		total := SumMeasure(NewQuantityView(totals), ValueKey)
		period := DerivePeriod(q, periodDim)
		return &GrowthData{
			EarliestValue:  total,
			LatestValue:    total,
			EarliestPeriod: period,
			LatestPeriod:   period,
			Direction:      "insufficient data",
		}, nil
	}

	earliest, latest := periods[0], periods[len(periods)-1]
	first, _ := totals.At(earliest)
	last, _ := totals.At(latest)

	changeAmount := last - first
	var changePercent float64
	if first != 0 {
		changePercent = (changeAmount / first) * 100
	}

	direction := "unchanged"
	if changePercent > 0.5 {
		direction = "increased"
	} else if changePercent < -0.5 {
		direction = "decreased"
	}

	return &GrowthData{
		EarliestValue:  first,
		LatestValue:    last,
		EarliestPeriod: earliest,
		LatestPeriod:   latest,
		ChangeAmount:   changeAmount,
		ChangePercent:  changePercent,
		Direction:      direction,
	}, nil
}

// Describe renders growth as an arrow and a percentage.
func (g *GrowthData) Describe() string {
	abs := g.ChangePercent
	if abs < 0 {
		abs = -abs
	}
	switch g.Direction {
	case "increased":
		return fmt.Sprintf("↑ %.1f%%", abs)
	case "decreased":
		return fmt.Sprintf("↓ %.1f%%", abs)
	case "unchanged":
		return "→ No change"
	default:
		return g.Direction
	}
}

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period string from the labels of
// periodDim in q.
func DerivePeriod(q *quantity.Quantity, periodDim string) string {
	if q.Len() == 0 {
		return "No data"
	}
	if periodDim == "" || !q.HasDim(periodDim) {
		return "All periods"
	}
	periods := sortedCopy(q.Coords(periodDim))
	if len(periods) == 1 {
		return periods[0]
	}
	return fmt.Sprintf("%s – %s", periods[0], periods[len(periods)-1])
}

// sortedCopy orders labels numerically when both parse as numbers (years),
// lexically otherwise.
func sortedCopy(labels []string) []string {
	out := append([]string(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.ParseFloat(out[i], 64)
		b, errB := strconv.ParseFloat(out[j], 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}
