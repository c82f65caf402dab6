package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// AGGREGATORS — Reduce a quantity onto a subset of its dimensions
// ============================================================================

// Aggregate reduces q onto the dimensions in groupBy, combining the values
// that coincide there with aggregation ("sum", "count", "avg", "max", "min").
// An empty groupBy reduces to a single 0-dimensional value.
func Aggregate(q *quantity.Quantity, groupBy []string, aggregation string) (*quantity.Quantity, error) {
	fn, ok := aggregators[aggregation]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation %q", aggregation)
	}
	return q.Reduce(groupBy, fn)
}

var aggregators = map[string]func([]float64) float64{
	"":      sumValues,
	"sum":   sumValues,
	"count": func(vs []float64) float64 { return float64(len(vs)) },
	"avg":   avgValues,
	"max":   maxValues,
	"min":   minValues,
}

func sumValues(vs []float64) float64 {
	var total float64
	for _, v := range vs {
		total += v
	}
	return total
}

func avgValues(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return sumValues(vs) / float64(len(vs))
}

func maxValues(vs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

func minValues(vs []float64) float64 {
	m := math.Inf(1)
	for _, v := range vs {
		if v < m {
			m = v
		}
	}
	return m
}

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// ============================================================================
// SORTING
// ============================================================================

// SortRows orders rows of a view by sortBy and returns the row indices.
// Unknown or empty sortBy keeps the view's order.
func SortRows(view RecordView, sortBy string) []int {
	idx := make([]int, view.Len())
	for i := range idx {
		idx[i] = i
	}
	label := func(i int) string {
		parts := make([]string, 0, len(view.DimensionKeys()))
		for _, d := range view.DimensionKeys() {
			parts = append(parts, strings.ToLower(view.Dimension(i, d)))
		}
		return strings.Join(parts, "\x00")
	}
	switch sortBy {
	case "value_desc":
		sort.SliceStable(idx, func(a, b int) bool { return view.Measure(idx[a], ValueKey) > view.Measure(idx[b], ValueKey) })
	case "value_asc":
		sort.SliceStable(idx, func(a, b int) bool { return view.Measure(idx[a], ValueKey) < view.Measure(idx[b], ValueKey) })
	case "label_asc", "alpha_asc":
		sort.SliceStable(idx, func(a, b int) bool { return label(idx[a]) < label(idx[b]) })
	case "label_desc":
		sort.SliceStable(idx, func(a, b int) bool { return label(idx[a]) > label(idx[b]) })
	default:
		// preserve view order
	}
	return idx
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats v with comma separators; whole numbers get no decimals.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	// Past 2^53 every float is whole and int conversion may overflow.
	if math.Abs(v) >= 1<<53 {
		return groupDigits(strconv.FormatFloat(v, 'f', 0, 64))
	}
	if v == math.Trunc(v) {
		return FormatInt(int(v))
	}
	negative := v < 0
	if negative {
		v = -v
	}
	intPart := int(v)
	decPart := int((v-float64(intPart))*100 + 0.5)
	if decPart == 100 {
		intPart++
		decPart = 0
	}
	s := fmt.Sprintf("%s.%02d", FormatInt(intPart), decPart)
	if negative {
		s = "-" + s
	}
	return s
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return groupDigits(strconv.Itoa(n))
}

// groupDigits inserts thousands separators into a plain decimal integer string.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForDimension returns a capitalized label for a dimension.
func LabelForDimension(dimension string) string {
	if len(dimension) == 0 {
		return ""
	}
	return strings.ToUpper(dimension[:1]) + dimension[1:]
}
