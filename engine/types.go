package engine

// ============================================================================
// ENGINE TYPES — Reporting graph over quantities
// ============================================================================
// A report is a set of keys. Each key is a leaf quantity, a set mapping table
// turned into an indicator quantity, or a Step computed from other keys.
// ============================================================================

// ============================================================================
// RECORD — one labeled value
// ============================================================================

// Record is a single data row: one label per dimension and its value.
type Record struct {
	Dimensions map[string]string `json:"dimensions"`
	Value      float64           `json:"value"`
}

// ============================================================================
// STEP — declarative computation
// ============================================================================

// Step declares how one key is computed from others.
type Step struct {
	Key    string   `json:"key" yaml:"key"`
	Op     string   `json:"op" yaml:"op"`         // see Ops()
	Inputs []string `json:"inputs" yaml:"inputs"` // keys, in operand order

	FillValue   *float64          `json:"fillValue,omitempty" yaml:"fill_value,omitempty"`    // add; nil → reporter default
	Rename      map[string]string `json:"rename,omitempty" yaml:"rename,omitempty"`           // broadcast_map, rename
	Dims        []string          `json:"dims,omitempty" yaml:"dims,omitempty"`               // sum: dims to drop; aggregate: dims to keep
	Aggregation string            `json:"aggregation,omitempty" yaml:"aggregation,omitempty"` // aggregate: sum, count, avg, max, min
	Filters     Filters           `json:"filters,omitempty" yaml:"filters,omitempty"`         // select
}

// Filters define which coordinates to keep.
// Keys are dimension names. Values are allowed labels.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions" yaml:"dimensions"`
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	if f.Dimensions == nil {
		return true
	}
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData is a render-ready view of a quantity.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// Headers returns the column labels in order.
func (t *TableData) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig is a render-ready chart of a quantity.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "bar", "line", "pie"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis"`
	YAxis      string        `json:"yAxis"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries is one named line or bar group.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint is one labeled value in a series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is a one-line summary of a quantity.
type TextData struct {
	Value    string      `json:"value"` // formatted total or change
	RawValue float64     `json:"rawValue"`
	Period   string      `json:"period"`
	Count    int         `json:"count"` // entries
	Growth   *GrowthData `json:"growth,omitempty"`
}

// GrowthData describes the change of a total between the first and last
// labels of a period dimension.
type GrowthData struct {
	EarliestValue  float64 `json:"earliestValue"`
	LatestValue    float64 `json:"latestValue"`
	EarliestPeriod string  `json:"earliestPeriod"`
	LatestPeriod   string  `json:"latestPeriod"`
	ChangeAmount   float64 `json:"changeAmount"`
	ChangePercent  float64 `json:"changePercent"`
	Direction      string  `json:"direction"` // "increased", "decreased", "unchanged", "insufficient data"
}
