package schema

import (
	"sort"

	"github.com/spektr-org/quanta/computations"
)

// ============================================================================
// SCHEMA — Describes how a CSV maps onto a quantity
// ============================================================================
// Auto-discovered from raw data (DiscoverFromCSV) or written by hand. Helpers use the
// layout to pick the value column; discovered hierarchies become set mapping
// tables for BroadcastMap.
// ============================================================================

// Layout describes the columns of a dataset.
type Layout struct {
	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Value      string          `json:"value" yaml:"value"`                           // column holding the quantity's values
	Measures   []string        `json:"measures,omitempty" yaml:"measures,omitempty"` // other numeric columns

	// Columns skipped during auto-discovery
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skipped_columns,omitempty"`

	// Child → parent pairs observed for each hierarchy, keyed by child
	pairs map[string][][]string
}

// DimensionMeta describes a label column.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	DisplayName     string   `json:"displayName" yaml:"display_name"`
	SampleValues    []string `json:"sampleValues" yaml:"sample_values"`
	Cardinality     int      `json:"cardinality" yaml:"cardinality"`
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinality_hint,omitempty"` // "low", "medium", "high"
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"`                    // coarser dimension every label maps into
	IsTemporal      bool     `json:"isTemporal,omitempty" yaml:"is_temporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty" yaml:"temporal_format,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column string `json:"column" yaml:"column"`
	Reason string `json:"reason" yaml:"reason"`
}

// Hierarchy is a child dimension whose every label maps to one parent label.
type Hierarchy struct {
	Child  string `json:"child" yaml:"child"`
	Parent string `json:"parent" yaml:"parent"`
}

// DimensionKeys returns all dimension keys.
func (l Layout) DimensionKeys() []string {
	keys := make([]string, len(l.Dimensions))
	for i, d := range l.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// Temporal returns the first temporal dimension, or "" if there is none.
func (l Layout) Temporal() string {
	for _, d := range l.Dimensions {
		if d.IsTemporal {
			return d.Key
		}
	}
	return ""
}

// Hierarchies returns every child → parent relation, in dimension order.
func (l Layout) Hierarchies() []Hierarchy {
	var out []Hierarchy
	for _, d := range l.Dimensions {
		if d.Parent != "" {
			out = append(out, Hierarchy{Child: d.Key, Parent: d.Parent})
		}
	}
	return out
}

// MappingTable returns the child → parent set mapping table observed for
// child during discovery, with rows sorted. ok is false when child has no
// discovered parent.
func (l Layout) MappingTable(child string) (computations.Table, bool) {
	for _, d := range l.Dimensions {
		if d.Key != child || d.Parent == "" {
			continue
		}
		rows := append([][]string(nil), l.pairs[child]...)
		sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
		return computations.NewTable([]string{child, d.Parent}, rows...), true
	}
	return computations.Table{}, false
}
