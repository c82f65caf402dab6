package engine

import (
	"fmt"
	"strconv"

	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a Quantity
// ============================================================================
// One column per dimension, then the value column. One row per stored entry.
// ============================================================================

// TableOptions controls row order and count.
type TableOptions struct {
	Title  string
	SortBy string // "value_desc", "value_asc", "label_asc", "label_desc"; empty = coordinate order
	Limit  int    // 0 = all
}

// BuildTable renders q as a TableData.
func BuildTable(q *quantity.Quantity, opts TableOptions) *TableData {
	title := opts.Title
	if title == "" {
		title = q.Name()
	}
	view := NewQuantityView(q)
	dimKeys := view.DimensionKeys()

	columns := make([]Column, 0, len(dimKeys)+1)
	for _, key := range dimKeys {
		columns = append(columns, Column{
			Key:   key,
			Label: key,
			Type:  "text",
			Align: "left",
		})
	}
	columns = append(columns, Column{
		Key:   ValueKey,
		Label: ValueKey,
		Type:  "number",
		Align: "right",
	})

	order := SortRows(view, opts.SortBy)
	if opts.Limit > 0 && len(order) > opts.Limit {
		order = order[:opts.Limit]
	}

	rows := make([][]string, 0, len(order))
	for _, i := range order {
		row := make([]string, 0, len(columns))
		for _, key := range dimKeys {
			row = append(row, view.Dimension(i, key))
		}
		row = append(row, strconv.FormatFloat(view.Measure(i, ValueKey), 'g', -1, 64))
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("Total (%d entries)", view.Len()),
			Values: map[string]string{
				ValueKey: FormatNumber(SumMeasure(view, ValueKey)),
			},
		},
	}
}
