package computations

// Table is a set mapping table: Columns names the two sets, and each row pairs
// a member of the first with a member of the second.
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// NewTable returns a Table with the given column names and rows.
func NewTable(columns []string, rows ...[]string) Table {
	return Table{Columns: columns, Rows: rows}
}
