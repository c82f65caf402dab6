package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/quantity"
	"github.com/spektr-org/quanta/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into tables and quantities
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, S3, HTTP body).
// These helpers convert the raw bytes into set mapping tables or quantities.
// Header names are normalized to snake_case keys (schema.Key).
// ============================================================================

// ErrNoValueColumn is returned when a quantity CSV lacks its value column.
var ErrNoValueColumn = errors.New("value column not found")

// ErrValueDimension is returned when writing a quantity that has a dimension
// named like the value column; the file could not be read back.
var ErrValueDimension = errors.New("dimension collides with the value column")

// checkColumns rejects quantities whose dimension names clash with the
// value column.
func checkColumns(q *quantity.Quantity) error {
	if q.HasDim(engine.ValueKey) {
		return fmt.Errorf("%w: %q in %v", ErrValueDimension, engine.ValueKey, q.Dims())
	}
	return nil
}

// ParseTable parses CSV bytes into a set mapping table. The header row gives
// the column names; every other row is one pair.
func ParseTable(data []byte) (computations.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return computations.Table{}, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = schema.Key(h)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return computations.Table{}, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}
	return computations.NewTable(columns, rows...), nil
}

// ParseRecords parses CSV bytes into Records. valueColumn holds the numbers;
// every other column is a dimension. With valueColumn "" the "value" column
// is used, or failing that the first measure found by schema discovery.
// Rows with an empty value are skipped, since an absent value is undefined
// rather than zero. The dimension keys are returned in header order.
func ParseRecords(data []byte, valueColumn string) ([]engine.Record, []string, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = schema.Key(h)
	}

	want := schema.Key(valueColumn)
	if valueColumn == "" {
		want = engine.ValueKey
		if indexOf(keys, want) < 0 {
			layout, err := schema.DiscoverFromCSV(data)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrNoValueColumn, err)
			}
			want = layout.Value
		}
	}

	valueIdx := indexOf(keys, want)
	if valueIdx < 0 {
		return nil, nil, fmt.Errorf("%w: %q in %v", ErrNoValueColumn, want, keys)
	}
	var dimKeys []string
	for i, k := range keys {
		if i != valueIdx {
			dimKeys = append(dimKeys, k)
		}
	}

	var records []engine.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		raw := strings.TrimSpace(row[valueIdx])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: value %q: %w", line, raw, err)
		}

		rec := engine.Record{Dimensions: make(map[string]string, len(dimKeys)), Value: v}
		for i, val := range row {
			if i != valueIdx {
				rec.Dimensions[keys[i]] = strings.TrimSpace(val)
			}
		}
		records = append(records, rec)
	}

	return records, dimKeys, nil
}

// ParseQuantity parses CSV bytes into a Quantity over every non-value column.
// A coordinate listed twice keeps its last value.
func ParseQuantity(data []byte, valueColumn string) (*quantity.Quantity, error) {
	records, dimKeys, err := ParseRecords(data, valueColumn)
	if err != nil {
		return nil, err
	}
	return engine.ToQuantity(engine.NewSliceView(records, dimKeys...), engine.ValueKey)
}

// WriteQuantityCSV writes q as CSV: one column per dimension, then "value".
// Rows follow coordinate order.
func WriteQuantityCSV(w io.Writer, q *quantity.Quantity) error {
	if err := checkColumns(q); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(q.Dims(), engine.ValueKey)); err != nil {
		return err
	}
	for _, e := range q.Entries() {
		row := append(append([]string(nil), e.Coords...), strconv.FormatFloat(e.Value, 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTableCSV writes a set mapping table as CSV.
func WriteTableCSV(w io.Writer, t computations.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
