package helpers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// FILE HELPERS — Format chosen by extension
// ============================================================================
//   .csv            CSV (header row, then one row per entry or pair)
//   .arrow, .ipc    Arrow IPC stream (quantities only)
//   .json           JSON
//   .yaml, .yml     YAML (tables only)
// ============================================================================

// ReadQuantityFile loads a quantity from path.
func ReadQuantityFile(path, valueColumn string) (*quantity.Quantity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var q *quantity.Quantity
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		q, err = ParseQuantity(data, valueColumn)
	case ".arrow", ".ipc":
		q, err = ReadArrow(bytes.NewReader(data), nil)
	case ".json":
		q = new(quantity.Quantity)
		err = json.Unmarshal(data, q)
	default:
		return nil, fmt.Errorf("%s: unsupported quantity format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// ReadTableFile loads a set mapping table from path.
func ReadTableFile(path string) (computations.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return computations.Table{}, err
	}
	var t computations.Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err = ParseTable(data)
	case ".json":
		err = json.Unmarshal(data, &t)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &t)
	default:
		return t, fmt.Errorf("%s: unsupported table format %q", path, ext)
	}
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteQuantityFile stores q at path.
func WriteQuantityFile(path string, q *quantity.Quantity) error {
	var buf bytes.Buffer
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		err = WriteQuantityCSV(&buf, q)
	case ".arrow", ".ipc":
		err = WriteArrow(&buf, q, nil)
	case ".json":
		var b []byte
		if b, err = json.MarshalIndent(q, "", "  "); err == nil {
			buf.Write(b)
		}
	default:
		return fmt.Errorf("%s: unsupported quantity format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
