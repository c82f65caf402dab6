package helpers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// ARROW HELPER — Quantities as Arrow IPC streams
// ============================================================================
// Layout: one utf8 column per dimension (in dimension order), then a float64
// "value" column. The quantity name travels in the schema metadata.
// ============================================================================

const nameMetadataKey = "name"

// WriteArrow writes q to w as a single-record Arrow IPC stream.
// A nil mem uses the Go allocator.
func WriteArrow(w io.Writer, q *quantity.Quantity, mem memory.Allocator) error {
	if err := checkColumns(q); err != nil {
		return fmt.Errorf("arrow write: %w", err)
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	dims := q.Dims()
	fields := make([]arrow.Field, 0, len(dims)+1)
	for _, d := range dims {
		fields = append(fields, arrow.Field{Name: d, Type: arrow.BinaryTypes.String})
	}
	fields = append(fields, arrow.Field{Name: engine.ValueKey, Type: arrow.PrimitiveTypes.Float64})
	md := arrow.NewMetadata([]string{nameMetadataKey}, []string{q.Name()})
	schema := arrow.NewSchema(fields, &md)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	entries := q.Entries()
	for i := range fields {
		b.Field(i).Reserve(len(entries))
	}
	values := b.Field(len(dims)).(*array.Float64Builder)
	for _, e := range entries {
		for i, c := range e.Coords {
			b.Field(i).(*array.StringBuilder).Append(c)
		}
		values.Append(e.Value)
	}

	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("arrow write: %w", err)
	}
	return iw.Close()
}

// ReadArrow reads a quantity written by WriteArrow. Every record batch in the
// stream contributes entries; null values are skipped.
func ReadArrow(r io.Reader, mem memory.Allocator) (*quantity.Quantity, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("arrow read: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	valueIdx := schema.FieldIndices(engine.ValueKey)
	if len(valueIdx) != 1 {
		return nil, fmt.Errorf("arrow read: %w", ErrNoValueColumn)
	}
	var dims []string
	var dimIdx []int
	for i, f := range schema.Fields() {
		if i == valueIdx[0] {
			continue
		}
		if f.Type.ID() != arrow.STRING {
			return nil, fmt.Errorf("arrow read: dimension %q has type %s, want utf8", f.Name, f.Type)
		}
		dims = append(dims, f.Name)
		dimIdx = append(dimIdx, i)
	}

	b := quantity.NewBuilder(dims...)
	coords := make([]string, len(dims))
	for rdr.Next() {
		rec := rdr.Record()
		values, ok := rec.Column(valueIdx[0]).(*array.Float64)
		if !ok {
			return nil, errors.New("arrow read: value column is not float64")
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			if values.IsNull(row) {
				continue
			}
			for j, col := range dimIdx {
				coords[j] = strings.Clone(rec.Column(col).(*array.String).Value(row))
			}
			b.Set(values.Value(row), coords...)
		}
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("arrow read: %w", err)
	}

	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	if i := schema.Metadata().FindKey(nameMetadataKey); i >= 0 {
		q = q.WithName(schema.Metadata().Values()[i])
	}
	return q, nil
}
