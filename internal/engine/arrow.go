package engine

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// ArrowSchema describes the columnar export of a wide table:
// the three key columns followed by one float64 column per indicator.
func ArrowSchema(t *WideTable) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int64},
		{Name: "country_name", Type: arrow.BinaryTypes.String},
		{Name: "country_code", Type: arrow.BinaryTypes.String},
	}
	if t != nil {
		for _, name := range t.Indicators {
			fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
		}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow streams t as a single Arrow IPC record batch.
func WriteArrow(w io.Writer, t *WideTable) error {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(t)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	years := b.Field(0).(*array.Int64Builder)
	names := b.Field(1).(*array.StringBuilder)
	codes := b.Field(2).(*array.StringBuilder)

	if t != nil {
		for _, row := range t.Rows {
			years.Append(int64(row.Year))
			names.Append(row.CountryName)
			codes.Append(row.CountryCode)
			for i, v := range row.Values {
				b.Field(3 + i).(*array.Float64Builder).Append(v)
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return nil
}
