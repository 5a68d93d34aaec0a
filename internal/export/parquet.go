package export

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"sdmx-explorer/internal/domain"
)

// ArrowSchema maps the table columns to Arrow fields: OBS_VALUE becomes a
// nullable float64 when values were coerced, everything else a nullable string.
func ArrowSchema(t *domain.ObservationTable) *arrow.Schema {
	fields := make([]arrow.Field, len(t.Columns))
	for i, name := range t.Columns {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if name == domain.ColumnObsValue && t.Values != nil {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[i] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteParquet writes t as a snappy-compressed Parquet file.
func WriteParquet(w io.Writer, t *domain.ObservationTable) error {
	schema := ArrowSchema(t)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for c, field := range schema.Fields() {
		switch fb := b.Field(c).(type) {
		case *array.Float64Builder:
			for i := range t.Rows {
				v := t.Value(i)
				if math.IsNaN(v) {
					fb.AppendNull()
					continue
				}
				fb.Append(v)
			}
		case *array.StringBuilder:
			for i := range t.Rows {
				fb.Append(t.Cell(i, c))
			}
		default:
			return fmt.Errorf("unsupported arrow builder for column %q", field.Name)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
