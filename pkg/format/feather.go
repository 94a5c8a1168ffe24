package format

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

func init() {
	Register("feather", Codec{Read: readFeather, Write: writeFeather})
}

// readFeather decodes an Arrow IPC file. Unlike parquet, Arrow schemas are
// ordered, so column order survives a round trip.
func readFeather(r io.Reader, opts map[string]any) (*table.Table, error) {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return nil, err
	}
	rs, err := readAtSeeker(r)
	if err != nil {
		return nil, err
	}
	fr, err := ipc.NewFileReader(rs, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer func() { _ = fr.Close() }()

	schema := fr.Schema()
	columns := make([]string, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		columns[i] = schema.Field(i).Name
	}
	t, err := table.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("invalid arrow schema: %w", err)
	}

	for {
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read arrow record batch: %w", err)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			cells := make([]any, len(columns))
			for j := range columns {
				v, err := arrowCell(rec.Column(j), i)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", columns[j], err)
				}
				cells[j] = v
			}
			if err := t.Append(cells...); err != nil {
				return nil, fmt.Errorf("arrow row %d: %w", t.Len(), err)
			}
		}
	}
	return t, nil
}

func writeFeather(w io.Writer, t *table.Table, opts map[string]any) error {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return err
	}
	alloc := memory.DefaultAllocator
	columns := t.Columns()

	fields := make([]arrow.Field, len(columns))
	for j, col := range columns {
		var sample any
		for i := 0; i < t.Len(); i++ {
			if v, _ := t.Cell(i, col); v != nil {
				sample = v
				break
			}
		}
		fields[j] = arrow.Field{Name: col, Type: arrowType(sample), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builders := make([]array.Builder, len(columns))
	for j, f := range fields {
		builders[j] = array.NewBuilder(alloc, f.Type)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		for j := range columns {
			if err := appendArrowValue(builders[j], row[j]); err != nil {
				return fmt.Errorf("column %q row %d: %w", columns[j], i, err)
			}
		}
	}

	arrays := make([]arrow.Array, len(builders))
	for j, b := range builders {
		arrays[j] = b.NewArray()
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	rec := array.NewRecordBatch(schema, arrays, int64(t.Len()))
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	if err != nil {
		return fmt.Errorf("failed to create arrow file writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write arrow record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to finalize arrow file: %w", err)
	}
	return nil
}

func arrowType(v any) arrow.DataType {
	switch v.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean
	case int64:
		return arrow.PrimitiveTypes.Int64
	case float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrowValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("type mismatch: expected bool, got %T", v)
		}
		builder.Append(x)
	case *array.Int64Builder:
		x, ok := v.(int64)
		if !ok {
			return fmt.Errorf("type mismatch: expected int64, got %T", v)
		}
		builder.Append(x)
	case *array.Float64Builder:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("type mismatch: expected float64, got %T", v)
		}
		builder.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("type mismatch: expected string, got %T", v)
		}
		builder.Append(x)
	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}

func arrowCell(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Int32:
		return int64(c.Value(i)), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.Float32:
		return float64(c.Value(i)), nil
	case *array.String:
		return c.Value(i), nil
	case *array.LargeString:
		return c.Value(i), nil
	default:
		return nil, fmt.Errorf("unsupported arrow column type %s", col.DataType())
	}
}

// readAtSeeker adapts an input stream for formats that need random access;
// anything that cannot seek is buffered.
func readAtSeeker(r io.Reader) (ipc.ReadAtSeeker, error) {
	if rs, ok := r.(ipc.ReadAtSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer input: %w", err)
	}
	return bytes.NewReader(data), nil
}
