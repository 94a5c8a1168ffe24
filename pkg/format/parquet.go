package format

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

func init() {
	Register("parquet", Codec{Read: readParquet, Write: writeParquet})
}

const parquetBatchSize = 1024

type parquetReadOptions struct {
	BatchSize int `koanf:"batch_size"`
}

// readParquet decodes a parquet file. Column order follows the file schema,
// which parquet-go keeps sorted by name.
func readParquet(r io.Reader, opts map[string]any) (*table.Table, error) {
	o := parquetReadOptions{BatchSize: parquetBatchSize}
	if err := DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	if o.BatchSize <= 0 {
		o.BatchSize = parquetBatchSize
	}

	ra, size, err := readerAtSize(r)
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}
	t, err := table.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("invalid parquet schema: %w", err)
	}

	pr := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = pr.Close() }()

	buf := make([]map[string]any, o.BatchSize)
	for i := range buf {
		buf[i] = make(map[string]any)
	}
	for {
		for i := range buf {
			for k := range buf[i] {
				delete(buf[i], k)
			}
		}
		n, err := pr.Read(buf)
		for i := 0; i < n; i++ {
			if err := t.AppendRecord(buf[i]); err != nil {
				return nil, fmt.Errorf("parquet row %d: %w", t.Len(), err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return t, nil
}

func writeParquet(w io.Writer, t *table.Table, opts map[string]any) error {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return err
	}
	schema, err := parquetSchema(t)
	if err != nil {
		return err
	}
	pw := parquet.NewGenericWriter[map[string]any](w, schema)

	rows := t.Records()
	for _, rec := range rows {
		// Optional columns encode nil as null; parquet-go wants the key
		// absent rather than present with a nil value.
		for k, v := range rec {
			if v == nil {
				delete(rec, k)
			}
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			_ = pw.Close()
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// parquetSchema derives a schema from the first non-nil cell of each
// column. Columns with no values at all become optional strings.
func parquetSchema(t *table.Table) (*parquet.Schema, error) {
	nodes := make(map[string]parquet.Node, t.Width())
	for _, col := range t.Columns() {
		var sample any
		for i := 0; i < t.Len(); i++ {
			if v, _ := t.Cell(i, col); v != nil {
				sample = v
				break
			}
		}
		nodes[col] = parquetNode(sample)
	}
	return parquet.NewSchema("table", parquet.Group(nodes)), nil
}

func parquetNode(v any) parquet.Node {
	switch v.(type) {
	case bool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case int64:
		return parquet.Optional(parquet.Int(64))
	case float64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// readerAtSize adapts an input stream for formats that need random access.
// Files and in-memory readers are used directly; anything else is buffered.
func readerAtSize(r io.Reader) (io.ReaderAt, int64, error) {
	if ra, ok := r.(io.ReaderAt); ok {
		switch s := r.(type) {
		case interface{ Size() int64 }:
			return ra, s.Size(), nil
		case interface{ Stat() (os.FileInfo, error) }:
			if fi, err := s.Stat(); err == nil {
				return ra, fi.Size(), nil
			}
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to buffer input: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
