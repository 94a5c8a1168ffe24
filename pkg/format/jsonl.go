package format

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

func init() {
	Register("jsonl", Codec{Read: readJSONLines, Write: writeJSONLines})
}

const (
	jsonlInitialBuffer = 64 * 1024
	jsonlMaxLine       = 16 * 1024 * 1024
)

// readJSONLines decodes one JSON object per line. Column order follows the
// first record's key order; later records may omit columns (nil cells) but
// must not introduce new ones.
func readJSONLines(r io.Reader, opts map[string]any) (*table.Table, error) {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, jsonlInitialBuffer), jsonlMaxLine)

	var t *table.Table
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if t == nil {
			keys, err := recordKeys(raw)
			if err != nil {
				return nil, fmt.Errorf("jsonl line %d: %w", line, err)
			}
			t, err = table.New(keys...)
			if err != nil {
				return nil, fmt.Errorf("jsonl line %d: %w", line, err)
			}
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		if err := t.AppendRecord(rec); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jsonl input: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("jsonl input holds no records, cannot derive columns")
	}
	return t, nil
}

func writeJSONLines(w io.Writer, t *table.Table, opts map[string]any) error {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	columns := t.Columns()
	var buf bytes.Buffer
	for i := 0; i < t.Len(); i++ {
		buf.Reset()
		if err := encodeRecord(&buf, columns, t.Row(i)); err != nil {
			return fmt.Errorf("jsonl row %d: %w", i, err)
		}
		buf.WriteByte('\n')
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write jsonl row %d: %w", i, err)
		}
	}
	return bw.Flush()
}
