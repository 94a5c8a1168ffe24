package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

func init() {
	Register("json", Codec{Read: readJSON, Write: writeJSON})
}

// readJSON decodes a records-oriented JSON array: [{"col": val, ...}, ...].
// Column order follows the first record's key order.
func readJSON(r io.Reader, opts map[string]any) (*table.Table, error) {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read json input: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected a json array of records, got %v", tok)
	}

	var t *table.Table
	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("json record %d: %w", i, err)
		}
		if t == nil {
			keys, err := recordKeys(raw)
			if err != nil {
				return nil, fmt.Errorf("json record %d: %w", i, err)
			}
			t, err = table.New(keys...)
			if err != nil {
				return nil, fmt.Errorf("json record %d: %w", i, err)
			}
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("json record %d: %w", i, err)
		}
		if err := t.AppendRecord(rec); err != nil {
			return nil, fmt.Errorf("json record %d: %w", i, err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read json input: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("json input holds no records, cannot derive columns")
	}
	return t, nil
}

func writeJSON(w io.Writer, t *table.Table, opts map[string]any) error {
	if err := DecodeOptions(opts, &struct{}{}); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("[")
	columns := t.Columns()
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := encodeRecord(&buf, columns, t.Row(i)); err != nil {
			return fmt.Errorf("json row %d: %w", i, err)
		}
	}
	if t.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// encodeRecord writes one JSON object with keys in column order. Plain
// json.Marshal of a map would sort keys alphabetically and lose the
// table's column order.
func encodeRecord(buf *bytes.Buffer, columns []string, row []any) error {
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(row[i])
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// recordKeys returns an object's keys in document order.
func recordKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a json object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("record object is empty, cannot derive columns")
	}
	return keys, nil
}

// skipValue consumes exactly one JSON value from the decoder, descending
// through nested arrays and objects.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// decodeRecord parses one object into a column→cell map. Numbers come back
// as int64 when they fit, float64 otherwise.
func decodeRecord(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		cell, err := jsonCell(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = cell
	}
	return out, nil
}

func jsonCell(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T, cells must be scalar", v)
	}
}
