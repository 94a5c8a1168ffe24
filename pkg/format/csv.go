package format

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

func init() {
	Register("csv", Codec{Read: readCSV, Write: writeCSV})
	Register("tsv", Codec{Read: readTSV, Write: writeTSV})
}

type csvReadOptions struct {
	Delimiter        string `koanf:"delimiter"`
	Comment          string `koanf:"comment"`
	LazyQuotes       bool   `koanf:"lazy_quotes"`
	TrimLeadingSpace bool   `koanf:"trim_leading_space"`
	InferTypes       bool   `koanf:"infer_types"`
}

type csvWriteOptions struct {
	Delimiter string `koanf:"delimiter"`
	UseCRLF   bool   `koanf:"use_crlf"`
}

func readCSV(r io.Reader, opts map[string]any) (*table.Table, error) {
	o := csvReadOptions{
		Delimiter:        ",",
		LazyQuotes:       true,
		TrimLeadingSpace: true,
		InferTypes:       true,
	}
	if err := DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	return decodeCSV(r, o)
}

func readTSV(r io.Reader, opts map[string]any) (*table.Table, error) {
	o := csvReadOptions{
		Delimiter:        "\t",
		LazyQuotes:       true,
		TrimLeadingSpace: false,
		InferTypes:       true,
	}
	if err := DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	return decodeCSV(r, o)
}

func decodeCSV(r io.Reader, o csvReadOptions) (*table.Table, error) {
	cr := stdcsv.NewReader(r)
	cr.LazyQuotes = o.LazyQuotes
	cr.TrimLeadingSpace = o.TrimLeadingSpace
	cr.FieldsPerRecord = -1
	d, err := delimiterRune(o.Delimiter)
	if err != nil {
		return nil, err
	}
	cr.Comma = d
	if o.Comment != "" {
		c, err := delimiterRune(o.Comment)
		if err != nil {
			return nil, fmt.Errorf("comment: %w", err)
		}
		cr.Comment = c
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv input is empty, expected a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	t, err := table.New(header...)
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		cells := make([]any, len(header))
		for i := range header {
			var field string
			if i < len(rec) {
				field = rec[i]
			}
			if o.InferTypes {
				cells[i] = inferCell(field)
			} else if field != "" {
				cells[i] = field
			}
		}
		if err := t.Append(cells...); err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
	}
	return t, nil
}

func writeCSV(w io.Writer, t *table.Table, opts map[string]any) error {
	o := csvWriteOptions{Delimiter: ","}
	if err := DecodeOptions(opts, &o); err != nil {
		return err
	}
	return encodeCSV(w, t, o)
}

func writeTSV(w io.Writer, t *table.Table, opts map[string]any) error {
	o := csvWriteOptions{Delimiter: "\t"}
	if err := DecodeOptions(opts, &o); err != nil {
		return err
	}
	return encodeCSV(w, t, o)
}

func encodeCSV(w io.Writer, t *table.Table, o csvWriteOptions) error {
	cw := stdcsv.NewWriter(w)
	d, err := delimiterRune(o.Delimiter)
	if err != nil {
		return err
	}
	cw.Comma = d
	cw.UseCRLF = o.UseCRLF

	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	fields := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		for j, cell := range row {
			fields[j] = formatCell(cell)
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func delimiterRune(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r, nil
}

// inferCell parses a field into the narrowest matching cell type. Empty
// fields become nil. Order matters: "1" is an int, never a bool.
func inferCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		// Keep a decimal point on whole floats so they stay floats when
		// read back with type inference.
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
