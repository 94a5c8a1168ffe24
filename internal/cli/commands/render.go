package commands

import (
	"fmt"
	"io"
	"strings"

	gptable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
	"github.com/leapstack-labs/leapdata/pkg/table"
)

// renderRecords writes a table in the renderer's effective mode. JSON and
// YAML emit the rows as records; markdown emits a pipe table for agents
// and scripts; text draws a styled grid.
func renderRecords(r *output.Renderer, t *table.Table) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(t.Records())
	case output.ModeYAML:
		return r.YAML(t.Records())
	case output.ModeMarkdown:
		renderRecordsMarkdown(r.Writer(), t)
		return nil
	default:
		renderRecordsText(r.Writer(), t)
		return nil
	}
}

func renderRecordsText(w io.Writer, t *table.Table) {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	tw := gptable.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(gptable.StyleLight)

	cols := t.Columns()
	headerRow := make(gptable.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	tw.AppendHeader(headerRow)

	for i := 0; i < t.Len(); i++ {
		cells := t.Row(i)
		row := make(gptable.Row, len(cells))
		for j, cell := range cells {
			row[j] = formatCell(cell)
		}
		tw.AppendRow(row)
	}

	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", t.Len())
}

func renderRecordsMarkdown(w io.Writer, t *table.Table) {
	if t.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	cols := t.Columns()
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))

	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for i := 0; i < t.Len(); i++ {
		cells := t.Row(i)
		values := make([]string, len(cells))
		for j, cell := range cells {
			values[j] = formatCell(cell)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
