package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

const defaultPreviewRows = 10

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var rows int
	var columns []string

	cmd := &cobra.Command{
		Use:   "preview <dataset>",
		Short: "Load a dataset and show its leading rows",
		Long: `Load the named dataset through its configured codec and storage backend
and print the first rows. Versioned datasets load their latest version
unless the catalog pins one.`,
		Example: `  # Preview a dataset
  leapdata preview cars

  # Show 50 rows
  leapdata preview cars -n 50

  # Only two columns
  leapdata preview cars --columns model,mpg

  # Full dataset as JSON records
  leapdata preview cars -n -1 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], rows, columns)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", defaultPreviewRows, "Rows to show, -1 for all")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to show, in order (default all)")

	return cmd
}

func runPreview(cmd *cobra.Command, name string, rows int, columns []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Session.Catalog.Load(cmd.Context(), name)
	if err != nil {
		return err
	}
	if len(columns) > 0 {
		t, err = t.Select(columns...)
		if err != nil {
			return err
		}
	}

	shown := t
	if rows >= 0 && rows < t.Len() {
		shown = t.Head(rows)
	}

	r := cmdCtx.Renderer
	if mode := r.EffectiveMode(); mode == output.ModeText || mode == output.ModeMarkdown {
		if shown.Len() < t.Len() {
			r.Header(1, fmt.Sprintf("%s (first %d of %d rows)", name, shown.Len(), t.Len()))
		} else {
			r.Header(1, fmt.Sprintf("%s (%d rows)", name, t.Len()))
		}
		r.Println("")
	}
	return renderRecords(r, shown)
}
