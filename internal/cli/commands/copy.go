package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCopyCommand creates the copy command.
func NewCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy one dataset's data into another",
		Long: `Load the source dataset and save its rows to the destination dataset.
Both must be catalog entries; the copy converts between formats and
backends as a side effect of going through the shared table value.`,
		Example: `  # Materialize a CSV into the warehouse table
  leapdata copy cars cars_table

  # Snapshot into a versioned dataset
  leapdata copy cars cars_versioned`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runCopy(cmd *cobra.Command, source, destination string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	cat := cmdCtx.Session.Catalog

	t, err := cat.Load(ctx, source)
	if err != nil {
		return err
	}
	if err := cat.Save(ctx, destination, t); err != nil {
		return err
	}

	cmdCtx.Renderer.Success(fmt.Sprintf("Copied %d rows from %q to %q", t.Len(), source, destination))
	return nil
}
