package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// NewExistsCommand creates the exists command.
func NewExistsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists <dataset>",
		Short: "Check whether a dataset's target holds data",
		Long: `Probe the dataset's storage target. A versioned dataset with no saved
versions is reported as absent, not as an error.`,
		Example: `  # Check a dataset
  leapdata exists cars

  # Script-friendly boolean
  leapdata exists cars --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(cmd, args[0])
		},
	}

	return cmd
}

func runExists(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	exists, err := cmdCtx.Session.Catalog.Exists(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to check dataset %q: %w", name, err)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{"name": name, "exists": exists})
	case output.ModeYAML:
		return r.YAML(map[string]any{"name": name, "exists": exists})
	default:
		status := "failed"
		detail := "no data at the target"
		if exists {
			status = "success"
			detail = "data present"
		}
		r.StatusLine(name, status, detail)
		return nil
	}
}
