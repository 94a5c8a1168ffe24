package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReleaseCommand creates the release command.
func NewReleaseCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "release [dataset]",
		Short: "Drop a dataset's cached state",
		Long: `Forget memoized version resolutions and storage listing caches, so the
next load re-resolves against the backend. Versioned datasets otherwise
keep returning the version first resolved in this process.`,
		Example: `  # Release one dataset's caches
  leapdata release cars

  # Release everything
  leapdata release --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name a dataset or pass --all")
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runRelease(cmd, name, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Release every dataset")

	return cmd
}

func runRelease(cmd *cobra.Command, name string, all bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cat := cmdCtx.Session.Catalog
	r := cmdCtx.Renderer

	if all {
		cat.ReleaseAll()
		r.Success(fmt.Sprintf("Released %d datasets", len(cat.Names())))
		return nil
	}

	if err := cat.Release(name); err != nil {
		return err
	}
	r.Success(fmt.Sprintf("Released %q", name))
	return nil
}
