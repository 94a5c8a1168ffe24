package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LeapData project",
		Long: `Initialize a new LeapData project with a configuration tree and sample
catalog.

This creates:
  - leapdata.yaml project file
  - conf/base/ with a sample catalog, globals and parameters
  - conf/local/ for credentials (gitignored)
  - data/cars.csv sample data`,
		Example: `  # Initialize in the current directory
  leapdata init

  # Initialize in a new directory
  leapdata init my-project

  # Force overwrite existing config
  leapdata init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cmdCtx := NewCommandContextWithoutSession(cmd)
			return runInit(cmdCtx.Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "leapdata.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("leapdata.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate("project", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	if err := stampProjectName(configPath, dir); err != nil {
		return err
	}

	files, _ := listTemplateFiles("project")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("LeapData project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapdata list           See the sample catalog")
	r.Println("  leapdata preview cars   Load the sample dataset")
	r.Println("  leapdata shell          Work with datasets interactively")

	return nil
}

// stampProjectName replaces the template's placeholder project name with
// the directory name.
func stampProjectName(configPath, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	name := filepath.Base(abs)

	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read project file: %w", err)
	}
	content = bytes.Replace(content, []byte("project: my-project"), []byte("project: "+name), 1)
	return os.WriteFile(configPath, content, 0600)
}
