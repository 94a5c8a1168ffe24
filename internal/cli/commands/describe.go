package commands

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <dataset>",
		Short: "Show a dataset's configuration",
		Long: `Show the resolved configuration of one catalog entry: its type, format,
location and the arguments it passes to the codec and storage backend.
Credentials are never shown.`,
		Example: `  # Describe a dataset
  leapdata describe cars

  # Describe as JSON for scripting
  leapdata describe cars --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}

	return cmd
}

func runDescribe(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cat := cmdCtx.Session.Catalog
	desc, err := cat.Describe(name)
	if err != nil {
		return err
	}
	if cfg, ok := cat.Config(name); ok && cfg.Type != "" {
		desc["type"] = cfg.Type
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{"name": name, "config": desc})
	case output.ModeYAML:
		return r.YAML(map[string]any{"name": name, "config": desc})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, name))
		for _, key := range sortedKeys(desc) {
			r.Println(output.FormatKeyValue(key, desc[key]))
		}
		return nil
	default:
		r.Header(1, name)
		for _, key := range sortedKeys(desc) {
			r.KeyValue(key, desc[key])
		}
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
