package commands

import (
	"fmt"

	gptable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/catalog"
	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// datasetInfo is the list entry shape shared by the JSON and YAML modes.
type datasetInfo struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	Versioned bool   `json:"versioned" yaml:"versioned"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var typeFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the datasets in the catalog",
		Long: `List every dataset the catalog defines for the active environment.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # List all datasets
  leapdata list

  # List datasets as JSON
  leapdata list --output json

  # Only SQL table datasets
  leapdata list --type sql_table`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, typeFilter)
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "Only show datasets of this type")

	return cmd
}

func runList(cmd *cobra.Command, typeFilter string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	infos := collectDatasetInfo(cmdCtx.Session.Catalog, typeFilter)
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(infos)
	case output.ModeYAML:
		return r.YAML(infos)
	case output.ModeMarkdown:
		return listMarkdown(r, infos)
	default:
		return listText(r, infos)
	}
}

func collectDatasetInfo(cat *catalog.Catalog, typeFilter string) []datasetInfo {
	names := cat.Names()
	infos := make([]datasetInfo, 0, len(names))
	for _, name := range names {
		cfg, ok := cat.Config(name)
		if !ok {
			continue
		}
		if typeFilter != "" && cfg.Type != typeFilter {
			continue
		}
		location := cfg.Filepath
		if location == "" {
			location = cfg.TableName
		}
		infos = append(infos, datasetInfo{
			Name:      name,
			Type:      cfg.Type,
			Format:    cfg.FileFormat,
			Location:  location,
			Versioned: cfg.Versioned,
		})
	}
	return infos
}

// listText outputs datasets as a styled table.
func listText(r *output.Renderer, infos []datasetInfo) error {
	r.Header(1, fmt.Sprintf("Datasets (%d total)", len(infos)))

	if len(infos) == 0 {
		r.Println("The catalog is empty.")
		return nil
	}

	tw := gptable.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(gptable.StyleLight)
	tw.AppendHeader(gptable.Row{"Name", "Type", "Format", "Location", "Versioned"})
	for _, info := range infos {
		versioned := ""
		if info.Versioned {
			versioned = "yes"
		}
		tw.AppendRow(gptable.Row{info.Name, info.Type, info.Format, info.Location, versioned})
	}
	tw.Render()
	return nil
}

// listMarkdown outputs datasets in markdown format.
func listMarkdown(r *output.Renderer, infos []datasetInfo) error {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Datasets (%d total)", len(infos))))
	r.Println("")

	for _, info := range infos {
		r.Println(output.FormatHeader(2, info.Name))
		r.Println(output.FormatKeyValue("Type", info.Type))
		if info.Format != "" {
			r.Println(output.FormatKeyValue("Format", info.Format))
		}
		if info.Location != "" {
			r.Println(output.FormatKeyValue("Location", info.Location))
		}
		if info.Versioned {
			r.Println(output.FormatKeyValue("Versioned", "yes"))
		}
		r.Println("")
	}

	return nil
}
