package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/catalog"
	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// validationEntry is the JSON and YAML shape of one probe result.
type validationEntry struct {
	Name   string `json:"name" yaml:"name"`
	Exists bool   `json:"exists" yaml:"exists"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Probe every dataset's storage target",
		Long: `Check that each catalog entry can reach its storage target. Datasets
are probed in parallel; an absent target is reported but is not a
failure, a backend error is.

Exits non-zero when any probe fails.`,
		Example: `  # Validate the active environment's catalog
  leapdata validate

  # Validate production
  leapdata validate --env production

  # Machine-readable report
  leapdata validate --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results := cmdCtx.Session.Catalog.Validate(cmd.Context())
	r := cmdCtx.Renderer

	failed := 0
	entries := make([]validationEntry, len(results))
	for i, res := range results {
		entries[i] = validationEntry{Name: res.Name, Exists: res.Exists}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
			failed++
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(entries); err != nil {
			return err
		}
	case output.ModeYAML:
		if err := r.YAML(entries); err != nil {
			return err
		}
	case output.ModeMarkdown:
		validateMarkdown(r, entries)
	default:
		validateText(r, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d datasets failed validation", failed, len(results))
	}
	return nil
}

func validateText(r *output.Renderer, results []catalog.ValidationResult) {
	r.Header(1, fmt.Sprintf("Validating %d datasets", len(results)))
	for _, res := range results {
		switch {
		case res.Err != nil:
			r.StatusLine(res.Name, "failed", res.Err.Error())
		case !res.Exists:
			r.StatusLine(res.Name, "success", "reachable, no data yet")
		default:
			r.StatusLine(res.Name, "success", "")
		}
	}
}

func validateMarkdown(r *output.Renderer, entries []validationEntry) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Validating %d datasets", len(entries))))
	r.Println("")
	r.Println("| Dataset | Exists | Error |")
	r.Println("| --- | --- | --- |")
	for _, e := range entries {
		r.Printf("| %s | %t | %s |\n", e.Name, e.Exists, e.Error)
	}
}
