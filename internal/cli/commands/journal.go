package commands

import (
	"fmt"
	"time"

	gptable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
	"github.com/leapstack-labs/leapdata/internal/journal"
)

const defaultJournalLimit = 20

// NewJournalCommand creates the journal command group.
func NewJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Browse the run journal",
		Long: `Browse the project's run journal: which commands ran, which datasets
they loaded and saved, and which versions were touched.

The journal lives in a SQLite database under the project directory
(journal_path in leapdata.yaml). Commands record into it automatically
unless --no-journal is set.`,
	}

	cmd.AddCommand(newJournalRunsCommand())
	cmd.AddCommand(newJournalEventsCommand())
	cmd.AddCommand(newJournalHistoryCommand())

	return cmd
}

func newJournalRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Example: `  # The last 20 runs
  leapdata journal runs

  # More history, machine readable
  leapdata journal runs --limit 100 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJournalRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultJournalLimit, "Maximum runs to show")

	return cmd
}

func newJournalEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <run-id>",
		Short: "Show the dataset events of one run",
		Example: `  # Events of a run from "journal runs"
  leapdata journal events 6f1f4a3e-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalEvents(cmd, args[0])
		},
	}

	return cmd
}

func newJournalHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <dataset>",
		Short: "Show a dataset's load and save history",
		Example: `  # When was cars last written, and by what?
  leapdata journal history cars`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalHistory(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultJournalLimit, "Maximum events to show")

	return cmd
}

// openJournal opens the journal read path. Browsing needs no catalog, so
// a broken configuration tree does not block it.
func openJournal(cmd *cobra.Command) (*CommandContext, *journal.Store, error) {
	cmdCtx := NewCommandContextWithoutSession(cmd)
	store, err := journal.Open(cmdCtx.Settings.JournalDSN(), cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return cmdCtx, store, nil
}

func runJournalRuns(cmd *cobra.Command, limit int) error {
	cmdCtx, store, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(runs)
	case output.ModeYAML:
		return r.YAML(runs)
	default:
		if len(runs) == 0 {
			r.Println("No runs recorded yet.")
			return nil
		}
		tw := gptable.NewWriter()
		tw.SetOutputMirror(r.Writer())
		tw.SetStyle(gptable.StyleLight)
		tw.AppendHeader(gptable.Row{"Run ID", "Project", "Env", "Command", "Started", "Events"})
		for _, run := range runs {
			tw.AppendRow(gptable.Row{
				run.ID, run.Project, run.Environment, run.Command,
				run.StartedAt.Format(time.RFC3339), run.Events,
			})
		}
		tw.Render()
		return nil
	}
}

func runJournalEvents(cmd *cobra.Command, runID string) error {
	cmdCtx, store, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.Events(cmd.Context(), runID)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(events)
	case output.ModeYAML:
		return r.YAML(events)
	default:
		if len(events) == 0 {
			r.Printf("No events recorded for run %s.\n", runID)
			return nil
		}
		renderEventTable(r, events, false)
		return nil
	}
}

func runJournalHistory(cmd *cobra.Command, dataset string, limit int) error {
	cmdCtx, store, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.DatasetHistory(cmd.Context(), dataset, limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(events)
	case output.ModeYAML:
		return r.YAML(events)
	default:
		if len(events) == 0 {
			r.Printf("No journal events for dataset %q.\n", dataset)
			return nil
		}
		renderEventTable(r, events, true)
		return nil
	}
}

// renderEventTable draws events; withRun swaps the dataset column for the
// run ID, which dataset history wants.
func renderEventTable(r *output.Renderer, events []*journal.Event, withRun bool) {
	tw := gptable.NewWriter()
	tw.SetOutputMirror(r.Writer())
	tw.SetStyle(gptable.StyleLight)

	if withRun {
		tw.AppendHeader(gptable.Row{"Recorded", "Op", "Version", "Run ID", "Location"})
		for _, e := range events {
			tw.AppendRow(gptable.Row{
				e.RecordedAt.Format(time.RFC3339), e.Operation, e.Version, e.RunID, e.Location,
			})
		}
	} else {
		tw.AppendHeader(gptable.Row{"Recorded", "Dataset", "Op", "Version", "Location"})
		for _, e := range events {
			tw.AppendRow(gptable.Row{
				e.RecordedAt.Format(time.RFC3339), e.Dataset, e.Operation, e.Version, e.Location,
			})
		}
	}
	tw.Render()
}
