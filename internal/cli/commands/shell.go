package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdata/internal/cli/output"
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive catalog shell",
		Long: `Open an interactive shell over the catalog. Dataset operations run as
dot-commands; typing a bare dataset name previews it. One journal run
spans the whole shell session.`,
		Example: `  leapdata shell
  leapdata> .datasets
  leapdata> cars
  leapdata> .copy cars cars_table
  leapdata> .quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd)
		},
	}

	return cmd
}

func runShell(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sess := cmdCtx.Session
	r := cmdCtx.Renderer

	// Project-local history beside the journal
	historyDir := filepath.Join(cmdCtx.Settings.Root, ".leapdata")
	if err := os.MkdirAll(historyDir, 0750); err != nil {
		return fmt.Errorf("failed to prepare history directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "leapdata> ",
		HistoryFile:     filepath.Join(historyDir, "shell_history"),
		AutoComplete:    newShellCompleter(sess.Catalog.Names()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("LeapData shell (env: %s, %d datasets)\n", cmdCtx.Settings.Env, len(sess.Catalog.Names()))
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleShellCommand(cmd.Context(), sess, r, line); quit {
				break
			}
			r.Println("")
			continue
		}

		// A bare dataset name previews it.
		if err := shellPreview(cmd.Context(), sess, r, line, defaultPreviewRows); err != nil {
			r.Warning(err.Error())
		}
		r.Println("")
	}

	return nil
}

// handleShellCommand runs one dot-command and reports whether the shell
// should exit.
func handleShellCommand(ctx context.Context, sess *Session, r *output.Renderer, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	fail := func(err error) { r.Warning(err.Error()) }

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(r.Writer())

	case ".datasets":
		for _, name := range sess.Catalog.Names() {
			r.Println("  " + name)
		}

	case ".describe":
		if len(args) != 1 {
			r.Warning("Usage: .describe <dataset>")
			break
		}
		desc, err := sess.Catalog.Describe(args[0])
		if err != nil {
			fail(err)
			break
		}
		for _, key := range sortedKeys(desc) {
			r.KeyValue(key, desc[key])
		}

	case ".preview":
		if len(args) < 1 || len(args) > 2 {
			r.Warning("Usage: .preview <dataset> [rows]")
			break
		}
		rows := defaultPreviewRows
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				r.Warning("Usage: .preview <dataset> [rows]")
				break
			}
			rows = n
		}
		if err := shellPreview(ctx, sess, r, args[0], rows); err != nil {
			fail(err)
		}

	case ".exists":
		if len(args) != 1 {
			r.Warning("Usage: .exists <dataset>")
			break
		}
		exists, err := sess.Catalog.Exists(ctx, args[0])
		if err != nil {
			fail(err)
			break
		}
		status, detail := "failed", "no data at the target"
		if exists {
			status, detail = "success", "data present"
		}
		r.StatusLine(args[0], status, detail)

	case ".copy":
		if len(args) != 2 {
			r.Warning("Usage: .copy <source> <destination>")
			break
		}
		t, err := sess.Catalog.Load(ctx, args[0])
		if err != nil {
			fail(err)
			break
		}
		if err := sess.Catalog.Save(ctx, args[1], t); err != nil {
			fail(err)
			break
		}
		r.Success(fmt.Sprintf("Copied %d rows from %q to %q", t.Len(), args[0], args[1]))

	case ".release":
		if len(args) != 1 {
			r.Warning("Usage: .release <dataset>")
			break
		}
		if err := sess.Catalog.Release(args[0]); err != nil {
			fail(err)
			break
		}
		r.Success(fmt.Sprintf("Released %q", args[0]))

	case ".reload":
		if err := sess.Reload(); err != nil {
			fail(err)
			break
		}
		r.Success(fmt.Sprintf("Catalog reloaded (%d datasets)", len(sess.Catalog.Names())))

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		r.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}

	return false
}

func shellPreview(ctx context.Context, sess *Session, r *output.Renderer, name string, rows int) error {
	t, err := sess.Catalog.Load(ctx, name)
	if err != nil {
		return err
	}
	shown := t
	if rows >= 0 && rows < t.Len() {
		shown = t.Head(rows)
	}
	if shown.Len() < t.Len() {
		r.Printf("%s (first %d of %d rows)\n", name, shown.Len(), t.Len())
	}
	return renderRecords(r, shown)
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .datasets                    List catalog datasets
  .describe <dataset>          Show a dataset's configuration
  .preview <dataset> [rows]    Load a dataset and show leading rows
  .exists <dataset>            Check whether the target holds data
  .copy <source> <dest>        Copy one dataset into another
  .release <dataset>           Drop a dataset's cached state
  .reload                      Rebuild the catalog from the config tree
  .clear                       Clear the screen
  .help                        Show this help message
  .quit / .exit                Exit the shell

Tips:
  - A bare dataset name previews it
  - Use arrow keys to navigate history
  - Tab completion works for dataset names
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter creates a readline completer over the dataset names.
func newShellCompleter(names []string) *readline.PrefixCompleter {
	datasetItems := func() []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, 0, len(names))
		for _, name := range names {
			items = append(items, readline.PcItem(name))
		}
		return items
	}

	items := datasetItems()
	items = append(items,
		readline.PcItem(".datasets"),
		readline.PcItem(".describe", datasetItems()...),
		readline.PcItem(".preview", datasetItems()...),
		readline.PcItem(".exists", datasetItems()...),
		readline.PcItem(".copy", datasetItems()...),
		readline.PcItem(".release", datasetItems()...),
		readline.PcItem(".reload"),
		readline.PcItem(".clear"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
