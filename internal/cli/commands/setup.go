package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/leapdata/internal/catalog"
	"github.com/leapstack-labs/leapdata/internal/cli/config"
	"github.com/leapstack-labs/leapdata/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapdata/internal/config"
	"github.com/leapstack-labs/leapdata/internal/journal"
	_ "github.com/leapstack-labs/leapdata/pkg/datasets" // register built-in dataset types
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Settings *config.Settings
	Logger   *slog.Logger
	Session  *Session
	Renderer *output.Renderer
}

// Session wires the loaded catalog and the run journal for one command
// invocation.
type Session struct {
	Settings *config.Settings
	Loader   *intconfig.Loader
	Catalog  *catalog.Catalog
	Journal  *journal.Store
	Recorder *journal.Recorder

	logger *slog.Logger
}

// NewCommandContext creates a CommandContext with an open session.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	settings := getSettings()
	logger := config.GetLogger(cmd.Context())
	r := newRenderer(cmd, settings)

	sess, err := OpenSession(cmd, settings, logger, r)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		sess.Close()
	}

	return &CommandContext{
		Settings: settings,
		Logger:   logger,
		Session:  sess,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext without loading
// the catalog. Useful for commands that work before a project exists.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	settings := getSettings()
	return &CommandContext{
		Settings: settings,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, settings),
	}
}

// OpenSession loads the catalog for the configured environment and opens
// the run journal. The journal is best effort: the catalog stays usable
// when its journal cannot be opened.
func OpenSession(cmd *cobra.Command, settings *config.Settings, logger *slog.Logger, r *output.Renderer) (*Session, error) {
	if err := settings.ValidateConfSource(); err != nil {
		return nil, err
	}

	runtimeParams, err := settings.RuntimeParams()
	if err != nil {
		return nil, err
	}

	loader := intconfig.NewLoader(settings.ConfSource, settings.Env, runtimeParams, logger)
	cat, err := buildCatalog(loader, logger)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Settings: settings,
		Loader:   loader,
		Catalog:  cat,
		logger:   logger,
	}

	if !settings.NoJournal {
		store, err := journal.Open(settings.JournalDSN(), logger)
		if err != nil {
			r.Warning(fmt.Sprintf("run journal unavailable: %v", err))
		} else {
			sess.Journal = store
			sess.Recorder = store.Begin(settings.ProjectName(), settings.Env, commandName(cmd))
			cat.SetRecorder(sess.Recorder)
		}
	}

	return sess, nil
}

func buildCatalog(loader *intconfig.Loader, logger *slog.Logger) (*catalog.Catalog, error) {
	entries, err := loader.Catalog()
	if err != nil {
		return nil, err
	}
	creds, err := loader.Credentials()
	if err != nil {
		return nil, err
	}
	return catalog.FromConfig(entries, creds, logger)
}

// Reload rebuilds the catalog from the configuration tree, keeping the
// journal recorder attached. Used by the shell's .reload command.
func (s *Session) Reload() error {
	cat, err := buildCatalog(s.Loader, s.logger)
	if err != nil {
		return err
	}
	if s.Recorder != nil {
		cat.SetRecorder(s.Recorder)
	}
	s.Catalog = cat
	return nil
}

// Close releases loaded datasets and closes the journal.
func (s *Session) Close() {
	if s.Catalog != nil {
		s.Catalog.ReleaseAll()
	}
	if s.Journal != nil {
		_ = s.Journal.Close()
	}
}

func newRenderer(cmd *cobra.Command, settings *config.Settings) *output.Renderer {
	mode := output.Mode(settings.Output)
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
}

// commandName reconstructs the invoked subcommand path for the journal's
// runs table, without the binary name.
func commandName(cmd *cobra.Command) string {
	name := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name())
	return strings.TrimSpace(name)
}

// Helper functions shared across commands

// getSettings returns the current settings.
// It uses config.GetCurrentSettings() if available, otherwise falls back
// to environment variables.
func getSettings() *config.Settings {
	if s := config.GetCurrentSettings(); s != nil {
		return s
	}

	// Fallback: read from environment with defaults
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return &config.Settings{
		ConfSource:  getEnvOrDefault("LEAPDATA_CONF_SOURCE", config.DefaultConfSource),
		Env:         getEnvOrDefault("LEAPDATA_ENV", config.DefaultEnv),
		JournalPath: getEnvOrDefault("LEAPDATA_JOURNAL_PATH", config.DefaultJournalPath),
		Output:      os.Getenv("LEAPDATA_OUTPUT"),
		Verbose:     os.Getenv("LEAPDATA_VERBOSE") == "true",
		NoJournal:   os.Getenv("LEAPDATA_NO_JOURNAL") == "true",
		Root:        cwd,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
