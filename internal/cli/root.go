// Package cli provides the command-line interface for LeapData.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapdata/internal/cli/commands"
	"github.com/leapstack-labs/leapdata/internal/cli/config"
	"github.com/leapstack-labs/leapdata/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// settingsKey is used to store settings in context.
type settingsKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leapdata",
		Short: "LeapData - Data Catalog Toolkit",
		Long: `LeapData is a declarative data catalog for tabular datasets built with Go.

It resolves named datasets to files, object stores, and in-memory tables,
handles format encoding and versioned snapshots, and records every load
and save in a local run journal.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip settings loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load settings from flags, env vars, and the project file
			settings, err := config.LoadSettings(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			// Store settings in context
			ctx := context.WithValue(cmd.Context(), settingsKey{}, settings)

			// Create and store renderer based on output mode
			mode := output.Mode(settings.Output)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, rendererKey{}, renderer)

			// Create and store logger; debug level when verbose
			level := slog.LevelWarn
			if settings.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			// Print project file used (if verbose)
			if settings.Verbose {
				if projectFile := config.GetProjectFileUsed(); projectFile != "" {
					fmt.Fprintf(os.Stderr, "Using project file: %s\n", projectFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Data Catalog Toolkit built with Go
`)

	// Global persistent flags
	rootCmd.PersistentFlags().String("project", "", "Path to the project directory (default: nearest leapdata.yaml)")
	rootCmd.PersistentFlags().String("conf", "", "Path to the configuration tree (default: ./conf)")
	rootCmd.PersistentFlags().String("env", "", "Configuration environment layered over base (e.g., local, staging)")
	rootCmd.PersistentFlags().String("journal", "", "Path to the run journal database")
	rootCmd.PersistentFlags().StringSlice("params", nil, "Runtime parameters as key=value pairs (dotted keys nest)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-journal", false, "Disable run journal recording")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for env flag
	_ = rootCmd.RegisterFlagCompletionFunc("env", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		// Return common environment names
		return []string{"local", "staging", "production"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(commands.NewExistsCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewCopyCommand())
	rootCmd.AddCommand(commands.NewReleaseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewJournalCommand())
	rootCmd.AddCommand(commands.NewShellCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetSettings retrieves the settings from the command context.
func GetSettings(ctx context.Context) *config.Settings {
	if s, ok := ctx.Value(settingsKey{}).(*config.Settings); ok {
		return s
	}
	// Return default settings if none in context
	return &config.Settings{
		ConfSource:  config.DefaultConfSource,
		Env:         config.DefaultEnv,
		JournalPath: config.DefaultJournalPath,
		Output:      config.DefaultOutput,
	}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	// Return default renderer if none in context
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapData.

To load completions:

Bash:
  $ source <(leapdata completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leapdata completion bash > /etc/bash_completion.d/leapdata
  # macOS:
  $ leapdata completion bash > $(brew --prefix)/etc/bash_completion.d/leapdata

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leapdata completion zsh > "${fpath[1]}/_leapdata"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leapdata completion fish | source

  # To load completions for each session, execute once:
  $ leapdata completion fish > ~/.config/fish/completions/leapdata.fish

PowerShell:
  PS> leapdata completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> leapdata completion powershell > leapdata.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
