package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/leapdata/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// Package-level koanf instance and project file tracking
var (
	k               = koanf.New(".")
	projectFileUsed string
	currentSettings *Settings // Stores the loaded settings for access by commands
)

// findProjectFile returns the path of the project file in dir, or empty.
// Priority: leapdata.yaml > leapdata.yml
func findProjectFile(dir string) string {
	for _, name := range []string{"leapdata.yaml", "leapdata.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and the
// filesystem.
// Priority:
//  1. Explicit --project flag
//  2. Search upward from CWD for leapdata.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	// 1. Check explicit --project
	if flags != nil {
		if dir, _ := flags.GetString("project"); dir != "" && flags.Changed("project") {
			abs, err := filepath.Abs(dir)
			if err == nil {
				return abs
			}
			return filepath.Clean(dir)
		}
	}

	// 2. Search upward from CWD for leapdata.yaml
	if cwd, err := os.Getwd(); err == nil {
		if root := intconfig.FindProject(cwd); root != "" {
			return root
		}
	}

	// 3. Default to CWD
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetSettings resets the koanf instance. Used for testing.
func ResetSettings() {
	k = koanf.New(".")
	projectFileUsed = ""
	currentSettings = nil
}

// LoadSettings resolves the effective CLI settings.
// Precedence (highest to lowest): flags > env vars > project file > defaults
func LoadSettings(flags *pflag.FlagSet) (*Settings, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	projectRoot := inferProjectRoot(flags)

	// Track paths that were explicitly provided as flags (relative to CWD).
	// These are converted to absolute paths before the normal resolution
	// step, which anchors everything else to the project root.
	var flagConfSource, flagJournalPath string
	if flags != nil {
		if flags.Changed("conf") {
			if v, _ := flags.GetString("conf"); v != "" {
				flagConfSource, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("journal") {
			if v, _ := flags.GetString("journal"); v != "" {
				// Journal path can be :memory: or a file path
				if v != ":memory:" {
					flagJournalPath, _ = filepath.Abs(v)
				} else {
					flagJournalPath = v
				}
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"conf_source":  DefaultConfSource,
		"env":          DefaultEnv,
		"journal_path": DefaultJournalPath,
		"output":       DefaultOutput,
		"verbose":      false,
		"no_journal":   false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load the project file from the project root, if one exists
	projectFileUsed = findProjectFile(projectRoot)
	if projectFileUsed != "" {
		if err := k.Load(file.Provider(projectFileUsed), yamlparser.Parser()); err != nil {
			return nil, fmt.Errorf("error reading project file %s: %w", projectFileUsed, err)
		}
	}

	// 3. Load environment variables (LEAPDATA_ prefix)
	// Transform: LEAPDATA_CONF_SOURCE -> conf_source
	if err := k.Load(env.Provider("LEAPDATA_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LEAPDATA_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and project file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for settings keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// EXPLICIT MAPPING: the CLI uses short flag names, but the
			// settings keys spell out what they hold. --project is a
			// directory, while the project key is the name from the
			// project file.
			switch key {
			case "project":
				return "project_dir", posflag.FlagVal(flags, f)
			case "conf":
				return "conf_source", posflag.FlagVal(flags, f)
			case "journal":
				return "journal_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Settings struct
	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	// 6. Set project root and resolve relative paths against it.
	// Paths explicitly provided via flags keep the pre-computed absolute
	// paths (already anchored to CWD at flag parse time).
	s.Root = projectRoot

	if flagConfSource != "" {
		s.ConfSource = flagConfSource
	} else {
		s.ConfSource = resolvePathRelativeTo(s.ConfSource, projectRoot)
	}
	if flagJournalPath != "" {
		s.JournalPath = flagJournalPath
	} else if s.JournalPath != ":memory:" {
		s.JournalPath = resolvePathRelativeTo(s.JournalPath, projectRoot)
	}

	// Store settings for access by commands
	currentSettings = &s

	return &s, nil
}

// GetProjectFileUsed returns the path of the project file in use, if any.
func GetProjectFileUsed() string {
	return projectFileUsed
}

// GetCurrentSettings returns the currently loaded settings.
// This is available after LoadSettings is called.
func GetCurrentSettings() *Settings {
	return currentSettings
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns a context carrying the logger for GetLogger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
