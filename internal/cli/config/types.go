// Package config resolves the effective CLI settings for LeapData.
//
// Settings come from four layers, lowest to highest precedence: built-in
// defaults, the leapdata.yaml project file, LEAPDATA_ environment
// variables and command-line flags. The project-level configuration tree
// itself (catalog, credentials, parameters) is loaded separately by
// internal/config once the settings say where it lives.
package config

import (
	"path/filepath"

	intconfig "github.com/leapstack-labs/leapdata/internal/config"
)

// Settings holds the effective CLI configuration after all layers merge.
type Settings struct {
	// Project is the project name from the project file. Empty when the
	// file does not set one; ProjectName falls back to the directory name.
	Project string `koanf:"project"`

	// ProjectDir is the directory given with --project. Root holds the
	// resolved project root whether it came from the flag or from an
	// upward search.
	ProjectDir string `koanf:"project_dir"`

	ConfSource  string   `koanf:"conf_source"`
	Env         string   `koanf:"env"`
	JournalPath string   `koanf:"journal_path"`
	Params      []string `koanf:"params"`
	Output      string   `koanf:"output"`
	Verbose     bool     `koanf:"verbose"`
	NoJournal   bool     `koanf:"no_journal"`

	// Root is the resolved project root directory.
	Root string `koanf:"-"`
}

// Default settings values - path defaults are shared with internal/config
const (
	DefaultConfSource  = intconfig.DefaultConfSource
	DefaultEnv         = intconfig.DefaultEnv
	DefaultJournalPath = intconfig.DefaultJournalPath
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// ProjectName returns the configured project name, falling back to the
// project directory's name when the project file does not set one.
func (s *Settings) ProjectName() string {
	if s.Project != "" {
		return s.Project
	}
	return filepath.Base(s.Root)
}

// JournalDSN returns the journal database location. Paths are resolved
// against the project root at load time; :memory: passes through.
func (s *Settings) JournalDSN() string {
	return s.JournalPath
}

// RuntimeParams parses the --params pairs into typed parameter values.
func (s *Settings) RuntimeParams() (map[string]any, error) {
	return ParseParams(s.Params)
}
