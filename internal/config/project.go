package config

import (
	"fmt"
	"os"
	"path/filepath"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for a project file.
const maxUpwardSearchLevels = 10

// Project file defaults.
const (
	DefaultConfSource  = "conf"
	DefaultJournalPath = ".leapdata/journal.db"
)

// Project is the leapdata.yaml project file: where the configuration
// tree lives, which environment to run in and where run history goes.
type Project struct {
	Name        string `koanf:"project"`
	ConfSource  string `koanf:"conf_source"`
	Env         string `koanf:"env"`
	JournalPath string `koanf:"journal_path"`

	// Root is the directory holding the project file. Relative
	// ConfSource and JournalPath values resolve against it.
	Root string `koanf:"-"`
}

// ConfSourcePath returns the conf source resolved against the project
// root.
func (p *Project) ConfSourcePath() string {
	return resolvePathRelativeTo(p.ConfSource, p.Root)
}

// JournalDSN returns the journal database path resolved against the
// project root. The :memory: DSN passes through untouched.
func (p *Project) JournalDSN() string {
	if p.JournalPath == ":memory:" {
		return p.JournalPath
	}
	return resolvePathRelativeTo(p.JournalPath, p.Root)
}

// projectFileIn returns the path of the project file in dir, or empty.
// Priority: leapdata.yaml > leapdata.yml
func projectFileIn(dir string) string {
	for _, name := range []string{"leapdata.yaml", "leapdata.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindProject searches upward from startDir for a project file and
// returns its directory. Returns empty string if not found within
// maxUpwardSearchLevels.
func FindProject(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if projectFileIn(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// LoadProject reads the project file in dir. Returns (nil, nil) when the
// directory has no project file, so callers can fall back to defaults.
func LoadProject(dir string) (*Project, error) {
	path := projectFileIn(dir)
	if path == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"conf_source":  DefaultConfSource,
		"env":          DefaultEnv,
		"journal_path": DefaultJournalPath,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yamlparser.Parser()); err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}

	var p Project
	if err := k.Unmarshal("", &p); err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	p.Root = abs
	return &p, nil
}

// DefaultProject returns the project settings used when no project file
// exists: configuration under <dir>/conf, the local environment and a
// journal beneath <dir>/.leapdata.
func DefaultProject(dir string) *Project {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return &Project{
		ConfSource:  DefaultConfSource,
		Env:         DefaultEnv,
		JournalPath: DefaultJournalPath,
		Root:        abs,
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
