// Package config loads LeapData project configuration: the leapdata.yaml
// project file and the layered YAML files under the conf source directory.
//
// Configuration is organized in environment layers. Files matching a
// pattern are read from <conf_source>/base first, then from
// <conf_source>/<env>; the environment layer wins per top-level key.
// Values may reference entries of the layer's globals.yaml with
// ${globals:dot.path} or ${globals:dot.path|default}, and credential
// strings may reference environment variables with ${VAR}.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

const (
	// BaseEnv is the layer every environment is merged over.
	BaseEnv = "base"

	// DefaultEnv is the run environment used when none is configured.
	DefaultEnv = "local"

	// globalsFile is consulted per layer for ${globals:...} references.
	globalsFile = "globals.yaml"
)

// Patterns the convenience accessors load.
const (
	catalogPattern     = "catalog*"
	credentialsPattern = "credentials*"
	parametersPattern  = "parameters*"
)

// MissingConfigError is returned when no configuration file matches a
// pattern in any environment layer.
type MissingConfigError struct {
	Pattern    string
	ConfSource string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("no config files found matching %q under %q\nHint: expected YAML files in %s or an environment directory next to it",
		e.Pattern, e.ConfSource, filepath.Join(e.ConfSource, BaseEnv))
}

// BadConfigError is returned when a configuration file exists but cannot
// be loaded, for instance due to invalid syntax or an unresolvable
// ${globals:...} reference.
type BadConfigError struct {
	Path string
	Err  error
}

func (e *BadConfigError) Error() string {
	return fmt.Sprintf("failed to load config file %q: %v", e.Path, e.Err)
}

func (e *BadConfigError) Unwrap() error { return e.Err }

// Loader reads layered configuration from a conf source directory.
type Loader struct {
	// ConfSource is the root of the configuration tree, holding one
	// subdirectory per environment.
	ConfSource string

	// Env selects the layer merged over base. Empty means DefaultEnv.
	Env string

	// RuntimeParams overlay the parameters config per top-level key.
	RuntimeParams map[string]any

	logger *slog.Logger
}

// NewLoader builds a loader over confSource for the given environment.
// A nil logger discards.
func NewLoader(confSource, env string, runtimeParams map[string]any, logger *slog.Logger) *Loader {
	if env == "" {
		env = DefaultEnv
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		ConfSource:    confSource,
		Env:           env,
		RuntimeParams: runtimeParams,
		logger:        logger,
	}
}

// Load merges all YAML files matching pattern across the base and
// environment layers. Within one layer files merge side by side and a
// top-level key defined twice is an error; across layers the environment
// wins per top-level key. No matching file in any layer yields a
// *MissingConfigError.
func (l *Loader) Load(pattern string) (map[string]any, error) {
	merged := make(map[string]any)
	found := false
	for _, env := range l.layers() {
		layer, n, err := l.loadLayer(filepath.Join(l.ConfSource, env), pattern)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			found = true
		}
		for key, value := range layer {
			if _, dup := merged[key]; dup {
				l.logger.Debug("config key overridden by environment layer",
					slog.String("key", key), slog.String("environment", env))
			}
			merged[key] = value
		}
	}
	if !found {
		return nil, &MissingConfigError{Pattern: pattern, ConfSource: l.ConfSource}
	}
	return merged, nil
}

func (l *Loader) layers() []string {
	if l.Env == BaseEnv {
		return []string{BaseEnv}
	}
	return []string{BaseEnv, l.Env}
}

// loadLayer merges the files matching pattern inside one environment
// directory and reports how many files matched.
func (l *Loader) loadLayer(dir, pattern string) (map[string]any, int, error) {
	paths, err := matchConfigFiles(dir, pattern)
	if err != nil {
		return nil, 0, err
	}
	globals, err := l.loadGlobals(dir)
	if err != nil {
		return nil, 0, err
	}

	layer := make(map[string]any)
	owner := make(map[string]string)
	for _, path := range paths {
		parsed, err := parseConfigFile(path, globals)
		if err != nil {
			return nil, 0, err
		}
		for key, value := range parsed {
			if other, dup := owner[key]; dup {
				return nil, 0, fmt.Errorf("duplicate top-level key %q in %q and %q", key, other, path)
			}
			owner[key] = path
			layer[key] = value
		}
	}
	return layer, len(paths), nil
}

// matchConfigFiles globs for YAML files matching pattern in dir. The
// pattern matches the file name without its extension, so "catalog*"
// finds catalog.yaml, catalog_cars.yml and so on.
func matchConfigFiles(dir, pattern string) ([]string, error) {
	var paths []string
	for _, ext := range []string{".yaml", ".yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern+ext))
		if err != nil {
			return nil, fmt.Errorf("bad config pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

func parseConfigFile(path string, globals *koanf.Koanf) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	parsed, err := yamlparser.Parser().Unmarshal(data)
	if err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	resolved, err := interpolateGlobals(parsed, globals)
	if err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		return nil, &BadConfigError{Path: path, Err: fmt.Errorf("expected a mapping at the document root, got %T", resolved)}
	}
	return out, nil
}

// loadGlobals reads the layer's globals.yaml into a koanf so references
// can be resolved by dot path. A missing globals file is fine.
func (l *Loader) loadGlobals(dir string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	path := filepath.Join(dir, globalsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return k, nil
	}
	if err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	parsed, err := yamlparser.Parser().Unmarshal(data)
	if err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	if err := k.Load(confmap.Provider(parsed, "."), nil); err != nil {
		return nil, &BadConfigError{Path: path, Err: err}
	}
	return k, nil
}

// globalsRef matches ${globals:dot.path} with an optional |default.
var globalsRef = regexp.MustCompile(`\$\{globals:([^}|]+)(?:\|([^}]*))?\}`)

// interpolateGlobals walks a parsed YAML value and resolves
// ${globals:...} references. A string that is exactly one reference takes
// the referenced value with its type; references embedded in a longer
// string must resolve to scalars and are spliced in textually.
func interpolateGlobals(v any, globals *koanf.Koanf) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, value := range x {
			resolved, err := interpolateGlobals(value, globals)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, value := range x {
			resolved, err := interpolateGlobals(value, globals)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return interpolateString(x, globals)
	default:
		return v, nil
	}
}

func interpolateString(s string, globals *koanf.Koanf) (any, error) {
	if m := globalsRef.FindStringSubmatch(s); m != nil && m[0] == s {
		return resolveGlobal(m[1], m[2], strings.Contains(s, "|"), globals)
	}
	var resolveErr error
	out := globalsRef.ReplaceAllStringFunc(s, func(match string) string {
		m := globalsRef.FindStringSubmatch(match)
		value, err := resolveGlobal(m[1], m[2], strings.Contains(match, "|"), globals)
		if err != nil {
			resolveErr = err
			return match
		}
		switch value.(type) {
		case map[string]any, []any:
			resolveErr = fmt.Errorf("global %q is not a scalar and cannot be spliced into %q", m[1], s)
			return match
		}
		return fmt.Sprintf("%v", value)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

func resolveGlobal(path, fallback string, hasFallback bool, globals *koanf.Koanf) (any, error) {
	path = strings.TrimSpace(path)
	if globals.Exists(path) {
		return globals.Get(path), nil
	}
	if hasFallback {
		return fallback, nil
	}
	return nil, fmt.Errorf("global %q is not defined in %s and no default was given", path, globalsFile)
}

// envVarRef matches ${VAR} references in credential values.
var envVarRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} in every string of a config tree with the
// environment variable's value. Unset variables keep the reference so the
// problem is visible downstream instead of silently becoming empty.
func expandEnvVars(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, value := range x {
			out[key] = expandEnvVars(value)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, value := range x {
			out[i] = expandEnvVars(value)
		}
		return out
	case string:
		return envVarRef.ReplaceAllStringFunc(x, func(match string) string {
			name := match[2 : len(match)-1]
			if val := os.Getenv(name); val != "" {
				return val
			}
			return match
		})
	default:
		return v
	}
}

// Catalog loads the catalog config: one entry per dataset name.
func (l *Loader) Catalog() (map[string]any, error) {
	return l.Load(catalogPattern)
}

// Credentials loads the credentials config with ${VAR} environment
// references expanded. Projects without credentials files get an empty
// map, not an error.
func (l *Loader) Credentials() (map[string]any, error) {
	creds, err := l.Load(credentialsPattern)
	if err != nil {
		var missing *MissingConfigError
		if errors.As(err, &missing) {
			l.logger.Debug("no credentials config found", slog.String("conf_source", l.ConfSource))
			return map[string]any{}, nil
		}
		return nil, err
	}
	return expandEnvVars(creds).(map[string]any), nil
}

// Parameters loads the parameters config with the loader's runtime
// params merged in. Runtime values win, merging nested maps key by key
// rather than replacing whole subtrees. Projects without parameters
// files start from an empty map.
func (l *Loader) Parameters() (map[string]any, error) {
	params, err := l.Load(parametersPattern)
	if err != nil {
		var missing *MissingConfigError
		if !errors.As(err, &missing) {
			return nil, err
		}
		params = map[string]any{}
	}
	return mergeParams(params, l.RuntimeParams), nil
}

func mergeParams(dst, src map[string]any) map[string]any {
	for key, value := range src {
		if sub, ok := value.(map[string]any); ok {
			if cur, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeParams(cur, sub)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}
