// Package storage abstracts the filesystems datasets read from and write
// to. A backend is selected by URI scheme ("file", "memory", "s3") through
// a registry, constructed from credentials and backend arguments, and
// exposes the four operations datasets need: existence checks, globbing,
// scoped opens, and cache invalidation.
//
// Backends register themselves in this package's init functions, the same
// way format codecs do in pkg/format.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Mode selects the direction a file is opened for.
type Mode string

const (
	ModeRead  Mode = "r"
	ModeWrite Mode = "w"
)

// OpenOptions carries per-open settings. MakeDirs only applies to write
// opens on backends with real directories.
type OpenOptions struct {
	Mode     Mode `koanf:"mode"`
	MakeDirs bool `koanf:"make_dirs"`
}

// File is a scoped handle returned by Open. Write handles become visible
// to readers when Close returns; read handles on random-access backends
// also implement io.ReaderAt and io.Seeker.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Name() string
}

// FileSystem is the backend contract datasets depend on.
type FileSystem interface {
	// Exists reports whether path refers to a stored object.
	Exists(ctx context.Context, path string) (bool, error)

	// Glob returns the paths matching pattern, in unspecified order.
	// Patterns use path.Match syntax within each segment.
	Glob(ctx context.Context, pattern string) ([]string, error)

	// Open returns a handle for path. Read opens fail when the object is
	// missing; write opens create or replace it.
	Open(ctx context.Context, path string, opts OpenOptions) (File, error)

	// InvalidateCache drops cached state for path. An empty path drops
	// everything. Backends without caches treat this as a no-op.
	InvalidateCache(path string)
}

// Config is what a backend factory receives: the parsed scheme, resolved
// credentials, and the remaining fs_args (reserved open_args keys already
// stripped by the dataset layer).
type Config struct {
	Scheme      string
	Credentials map[string]any
	Args        map[string]any
	Logger      *slog.Logger
}

// Factory builds a backend from its config.
type Factory func(cfg Config) (FileSystem, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a backend factory under a URI scheme.
// Called by backend implementations in their init() functions.
func Register(scheme string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(scheme)] = factory
}

// New constructs the backend registered for cfg.Scheme.
func New(cfg Config) (FileSystem, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(cfg.Scheme)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSchemeError{Scheme: cfg.Scheme, Available: Schemes()}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return factory(cfg)
}

// Schemes returns all registered scheme names (sorted).
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	schemes := make([]string, 0, len(registry))
	for s := range registry {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// UnknownSchemeError is returned when no backend serves a URI scheme.
type UnknownSchemeError struct {
	Scheme    string
	Available []string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown filesystem scheme %q\nAvailable schemes: %v\nHint: check the filepath prefix in your catalog entry", e.Scheme, e.Available)
}

// ParseURI splits a dataset filepath into its scheme and backend path.
// Bare paths and file:// URIs map to the local backend; remote URIs keep
// host and key joined ("s3://bucket/key" parses to "bucket/key"). Windows
// drive letters are not mistaken for schemes.
func ParseURI(raw string) (scheme, path string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("filepath is empty")
	}
	i := strings.Index(raw, "://")
	if i < 0 {
		return "file", raw, nil
	}
	scheme = strings.ToLower(raw[:i])
	rest := raw[i+len("://"):]
	if len(scheme) == 1 {
		// "C://..." style Windows path.
		return "file", raw, nil
	}
	if scheme == "file" {
		if rest == "" {
			return "", "", fmt.Errorf("file URI %q has no path", raw)
		}
		return "file", rest, nil
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return "", "", fmt.Errorf("URI %q has no path after the scheme", raw)
	}
	return scheme, rest, nil
}
