package dataset

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdata/pkg/storage"
)

// TimestampLayout is the wire format of generated version names. It sorts
// lexically in chronological order, which latest-version resolution relies
// on.
const TimestampLayout = "2006-01-02T15.04.05.000000Z"

// Version pins the versions a dataset loads from and saves to. Empty
// fields mean "latest" for Load and "generate a fresh timestamp" for Save.
type Version struct {
	Load string `koanf:"load"`
	Save string `koanf:"save"`
}

// GenerateVersion returns a new UTC timestamp version name.
func GenerateVersion() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Resolver turns a dataset's base filepath into concrete load and save
// paths. Versioned datasets store each version under
// <filepath>/<version>/<basename>; unversioned ones use the filepath as
// is. The resolved load version and the generated save version are
// memoized until Reset.
type Resolver struct {
	fs        storage.FileSystem
	path      string
	versioned bool
	version   Version

	mu           sync.Mutex
	resolvedLoad string
	resolvedSave string
}

// NewResolver builds a resolver over fs for the given base path.
func NewResolver(fs storage.FileSystem, basePath string, versioned bool, version Version) *Resolver {
	return &Resolver{
		fs:        fs,
		path:      basePath,
		versioned: versioned,
		version:   version,
	}
}

// Versioned reports whether the resolver applies the versioned layout.
func (r *Resolver) Versioned() bool { return r.versioned }

// Version returns the pinned version pair the resolver was built with.
func (r *Resolver) Version() Version { return r.version }

// Path returns the unversioned base path.
func (r *Resolver) Path() string { return r.path }

// LoadPath resolves the path a load should read. For versioned datasets
// with no pinned load version, the latest stored version is resolved via
// glob and memoized.
func (r *Resolver) LoadPath(ctx context.Context) (string, error) {
	if !r.versioned {
		return r.path, nil
	}
	v, err := r.LoadVersion(ctx)
	if err != nil {
		return "", err
	}
	return r.versionedPath(v), nil
}

// LoadVersion resolves the version a load would read.
func (r *Resolver) LoadVersion(ctx context.Context) (string, error) {
	if !r.versioned {
		return "", fmt.Errorf("dataset at %q is not versioned", r.path)
	}
	if r.version.Load != "" {
		return r.version.Load, nil
	}
	r.mu.Lock()
	memo := r.resolvedLoad
	r.mu.Unlock()
	if memo != "" {
		return memo, nil
	}

	pattern := path.Join(r.path, "*", path.Base(r.path))
	matches, err := r.fs.Glob(ctx, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to list versions of %q: %w", r.path, err)
	}
	versions := make([]string, 0, len(matches))
	for _, m := range matches {
		if v := path.Base(path.Dir(m)); v != "" {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return "", &VersionNotFoundError{Pattern: pattern}
	}
	sort.Strings(versions)
	latest := versions[len(versions)-1]

	r.mu.Lock()
	r.resolvedLoad = latest
	r.mu.Unlock()
	return latest, nil
}

// SavePath resolves the path a save should write. The generated save
// version is stable across calls until Reset.
func (r *Resolver) SavePath(ctx context.Context) (string, error) {
	if !r.versioned {
		return r.path, nil
	}
	return r.versionedPath(r.SaveVersion()), nil
}

// SaveVersion returns the version a save would write, generating and
// memoizing a timestamp when none is pinned.
func (r *Resolver) SaveVersion() string {
	if r.version.Save != "" {
		return r.version.Save
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolvedSave == "" {
		r.resolvedSave = GenerateVersion()
	}
	return r.resolvedSave
}

// Reset forgets memoized load and save versions. The next LoadPath
// re-resolves against the backend.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvedLoad = ""
	r.resolvedSave = ""
}

func (r *Resolver) versionedPath(version string) string {
	return path.Join(r.path, version, path.Base(r.path))
}
