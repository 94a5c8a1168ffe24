package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

func init() {
	Register("file", NewLocal)
}

// LocalFileSystem stores objects on the local disk. Context parameters are
// accepted for interface symmetry; the os package has no cancellation.
type LocalFileSystem struct{}

// NewLocal builds the local backend. It takes no credentials or arguments.
func NewLocal(cfg Config) (FileSystem, error) {
	return &LocalFileSystem{}, nil
}

func (fs *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %q: %w", path, err)
}

func (fs *LocalFileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	return matches, nil
}

func (fs *LocalFileSystem) Open(ctx context.Context, path string, opts OpenOptions) (File, error) {
	switch opts.Mode {
	case ModeWrite:
		if opts.MakeDirs {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create parent directories for %q: %w", path, err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %q for writing: %w", path, err)
		}
		return f, nil
	case ModeRead, "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %q: %w", path, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported open mode %q", opts.Mode)
	}
}

func (fs *LocalFileSystem) InvalidateCache(path string) {}
