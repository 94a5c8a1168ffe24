package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
)

func init() {
	Register("memory", NewMemory)
}

type memStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// sharedMemStore backs every memory filesystem built through the scheme
// registry. Sharing one store per process is what makes memory:// URIs
// observable across datasets that each construct their own backend.
var sharedMemStore = &memStore{files: make(map[string][]byte)}

// MemoryFileSystem keeps objects in an in-process map. It backs the
// "memory" scheme and most of the test suite. Writes become visible when
// the handle is closed, matching how object stores behave.
type MemoryFileSystem struct {
	store *memStore
}

// NewMemory builds a memory backend over the process-wide shared store.
func NewMemory(cfg Config) (FileSystem, error) {
	return &MemoryFileSystem{store: sharedMemStore}, nil
}

// NewIsolatedMemory builds a memory backend with its own private store,
// detached from the shared one. Intended for tests.
func NewIsolatedMemory() *MemoryFileSystem {
	return &MemoryFileSystem{store: &memStore{files: make(map[string][]byte)}}
}

func (fs *MemoryFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()
	_, ok := fs.store.files[p]
	return ok, nil
}

func (fs *MemoryFileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()
	var matches []string
	for p := range fs.store.files {
		ok, err := path.Match(pattern, p)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func (fs *MemoryFileSystem) Open(ctx context.Context, p string, opts OpenOptions) (File, error) {
	switch opts.Mode {
	case ModeWrite:
		return &memWriteFile{store: fs.store, path: p}, nil
	case ModeRead, "":
		fs.store.mu.RLock()
		data, ok := fs.store.files[p]
		fs.store.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("file %q does not exist", p)
		}
		return &memReadFile{Reader: bytes.NewReader(data), path: p}, nil
	default:
		return nil, fmt.Errorf("unsupported open mode %q", opts.Mode)
	}
}

func (fs *MemoryFileSystem) InvalidateCache(path string) {}

// Put stores an object directly, bypassing the handle lifecycle. Test
// helper.
func (fs *MemoryFileSystem) Put(p string, data []byte) {
	fs.store.mu.Lock()
	defer fs.store.mu.Unlock()
	fs.store.files[p] = bytes.Clone(data)
}

// Get returns a stored object's bytes. Test helper.
func (fs *MemoryFileSystem) Get(p string) ([]byte, bool) {
	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()
	data, ok := fs.store.files[p]
	return bytes.Clone(data), ok
}

// memReadFile adapts a bytes.Reader, which brings the ReaderAt and Seeker
// surfaces random-access codecs probe for.
type memReadFile struct {
	*bytes.Reader
	path string
}

func (f *memReadFile) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("file %q is opened read-only", f.path)
}

func (f *memReadFile) Close() error { return nil }

func (f *memReadFile) Name() string { return f.path }

type memWriteFile struct {
	store  *memStore
	path   string
	buf    bytes.Buffer
	closed bool
}

func (f *memWriteFile) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("file %q is opened write-only", f.path)
}

func (f *memWriteFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("file %q is already closed", f.path)
	}
	return f.buf.Write(p)
}

func (f *memWriteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.files[f.path] = bytes.Clone(f.buf.Bytes())
	return nil
}

func (f *memWriteFile) Name() string { return f.path }
