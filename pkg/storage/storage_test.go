package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		scheme  string
		path    string
		wantErr bool
	}{
		{name: "bare path", in: "data/cars.csv", scheme: "file", path: "data/cars.csv"},
		{name: "absolute path", in: "/var/data/cars.csv", scheme: "file", path: "/var/data/cars.csv"},
		{name: "file uri", in: "file:///var/data/cars.csv", scheme: "file", path: "/var/data/cars.csv"},
		{name: "s3 uri", in: "s3://bucket/key/cars.csv", scheme: "s3", path: "bucket/key/cars.csv"},
		{name: "s3 trailing slash", in: "s3://bucket/prefix/", scheme: "s3", path: "bucket/prefix"},
		{name: "memory uri", in: "memory://data/cars.csv", scheme: "memory", path: "data/cars.csv"},
		{name: "uppercase scheme", in: "S3://bucket/key", scheme: "s3", path: "bucket/key"},
		{name: "windows drive", in: "C://Users/data.csv", scheme: "file", path: "C://Users/data.csv"},
		{name: "empty", in: "", wantErr: true},
		{name: "scheme only", in: "s3://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, p, err := ParseURI(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.path, p)
		})
	}
}

func TestNewUnknownScheme(t *testing.T) {
	_, err := New(Config{Scheme: "gopher"})
	require.Error(t, err)

	var unknown *UnknownSchemeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "gopher", unknown.Scheme)
	assert.Contains(t, unknown.Available, "file")
	assert.Contains(t, unknown.Available, "memory")
	assert.Contains(t, unknown.Available, "s3")
}

func TestLocalFileSystem(t *testing.T) {
	ctx := context.Background()
	fs, err := New(Config{Scheme: "file"})
	require.NoError(t, err)

	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "out.csv")

	ok, err := fs.Exists(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fs.Open(ctx, p, OpenOptions{Mode: ModeWrite})
	assert.Error(t, err, "write without make_dirs should fail for a missing parent")

	f, err := fs.Open(ctx, p, OpenOptions{Mode: ModeWrite, MakeDirs: true})
	require.NoError(t, err)
	_, err = f.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ok, err = fs.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	rf, err := fs.Open(ctx, p, OpenOptions{Mode: ModeRead})
	require.NoError(t, err)
	data, err := io.ReadAll(rf)
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	assert.Equal(t, "a,b\n1,2\n", string(data))

	matches, err := fs.Glob(ctx, filepath.Join(dir, "nested", "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{p}, matches)

	_, err = fs.Open(ctx, filepath.Join(dir, "missing.csv"), OpenOptions{Mode: ModeRead})
	assert.ErrorIs(t, err, os.ErrNotExist, "read-open of a missing file should wrap os.ErrNotExist")
}

func TestMemoryFileSystem(t *testing.T) {
	ctx := context.Background()
	fs, err := New(Config{Scheme: "memory"})
	require.NoError(t, err)

	f, err := fs.Open(ctx, "data/cars.csv", OpenOptions{Mode: ModeWrite})
	require.NoError(t, err)
	_, err = f.Write([]byte("a\n1\n"))
	require.NoError(t, err)

	ok, err := fs.Exists(ctx, "data/cars.csv")
	require.NoError(t, err)
	assert.False(t, ok, "writes must not be visible before Close")

	require.NoError(t, f.Close())
	ok, err = fs.Exists(ctx, "data/cars.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	rf, err := fs.Open(ctx, "data/cars.csv", OpenOptions{Mode: ModeRead})
	require.NoError(t, err)
	data, err := io.ReadAll(rf)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))

	_, err = rf.Write([]byte("x"))
	assert.ErrorContains(t, err, "read-only")

	mem := fs.(*MemoryFileSystem)
	mem.Put("data/2024/cars.csv", []byte("x"))
	mem.Put("data/2025/cars.csv", []byte("y"))
	matches, err := fs.Glob(ctx, "data/*/cars.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/2024/cars.csv", "data/2025/cars.csv"}, matches)

	_, err = fs.Open(ctx, "missing", OpenOptions{Mode: ModeRead})
	assert.ErrorContains(t, err, "does not exist")
}

// countingFS wraps a backend and counts how often the expensive probes
// actually reach it.
type countingFS struct {
	FileSystem
	existsCalls int
	globCalls   int
}

func (c *countingFS) Exists(ctx context.Context, path string) (bool, error) {
	c.existsCalls++
	return c.FileSystem.Exists(ctx, path)
}

func (c *countingFS) Glob(ctx context.Context, pattern string) ([]string, error) {
	c.globCalls++
	return c.FileSystem.Glob(ctx, pattern)
}

func TestCachedFileSystem(t *testing.T) {
	ctx := context.Background()
	mem := NewIsolatedMemory()
	counter := &countingFS{FileSystem: mem}
	cached := NewCached(counter, time.Hour)

	ok, err := cached.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.False(t, ok)

	// The miss is now cached: writing behind the cache's back is masked.
	mem.Put("obj", []byte("x"))
	ok, err = cached.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.False(t, ok, "stale cache entry should mask the new object")
	assert.Equal(t, 1, counter.existsCalls)

	cached.InvalidateCache("obj")
	ok, err = cached.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.True(t, ok, "invalidation must expose the new object")
	assert.Equal(t, 2, counter.existsCalls)
}

func TestCachedGlobInvalidation(t *testing.T) {
	ctx := context.Background()
	mem := NewIsolatedMemory()
	counter := &countingFS{FileSystem: mem}
	cached := NewCached(counter, time.Hour)

	mem.Put("data/v1/f.csv", []byte("x"))
	matches, err := cached.Glob(ctx, "data/*/f.csv")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	mem.Put("data/v2/f.csv", []byte("y"))
	matches, err = cached.Glob(ctx, "data/*/f.csv")
	require.NoError(t, err)
	assert.Len(t, matches, 1, "glob result should still be cached")
	assert.Equal(t, 1, counter.globCalls)

	cached.InvalidateCache("data/v2/f.csv")
	matches, err = cached.Glob(ctx, "data/*/f.csv")
	require.NoError(t, err)
	assert.Len(t, matches, 2, "invalidation drops memoized globs")
	assert.Equal(t, 2, counter.globCalls)
}

func TestS3Construction(t *testing.T) {
	// minio clients dial lazily, so construction is testable offline.
	fs, err := New(Config{
		Scheme:      "s3",
		Credentials: map[string]any{"access_key_id": "k", "secret_access_key": "s"},
		Args:        map[string]any{"endpoint": "http://localhost:9000", "cache_ttl": "5s"},
	})
	require.NoError(t, err)
	assert.IsType(t, &CachedFileSystem{}, fs, "s3 backends come wrapped in the stat cache")

	_, err = New(Config{
		Scheme: "s3",
		Args:   map[string]any{"cache_ttl": "not-a-duration"},
	})
	assert.ErrorContains(t, err, "cache_ttl")

	_, err = New(Config{
		Scheme: "s3",
		Args:   map[string]any{"endpoitn": "typo"},
	})
	assert.ErrorContains(t, err, "invalid s3 backend options")
}

func TestSplitBucket(t *testing.T) {
	bucket, key, err := splitBucket("bucket/a/b.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b.csv", key)

	bucket, key, err = splitBucket("bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "", key)

	_, _, err = splitBucket("/nobucket")
	assert.Error(t, err)
}
