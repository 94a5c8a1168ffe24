package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/pkg/storage"
)

func newMemFS(t *testing.T) *storage.MemoryFileSystem {
	t.Helper()
	return storage.NewIsolatedMemory()
}

func TestGenerateVersionSortsChronologically(t *testing.T) {
	v := GenerateVersion()
	parsed, err := time.Parse(TimestampLayout, v)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)

	earlier := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Format(TimestampLayout)
	later := time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC).Format(TimestampLayout)
	assert.Less(t, earlier, later, "timestamp versions must sort lexically by time")
}

func TestUnversionedResolverPassesPathThrough(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newMemFS(t), "data/cars.csv", false, Version{})

	lp, err := r.LoadPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/cars.csv", lp)

	sp, err := r.SavePath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/cars.csv", sp)

	_, err = r.LoadVersion(ctx)
	assert.ErrorContains(t, err, "not versioned")
}

func TestResolveLatestVersion(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)
	fs.Put("data/cars.csv/2024-01-02T10.00.00.000000Z/cars.csv", []byte("old"))
	fs.Put("data/cars.csv/2024-06-15T08.30.00.000000Z/cars.csv", []byte("new"))

	r := NewResolver(fs, "data/cars.csv", true, Version{})
	lp, err := r.LoadPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/cars.csv/2024-06-15T08.30.00.000000Z/cars.csv", lp)
}

func TestLoadVersionMemoized(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)
	fs.Put("data/cars.csv/2024-01-02T10.00.00.000000Z/cars.csv", []byte("old"))

	r := NewResolver(fs, "data/cars.csv", true, Version{})
	v1, err := r.LoadVersion(ctx)
	require.NoError(t, err)

	// A newer version appears; the memo hides it until Reset.
	fs.Put("data/cars.csv/2024-06-15T08.30.00.000000Z/cars.csv", []byte("new"))
	v2, err := r.LoadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, v2, "resolved load version should be memoized")

	r.Reset()
	v3, err := r.LoadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15T08.30.00.000000Z", v3)
}

func TestPinnedVersions(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newMemFS(t), "data/cars.csv", true, Version{
		Load: "2024-01-02T10.00.00.000000Z",
		Save: "2024-01-03T10.00.00.000000Z",
	})

	lp, err := r.LoadPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/cars.csv/2024-01-02T10.00.00.000000Z/cars.csv", lp)

	sp, err := r.SavePath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/cars.csv/2024-01-03T10.00.00.000000Z/cars.csv", sp)
}

func TestLoadPathNoVersions(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newMemFS(t), "data/cars.csv", true, Version{})

	_, err := r.LoadPath(ctx)
	require.Error(t, err)

	var nf *VersionNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Pattern, "data/cars.csv/*/cars.csv")
}

func TestSaveVersionStableUntilReset(t *testing.T) {
	r := NewResolver(newMemFS(t), "data/cars.csv", true, Version{})

	v1 := r.SaveVersion()
	v2 := r.SaveVersion()
	assert.Equal(t, v1, v2, "generated save version must be stable within a save")

	r.Reset()
	// Versions are millisecond-or-finer timestamps; a fresh one differs.
	time.Sleep(2 * time.Millisecond)
	assert.NotEqual(t, v1, r.SaveVersion())
}
