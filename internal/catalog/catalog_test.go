package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/internal/testutil"
	"github.com/leapstack-labs/leapdata/pkg/dataset"
	"github.com/leapstack-labs/leapdata/pkg/table"

	_ "github.com/leapstack-labs/leapdata/pkg/datasets/memory"
	_ "github.com/leapstack-labs/leapdata/pkg/datasets/tabular"
)

func carsTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New("id", "name")
	require.NoError(t, err)
	require.NoError(t, tbl.Append(int64(1), "tesla"))
	require.NoError(t, tbl.Append(int64(2), "ford"))
	return tbl
}

func TestFromConfig_BuildsDatasets(t *testing.T) {
	dir := t.TempDir()
	entries := map[string]any{
		"cars": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    filepath.Join(dir, "cars.csv"),
		},
		"scratch": map[string]any{
			"type": "memory",
		},
	}

	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"cars", "scratch"}, c.Names())

	cfg, ok := c.Config("cars")
	require.True(t, ok)
	assert.Equal(t, "tabular", cfg.Type)
	assert.Equal(t, "csv", cfg.FileFormat)
}

func TestFromConfig_UnknownType(t *testing.T) {
	entries := map[string]any{
		"cars": map[string]any{"type": "spark"},
	}

	_, err := FromConfig(entries, nil, nil)
	require.Error(t, err)

	var unknown *dataset.UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), `failed to construct dataset "cars"`)
	assert.Contains(t, err.Error(), "memory", "error lists the registered types")
}

func TestFromConfig_RejectsUnknownEntryKeys(t *testing.T) {
	entries := map[string]any{
		"cars": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    "data/cars.csv",
			"filpath":     "typo.csv",
		},
	}

	_, err := FromConfig(entries, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to parse catalog entry "cars"`)
	assert.Contains(t, err.Error(), "filpath")
}

func TestFromConfig_EntryMustBeMapping(t *testing.T) {
	entries := map[string]any{"cars": "not-a-mapping"}

	_, err := FromConfig(entries, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a mapping")
}

func TestFromConfig_ResolvesCredentials(t *testing.T) {
	entries := map[string]any{
		"scratch": map[string]any{
			"type":        "memory",
			"credentials": "dev_creds",
		},
	}
	creds := map[string]any{
		"dev_creds": map[string]any{"key": "AKIATEST", "secret": "sekret"},
	}

	c, err := FromConfig(entries, creds, nil)
	require.NoError(t, err)

	cfg, ok := c.Config("scratch")
	require.True(t, ok)
	assert.Equal(t, "AKIATEST", cfg.Credentials["key"])
}

func TestFromConfig_UnknownCredentialsRef(t *testing.T) {
	entries := map[string]any{
		"scratch": map[string]any{
			"type":        "memory",
			"credentials": "missing_creds",
		},
	}

	_, err := FromConfig(entries, map[string]any{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unable to find credentials "missing_creds"`)
	assert.Contains(t, err.Error(), "scratch")
}

func TestCatalog_LoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := map[string]any{
		"cars": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    filepath.Join(dir, "cars.csv"),
		},
	}

	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	want := carsTable(t)
	require.NoError(t, c.Save(ctx, "cars", want))

	exists, err := c.Exists(ctx, "cars")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := c.Load(ctx, "cars")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestCatalog_NotFoundWithSuggestions(t *testing.T) {
	entries := map[string]any{
		"cars":  map[string]any{"type": "memory"},
		"boats": map[string]any{"type": "memory"},
	}
	c, err := FromConfig(entries, nil, nil)
	require.NoError(t, err)

	_, err = c.Load(context.Background(), "carz")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "carz", notFound.Name)
	assert.Contains(t, notFound.Suggestions, "cars")
	assert.NotContains(t, notFound.Suggestions, "boats")
	assert.Contains(t, err.Error(), "Did you mean")
	assert.Contains(t, err.Error(), "Available datasets")
}

func TestCatalog_NotFoundWithoutCloseMatch(t *testing.T) {
	entries := map[string]any{"cars": map[string]any{"type": "memory"}}
	c, err := FromConfig(entries, nil, nil)
	require.NoError(t, err)

	_, err = c.Describe("completely_different")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Suggestions)
	assert.NotContains(t, err.Error(), "Did you mean")
}

func TestCatalog_AddAndDuplicate(t *testing.T) {
	c, err := FromConfig(map[string]any{}, nil, nil)
	require.NoError(t, err)

	ds, err := dataset.New(dataset.Config{Type: "memory"}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Add("scratch", ds))
	assert.Equal(t, []string{"scratch"}, c.Names())

	err = c.Add("scratch", ds)
	require.Error(t, err)

	var exists *AlreadyExistsError
	assert.ErrorAs(t, err, &exists)
}

func TestCatalog_ReleaseUnknown(t *testing.T) {
	c, err := FromConfig(map[string]any{}, nil, nil)
	require.NoError(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, c.Release("ghost"), &notFound)
}

type recordedEvent struct {
	op       string
	dataset  string
	version  string
	location string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   error
}

func (f *fakeRecorder) RecordLoad(_ context.Context, dataset, version, location string) error {
	return f.record("load", dataset, version, location)
}

func (f *fakeRecorder) RecordSave(_ context.Context, dataset, version, location string) error {
	return f.record("save", dataset, version, location)
}

func (f *fakeRecorder) record(op, dataset, version, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, recordedEvent{op, dataset, version, location})
	return nil
}

func TestCatalog_RecordsJournalEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cars.csv")
	entries := map[string]any{
		"cars": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    path,
		},
	}

	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	rec := &fakeRecorder{}
	c.SetRecorder(rec)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "cars", carsTable(t)))
	_, err = c.Load(ctx, "cars")
	require.NoError(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, recordedEvent{"save", "cars", "", path}, rec.events[0])
	assert.Equal(t, recordedEvent{"load", "cars", "", path}, rec.events[1])
}

func TestCatalog_RecordsVersionForVersionedDatasets(t *testing.T) {
	entries := map[string]any{
		"cars": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    "memory://catalog-journal/cars.csv",
			"versioned":   true,
		},
	}

	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	rec := &fakeRecorder{}
	c.SetRecorder(rec)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "cars", carsTable(t)))
	_, err = c.Load(ctx, "cars")
	require.NoError(t, err)

	require.Len(t, rec.events, 2)
	assert.NotEmpty(t, rec.events[0].version, "versioned saves record the written version")
	assert.Equal(t, rec.events[0].version, rec.events[1].version, "the load sees the version just saved")
}

func TestCatalog_JournalFailureDoesNotFailOperation(t *testing.T) {
	entries := map[string]any{"scratch": map[string]any{"type": "memory"}}
	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	c.SetRecorder(&fakeRecorder{fail: errors.New("journal database locked")})

	require.NoError(t, c.Save(context.Background(), "scratch", carsTable(t)),
		"a broken journal must not break data operations")
}

func TestCatalog_Validate(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.csv")
	require.NoError(t, os.WriteFile(present, []byte("id,name\n1,tesla\n"), 0600))

	entries := map[string]any{
		"present": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    present,
		},
		"absent": map[string]any{
			"type":        "tabular",
			"file_format": "csv",
			"filepath":    filepath.Join(dir, "absent.csv"),
		},
		"broken": map[string]any{
			"type":        "tabular",
			"file_format": "sql",
			"filepath":    filepath.Join(dir, "broken.sql"),
		},
		"scratch": map[string]any{"type": "memory"},
	}

	c, err := FromConfig(entries, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)

	results := c.Validate(context.Background())
	require.Len(t, results, 4)

	byName := map[string]ValidationResult{}
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.True(t, byName["present"].Exists)
	assert.NoError(t, byName["present"].Err)

	assert.False(t, byName["absent"].Exists)
	assert.NoError(t, byName["absent"].Err, "a missing file is absence, not a probe failure")

	assert.Error(t, byName["broken"].Err, "probe failures are captured per dataset")

	assert.False(t, byName["scratch"].Exists, "an unset memory dataset is absent")
	assert.NoError(t, byName["scratch"].Err)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"absent", "broken", "present", "scratch"}, names, "results are sorted by name")
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"cars", "boats", "planes"}

	assert.Equal(t, []string{"cars"}, suggestSimilar("carz", candidates, 3))
	assert.Empty(t, suggestSimilar("cars", candidates, 3), "exact matches are not suggestions")
	assert.Empty(t, suggestSimilar("zzzzzzz", candidates, 3))
}
