package dataset

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

type stubDataset struct {
	logger *slog.Logger
}

func (d *stubDataset) Load(ctx context.Context) (*table.Table, error) { return table.New("a") }
func (d *stubDataset) Save(ctx context.Context, t *table.Table) error { return nil }
func (d *stubDataset) Exists(ctx context.Context) (bool, error)       { return false, nil }
func (d *stubDataset) Describe() map[string]any                       { return map[string]any{} }
func (d *stubDataset) Release()                                       {}

func TestRegistryRoundTrip(t *testing.T) {
	Register("stubtest", func(cfg Config, logger *slog.Logger) (Dataset, error) {
		return &stubDataset{logger: logger}, nil
	})

	assert.True(t, IsRegistered("stubtest"))
	assert.Contains(t, Types(), "stubtest")

	ds, err := New(Config{Type: "stubtest"}, nil)
	require.NoError(t, err)
	stub, ok := ds.(*stubDataset)
	require.True(t, ok)
	assert.NotNil(t, stub.logger, "nil logger should be replaced with a discard logger")
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Config{Type: "doesnotexist"}, nil)
	require.Error(t, err)

	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "doesnotexist", unknown.Type)
	assert.Contains(t, err.Error(), "Available types")
}

func TestNewEmptyType(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorContains(t, err, "dataset type not specified")
}
