package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
	"github.com/leapstack-labs/leapdata/pkg/format"
	"github.com/leapstack-labs/leapdata/pkg/table"
)

const (
	// CopyModeCopy hands out an independent copy on every load and save.
	CopyModeCopy = "copy"
	// CopyModeAssign shares the stored table directly.
	CopyModeAssign = "assign"
)

type options struct {
	CopyMode string `koanf:"copy_mode"`
}

// Dataset keeps one table in process memory. Safe for concurrent use.
type Dataset struct {
	copyMode string
	logger   *slog.Logger

	mu   sync.RWMutex
	data *table.Table
}

// New constructs an empty memory dataset. The copy mode is read from
// load_args and defaults to copying.
func New(cfg dataset.Config, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := options{CopyMode: CopyModeCopy}
	if err := format.DecodeOptions(cfg.LoadArgs, &opts); err != nil {
		return nil, err
	}
	switch opts.CopyMode {
	case CopyModeCopy, CopyModeAssign:
	default:
		return nil, fmt.Errorf("unsupported copy_mode %q, expected %q or %q", opts.CopyMode, CopyModeCopy, CopyModeAssign)
	}
	return &Dataset{copyMode: opts.CopyMode, logger: logger}, nil
}

// Load returns the stored table, or an error if nothing was saved yet.
func (d *Dataset) Load(ctx context.Context) (*table.Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.data == nil {
		return nil, fmt.Errorf("no data has been saved to the memory dataset yet")
	}
	if d.copyMode == CopyModeAssign {
		return d.data, nil
	}
	return d.data.Copy(), nil
}

// Save stores the table.
func (d *Dataset) Save(ctx context.Context, t *table.Table) error {
	if t == nil {
		return fmt.Errorf("cannot save a nil table")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.copyMode == CopyModeAssign {
		d.data = t
	} else {
		d.data = t.Copy()
	}
	return nil
}

// Exists reports whether a table has been saved.
func (d *Dataset) Exists(ctx context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data != nil, nil
}

// Describe returns the copy mode and, once saved, the stored shape.
func (d *Dataset) Describe() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc := map[string]any{"copy_mode": d.copyMode}
	if d.data != nil {
		desc["rows"] = d.data.Len()
		desc["columns"] = d.data.Columns()
	}
	return desc
}

// Release drops the stored table.
func (d *Dataset) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
}
