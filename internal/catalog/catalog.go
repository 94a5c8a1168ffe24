// Package catalog builds the named dataset collection from catalog
// configuration and routes every operation by dataset name. It resolves
// credential references, constructs datasets through the type registry
// and, when a journal recorder is attached, records each successful load
// and save.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
	"github.com/leapstack-labs/leapdata/pkg/table"
)

// NotFoundError is returned when an operation names a dataset the catalog
// does not hold.
type NotFoundError struct {
	Name        string
	Available   []string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("dataset %q not found in the catalog", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf("\nDid you mean one of these: %v", e.Suggestions)
	}
	msg += fmt.Sprintf("\nAvailable datasets: %v", e.Available)
	return msg
}

// AlreadyExistsError is returned when Add names a dataset the catalog
// already holds.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("dataset %q has already been registered", e.Name)
}

// Recorder receives one call per successful load or save. *journal.Recorder
// satisfies it; catalogs without a journal leave it unset.
type Recorder interface {
	RecordLoad(ctx context.Context, dataset, version, location string) error
	RecordSave(ctx context.Context, dataset, version, location string) error
}

// Catalog is the named collection of datasets a project works with.
type Catalog struct {
	mu       sync.RWMutex
	datasets map[string]dataset.Dataset
	configs  map[string]dataset.Config

	recorder Recorder
	logger   *slog.Logger
}

// FromConfig builds a catalog from the parsed catalog config: one entry
// per dataset name. String credential references are resolved against
// creds before construction. A nil logger discards.
func FromConfig(entries map[string]any, creds map[string]any, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{
		datasets: make(map[string]dataset.Dataset, len(entries)),
		configs:  make(map[string]dataset.Config, len(entries)),
		logger:   logger,
	}

	// Deterministic construction order so the first bad entry reported is
	// stable.
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg, err := decodeEntry(entries[name])
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog entry %q: %w", name, err)
		}
		if cfg.CredentialsRef != "" {
			resolved, err := resolveCredentials(cfg.CredentialsRef, creds)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %q: %w", name, err)
			}
			cfg.Credentials = resolved
		}
		ds, err := dataset.New(cfg, logger.With(slog.String("dataset", name)))
		if err != nil {
			return nil, fmt.Errorf("failed to construct dataset %q: %w", name, err)
		}
		c.datasets[name] = ds
		c.configs[name] = cfg
	}

	logger.Debug("catalog built", slog.Int("datasets", len(c.datasets)))
	return c, nil
}

func decodeEntry(raw any) (dataset.Config, error) {
	var cfg dataset.Config
	m, ok := raw.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf("expected a mapping, got %T", raw)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "koanf",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(m); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolveCredentials(ref string, creds map[string]any) (map[string]any, error) {
	raw, ok := creds[ref]
	if !ok {
		return nil, fmt.Errorf("unable to find credentials %q: check your catalog and credentials configuration", ref)
	}
	resolved, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("credentials %q must be a mapping, got %T", ref, raw)
	}
	return resolved, nil
}

// SetRecorder attaches a journal recorder. Passing nil detaches it.
func (c *Catalog) SetRecorder(rec Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = rec
}

// Get returns the dataset registered under name.
func (c *Catalog) Get(name string) (dataset.Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.datasets[name]
	if !ok {
		available := c.namesLocked()
		return nil, &NotFoundError{
			Name:        name,
			Available:   available,
			Suggestions: suggestSimilar(name, available, 3),
		}
	}
	return ds, nil
}

// Config returns the decoded catalog entry for name. Datasets added
// programmatically have a zero config with ok still true.
func (c *Catalog) Config(name string) (dataset.Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, held := c.datasets[name]; !held {
		return dataset.Config{}, false
	}
	return c.configs[name], true
}

// Add registers a dataset under name. Registering an existing name is an
// error.
func (c *Catalog) Add(name string, ds dataset.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.datasets[name]; exists {
		return &AlreadyExistsError{Name: name}
	}
	c.datasets[name] = ds
	return nil
}

// Names returns the registered dataset names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namesLocked()
}

func (c *Catalog) namesLocked() []string {
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads the named dataset and returns its table.
func (c *Catalog) Load(ctx context.Context, name string) (*table.Table, error) {
	ds, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loading dataset", slog.String("dataset", name))
	t, err := ds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", name, err)
	}
	c.record(ctx, opLoad, name, ds)
	return t, nil
}

// Save writes the table to the named dataset.
func (c *Catalog) Save(ctx context.Context, name string, t *table.Table) error {
	ds, err := c.Get(name)
	if err != nil {
		return err
	}
	c.logger.Debug("saving dataset", slog.String("dataset", name))
	if err := ds.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to save dataset %q: %w", name, err)
	}
	c.record(ctx, opSave, name, ds)
	return nil
}

// Exists reports whether the named dataset's target holds data.
func (c *Catalog) Exists(ctx context.Context, name string) (bool, error) {
	ds, err := c.Get(name)
	if err != nil {
		return false, err
	}
	return ds.Exists(ctx)
}

// Describe returns the named dataset's configuration snapshot.
func (c *Catalog) Describe(name string) (map[string]any, error) {
	ds, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return ds.Describe(), nil
}

// Release drops the named dataset's cached state.
func (c *Catalog) Release(name string) error {
	ds, err := c.Get(name)
	if err != nil {
		return err
	}
	ds.Release()
	return nil
}

// ReleaseAll drops cached state for every dataset.
func (c *Catalog) ReleaseAll() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ds := range c.datasets {
		ds.Release()
	}
}

const (
	opLoad = "load"
	opSave = "save"
)

// record journals a successful operation. Journal failures are logged,
// never propagated: the data operation already succeeded.
func (c *Catalog) record(ctx context.Context, op, name string, ds dataset.Dataset) {
	c.mu.RLock()
	rec := c.recorder
	c.mu.RUnlock()
	if rec == nil {
		return
	}

	version := ""
	if vr, ok := ds.(interface{ Resolver() *dataset.Resolver }); ok && vr.Resolver().Versioned() {
		// Memoized after the operation that just succeeded, so this
		// resolves without touching the backend.
		if v, err := vr.Resolver().LoadVersion(ctx); err == nil {
			version = v
		}
	}

	var err error
	switch op {
	case opLoad:
		err = rec.RecordLoad(ctx, name, version, locationOf(ds))
	case opSave:
		err = rec.RecordSave(ctx, name, version, locationOf(ds))
	}
	if err != nil {
		c.logger.Warn("failed to record journal event",
			slog.String("dataset", name),
			slog.String("operation", op),
			slog.String("error", err.Error()))
	}
}

// locationOf derives a journal location from the dataset's description:
// the filepath for file-backed datasets, the table name for SQL ones.
func locationOf(ds dataset.Dataset) string {
	desc := ds.Describe()
	for _, key := range []string{"filepath", "table_name"} {
		if v, ok := desc[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
