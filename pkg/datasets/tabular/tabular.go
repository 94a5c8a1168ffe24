package tabular

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
	"github.com/leapstack-labs/leapdata/pkg/format"
	"github.com/leapstack-labs/leapdata/pkg/storage"
	"github.com/leapstack-labs/leapdata/pkg/table"
)

// nonFileSystemTargets lists formats that do not target a filepath. The
// set is fixed: registering a codec under one of these names does not make
// it loadable here, it needs its own dataset type (as sql_table has).
var nonFileSystemTargets = map[string]struct{}{
	"clipboard": {},
	"numpy":     {},
	"sql":       {},
	"period":    {},
	"records":   {},
	"timestamp": {},
	"xarray":    {},
	"sql_table": {},
}

// UnsupportedTargetError is returned when the configured file format does
// not support a filepath target or source.
type UnsupportedTargetError struct {
	Format string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("file format %q does not support a filepath target/source\nHint: use the dedicated dataset type instead (e.g. sql_table for SQL tables)", e.Format)
}

// Dataset reads and writes one table through a format codec and a storage
// backend.
type Dataset struct {
	fileFormat string
	protocol   string
	path       string
	loadArgs   map[string]any
	saveArgs   map[string]any
	openLoad   storage.OpenOptions
	openSave   storage.OpenOptions
	fs         storage.FileSystem
	resolver   *dataset.Resolver
	logger     *slog.Logger
}

// New constructs a tabular dataset from its config. The file format is
// normalized to lowercase and kept for the dataset's lifetime; whether a
// codec exists for it is deliberately not checked here.
func New(cfg dataset.Config, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fileFormat := format.Normalize(cfg.FileFormat)
	if fileFormat == "" {
		return nil, fmt.Errorf("file_format not specified")
	}
	if cfg.Filepath == "" {
		return nil, fmt.Errorf("filepath not specified")
	}
	protocol, basePath, err := storage.ParseURI(cfg.Filepath)
	if err != nil {
		return nil, fmt.Errorf("invalid filepath: %w", err)
	}

	fsArgs := maps.Clone(cfg.FSArgs)
	if fsArgs == nil {
		fsArgs = map[string]any{}
	}
	openLoad := storage.OpenOptions{Mode: storage.ModeRead}
	openSave := storage.OpenOptions{Mode: storage.ModeWrite, MakeDirs: protocol == "file"}
	if raw, ok := fsArgs["open_args_load"]; ok {
		delete(fsArgs, "open_args_load")
		if err := decodeOpenArgs(raw, &openLoad); err != nil {
			return nil, fmt.Errorf("invalid open_args_load: %w", err)
		}
	}
	if raw, ok := fsArgs["open_args_save"]; ok {
		delete(fsArgs, "open_args_save")
		if err := decodeOpenArgs(raw, &openSave); err != nil {
			return nil, fmt.Errorf("invalid open_args_save: %w", err)
		}
	}

	fs, err := storage.New(storage.Config{
		Scheme:      protocol,
		Credentials: cfg.Credentials,
		Args:        fsArgs,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Dataset{
		fileFormat: fileFormat,
		protocol:   protocol,
		path:       basePath,
		loadArgs:   maps.Clone(cfg.LoadArgs),
		saveArgs:   maps.Clone(cfg.SaveArgs),
		openLoad:   openLoad,
		openSave:   openSave,
		fs:         fs,
		resolver:   dataset.NewResolver(fs, basePath, cfg.Versioned, cfg.Version),
		logger:     logger,
	}, nil
}

func decodeOpenArgs(raw any, target *storage.OpenOptions) error {
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("expected a map, got %T", raw)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "koanf",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		return err
	}
	switch target.Mode {
	case "rb":
		target.Mode = storage.ModeRead
	case "wb":
		target.Mode = storage.ModeWrite
	case storage.ModeRead, storage.ModeWrite:
	default:
		return fmt.Errorf("unsupported open mode %q", target.Mode)
	}
	return nil
}

// FileFormat returns the normalized format name.
func (d *Dataset) FileFormat() string { return d.fileFormat }

// Resolver exposes the version resolver, letting callers inspect which
// version a load or save actually touched.
func (d *Dataset) Resolver() *dataset.Resolver { return d.resolver }

func (d *Dataset) guardTarget() error {
	if _, bad := nonFileSystemTargets[d.fileFormat]; bad {
		return &UnsupportedTargetError{Format: d.fileFormat}
	}
	return nil
}

// Load resolves the load path, opens it and decodes the table. The handle
// is released on every exit path.
func (d *Dataset) Load(ctx context.Context) (*table.Table, error) {
	if err := d.guardTarget(); err != nil {
		return nil, err
	}
	loadPath, err := d.resolver.LoadPath(ctx)
	if err != nil {
		return nil, err
	}
	read, err := format.Reader(d.fileFormat)
	if err != nil {
		return nil, err
	}
	f, err := d.fs.Open(ctx, loadPath, d.openLoad)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", loadPath, err)
	}
	defer func() { _ = f.Close() }()

	t, err := read(f, d.loadArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data from %q: %w", d.fileFormat, loadPath, err)
	}
	return t, nil
}

// Save resolves the save path, encodes the table onto it and invalidates
// cached state so the new data is observable immediately. A versioned save
// refuses to overwrite an existing version and verifies that the version
// which now loads is the one just saved.
func (d *Dataset) Save(ctx context.Context, t *table.Table) error {
	if err := d.guardTarget(); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("cannot save a nil table")
	}
	savePath, err := d.resolver.SavePath(ctx)
	if err != nil {
		return err
	}
	if d.resolver.Versioned() {
		exists, err := d.fs.Exists(ctx, savePath)
		if err != nil {
			return fmt.Errorf("failed to check save path %q: %w", savePath, err)
		}
		if exists {
			return &dataset.SavePathExistsError{Path: savePath}
		}
	}
	write, err := format.Writer(d.fileFormat)
	if err != nil {
		return err
	}
	f, err := d.fs.Open(ctx, savePath, d.openSave)
	if err != nil {
		return fmt.Errorf("failed to open %q for writing: %w", savePath, err)
	}
	if err := write(f, t, d.saveArgs); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s data to %q: %w", d.fileFormat, savePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize %q: %w", savePath, err)
	}

	d.fs.InvalidateCache(d.path)

	if d.resolver.Versioned() {
		saveVersion := d.resolver.SaveVersion()
		d.resolver.Reset()
		loadVersion, err := d.resolver.LoadVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify saved version: %w", err)
		}
		if loadVersion != saveVersion {
			return &dataset.VersionMismatchError{Save: saveVersion, Load: loadVersion}
		}
	}
	return nil
}

// Exists reports whether the dataset's load target holds data. A versioned
// dataset with nothing saved yet is absent, not an error.
func (d *Dataset) Exists(ctx context.Context) (bool, error) {
	if err := d.guardTarget(); err != nil {
		return false, err
	}
	loadPath, err := d.resolver.LoadPath(ctx)
	if err != nil {
		var notFound *dataset.VersionNotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return d.fs.Exists(ctx, loadPath)
}

// Describe returns a read-only snapshot of the dataset configuration.
func (d *Dataset) Describe() map[string]any {
	desc := map[string]any{
		"file_format": d.fileFormat,
		"filepath":    d.path,
		"protocol":    d.protocol,
		"load_args":   maps.Clone(d.loadArgs),
		"save_args":   maps.Clone(d.saveArgs),
		"versioned":   d.resolver.Versioned(),
	}
	if v := d.resolver.Version(); v.Load != "" || v.Save != "" {
		desc["version"] = map[string]any{"load": v.Load, "save": v.Save}
	}
	return desc
}

// Release forgets the memoized load version and drops backend caches for
// the dataset's path.
func (d *Dataset) Release() {
	d.resolver.Reset()
	d.fs.InvalidateCache(d.path)
}
