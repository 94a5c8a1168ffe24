// Package dataset defines the contract all LeapData datasets implement,
// the version resolver for timestamped dataset layouts, and the registry
// that maps catalog "type" strings to dataset constructors.
//
// Concrete dataset implementations live in pkg/datasets/ subdirectories
// and register themselves in their init() functions.
package dataset

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

// Dataset is the interface every dataset kind implements. Implementations
// are synchronous; the context bounds blocking IO, nothing more.
type Dataset interface {
	// Load reads the dataset and returns its table.
	Load(ctx context.Context) (*table.Table, error)

	// Save writes the table to the dataset's target.
	Save(ctx context.Context, t *table.Table) error

	// Exists reports whether the dataset's target holds data. A target
	// whose location cannot be resolved yet (e.g. no version saved) is
	// reported as absent, not as an error.
	Exists(ctx context.Context) (bool, error)

	// Describe returns a read-only snapshot of the dataset's
	// configuration for display. It never touches the target.
	Describe() map[string]any

	// Release drops cached state: memoized version resolutions and any
	// backend stat caches for the dataset's paths.
	Release()
}

// Config is the union of catalog entry fields. Each dataset kind reads the
// fields it cares about and rejects entries it cannot serve.
type Config struct {
	// Type selects the registered dataset constructor ("tabular",
	// "memory", "sql_table").
	Type string `koanf:"type"`

	// Filepath locates file-backed datasets; the URI scheme selects the
	// storage backend.
	Filepath string `koanf:"filepath"`

	// FileFormat names the codec for tabular datasets. Never validated at
	// construction time.
	FileFormat string `koanf:"file_format"`

	LoadArgs map[string]any `koanf:"load_args"`
	SaveArgs map[string]any `koanf:"save_args"`

	// FSArgs configures the storage backend. The reserved keys
	// "open_args_load" and "open_args_save" hold per-direction open
	// options and are stripped before the backend sees the rest.
	FSArgs map[string]any `koanf:"fs_args"`

	// CredentialsRef names an entry in the credentials config. The
	// catalog resolves it into Credentials before construction.
	CredentialsRef string `koanf:"credentials"`

	// Credentials holds the resolved secret material. Never read from
	// catalog YAML directly.
	Credentials map[string]any `koanf:"-"`

	// Versioned enables the timestamped directory layout.
	Versioned bool `koanf:"versioned"`

	// Version pins load/save versions for this run. Injected by the
	// caller, not part of catalog YAML.
	Version Version `koanf:"-"`

	// TableName addresses sql_table datasets.
	TableName string `koanf:"table_name"`
}

// Factory constructs a dataset from its config. A nil logger means
// discard.
type Factory func(cfg Config, logger *slog.Logger) (Dataset, error)
