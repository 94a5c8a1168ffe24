// Package tabular provides the generic file-backed dataset for LeapData:
// one codec from the format registry behind one storage backend, with an
// optional versioned layout.
//
// The file format is never validated at construction time. A format with
// no registered codec only fails when Load or Save actually needs the
// missing half, with an error naming the read_<format> or to_<format>
// convention. A fixed set of formats whose surface is not a filepath
// (sql, clipboard, numpy, ...) is rejected before any IO.
//
// This file registers the dataset with the dataset registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapdata/pkg/datasets/tabular"
package tabular

import (
	"log/slog"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
)

func init() {
	dataset.Register("tabular", func(cfg dataset.Config, logger *slog.Logger) (dataset.Dataset, error) {
		return New(cfg, logger)
	})
}
