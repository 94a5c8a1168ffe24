// Package memory provides the in-process dataset for LeapData. Tables are
// held on the dataset itself, handed out as copies so later mutations by
// one consumer cannot leak into another. With copy_mode "assign" the
// stored table is shared instead.
//
// This file registers the dataset with the dataset registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapdata/pkg/datasets/memory"
package memory

import (
	"log/slog"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
)

func init() {
	dataset.Register("memory", func(cfg dataset.Config, logger *slog.Logger) (dataset.Dataset, error) {
		return New(cfg, logger)
	})
}
