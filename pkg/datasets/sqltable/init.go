// Package sqltable provides the relational dataset for LeapData: one
// database table loaded into and saved from a table value, over
// database/sql. PostgreSQL, DuckDB and SQLite connection strings are
// supported; the driver is picked from the connection string scheme.
//
// This file registers the dataset with the dataset registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapdata/pkg/datasets/sqltable"
package sqltable

import (
	"log/slog"

	"github.com/leapstack-labs/leapdata/pkg/dataset"
)

func init() {
	dataset.Register("sql_table", func(cfg dataset.Config, logger *slog.Logger) (dataset.Dataset, error) {
		return New(cfg, logger)
	})
}
