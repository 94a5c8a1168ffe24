// Package datasets registers all built-in dataset types.
// Import this package to register them with the global dataset registry.
package datasets

import (
	// Blank imports trigger init() functions that register dataset types.
	_ "github.com/leapstack-labs/leapdata/pkg/datasets/memory"   // registers "memory"
	_ "github.com/leapstack-labs/leapdata/pkg/datasets/sqltable" // registers "sql_table"
	_ "github.com/leapstack-labs/leapdata/pkg/datasets/tabular"  // registers "tabular"
)
