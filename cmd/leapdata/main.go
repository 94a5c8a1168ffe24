// Package main provides the CLI for the LeapData data catalog.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdata/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
