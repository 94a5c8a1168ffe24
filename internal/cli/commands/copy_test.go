package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/internal/cli/testutil"
)

func TestCopyCommand_VersionedSnapshot(t *testing.T) {
	root := setupProject(t, "--output", "markdown")

	out, _, err := execCommand(NewCopyCommand(), "cars", "cars_versioned")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "Copied 3 rows")

	// The save landed in a fresh timestamped directory under the
	// versioned path.
	versions, err := os.ReadDir(filepath.Join(root, "data", "versioned", "cars.csv"))
	require.NoError(t, err)
	require.Len(t, versions, 1)
	saved := filepath.Join(root, "data", "versioned", "cars.csv", versions[0].Name(), "cars.csv")
	_, err = os.Stat(saved)
	require.NoError(t, err)

	// A fresh invocation resolves the latest version and finds data.
	out, _, err = execCommand(NewExistsCommand(), "cars_versioned")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "✓ cars_versioned")

	out, _, err = execCommand(NewPreviewCommand(), "cars_versioned")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "| corolla |")
}

func TestCopyCommand_UnknownSource(t *testing.T) {
	setupProject(t)

	_, _, err := execCommand(NewCopyCommand(), "nope", "scratch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in the catalog")
}

func TestCopyCommand_RequiresTwoArgs(t *testing.T) {
	setupProject(t)

	_, _, err := execCommand(NewCopyCommand(), "cars")
	require.Error(t, err)
}
