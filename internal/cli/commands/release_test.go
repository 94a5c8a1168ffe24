package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/internal/cli/testutil"
)

func TestReleaseCommand_Single(t *testing.T) {
	setupProject(t, "--output", "markdown")

	out, _, err := execCommand(NewReleaseCommand(), "cars")
	require.NoError(t, err)
	testutil.AssertContains(t, out, `Released "cars"`)
}

func TestReleaseCommand_All(t *testing.T) {
	setupProject(t, "--output", "markdown")

	out, _, err := execCommand(NewReleaseCommand(), "--all")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "Released 3 datasets")
}

func TestReleaseCommand_NoArgs(t *testing.T) {
	setupProject(t)

	_, _, err := execCommand(NewReleaseCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name a dataset or pass --all")
}

func TestReleaseCommand_UnknownDataset(t *testing.T) {
	setupProject(t)

	_, _, err := execCommand(NewReleaseCommand(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in the catalog")
}
