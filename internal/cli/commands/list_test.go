package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/internal/cli/testutil"
)

func TestListCommand_JSON(t *testing.T) {
	setupProject(t, "--output", "json")

	out, _, err := execCommand(NewListCommand())
	require.NoError(t, err)

	var infos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 3)

	byName := map[string]map[string]any{}
	for _, info := range infos {
		byName[info["name"].(string)] = info
	}

	require.Contains(t, byName, "cars")
	assert.Equal(t, "tabular", byName["cars"]["type"])
	assert.Equal(t, "csv", byName["cars"]["format"])
	assert.Equal(t, "data/cars.csv", byName["cars"]["location"], "globals reference should be resolved")
	assert.Equal(t, false, byName["cars"]["versioned"])

	require.Contains(t, byName, "cars_versioned")
	assert.Equal(t, true, byName["cars_versioned"]["versioned"])

	require.Contains(t, byName, "scratch")
	assert.Equal(t, "memory", byName["scratch"]["type"])
}

func TestListCommand_TypeFilter(t *testing.T) {
	setupProject(t, "--output", "json")

	out, _, err := execCommand(NewListCommand(), "--type", "memory")
	require.NoError(t, err)

	var infos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "scratch", infos[0]["name"])
}

func TestListCommand_Markdown(t *testing.T) {
	setupProject(t, "--output", "markdown")

	out, _, err := execCommand(NewListCommand())
	require.NoError(t, err)

	testutil.AssertContains(t, out, "# Datasets (3 total)")
	testutil.AssertContains(t, out, "## cars")
	testutil.AssertContains(t, out, "**Type:** tabular")
	testutil.AssertContains(t, out, "**Versioned:** yes")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}
