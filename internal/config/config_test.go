package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdata/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConf writes a YAML file into <root>/<env>/<name>, creating the
// layer directory as needed.
func writeConf(t *testing.T, root, env, name, content string) {
	t.Helper()
	dir := filepath.Join(root, env)
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestLoader_Load_BaseOnly(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  type: csv
  filepath: data/cars.csv
`)

	loader := NewLoader(conf, "", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)

	require.Contains(t, got, "cars")
	entry := got["cars"].(map[string]any)
	assert.Equal(t, "csv", entry["type"])
	assert.Equal(t, "data/cars.csv", entry["filepath"])
}

func TestLoader_Load_EnvOverridesBase(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  type: csv
  filepath: data/cars.csv
boats:
  type: parquet
  filepath: data/boats.parquet
`)
	writeConf(t, conf, "prod", "catalog.yaml", `
cars:
  type: csv
  filepath: s3://bucket/cars.csv
`)

	loader := NewLoader(conf, "prod", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)

	cars := got["cars"].(map[string]any)
	assert.Equal(t, "s3://bucket/cars.csv", cars["filepath"], "environment layer should win per top-level key")

	boats := got["boats"].(map[string]any)
	assert.Equal(t, "data/boats.parquet", boats["filepath"], "keys absent from the environment layer come from base")
}

func TestLoader_Load_MergesFilesWithinLayer(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  type: csv
  filepath: data/cars.csv
`)
	writeConf(t, conf, "base", "catalog_extra.yaml", `
boats:
  type: parquet
  filepath: data/boats.parquet
`)

	loader := NewLoader(conf, "", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)

	assert.Contains(t, got, "cars")
	assert.Contains(t, got, "boats")
}

func TestLoader_Load_DuplicateKeyWithinLayer(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog_a.yaml", `
cars:
  type: csv
`)
	writeConf(t, conf, "base", "catalog_b.yaml", `
cars:
  type: parquet
`)

	loader := NewLoader(conf, "", nil, nil)
	_, err := loader.Load("catalog*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate top-level key")
	assert.Contains(t, err.Error(), "cars")
	assert.Contains(t, err.Error(), "catalog_a.yaml")
	assert.Contains(t, err.Error(), "catalog_b.yaml")
}

func TestLoader_Load_MissingConfig(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "parameters.yaml", `learning_rate: 0.01`)

	loader := NewLoader(conf, "", nil, nil)
	_, err := loader.Load("catalog*")
	require.Error(t, err)

	var missing *MissingConfigError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "catalog*", missing.Pattern)
	assert.Contains(t, err.Error(), conf)
}

func TestLoader_Load_BadYAML(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", "cars: [unbalanced")

	loader := NewLoader(conf, "", nil, nil)
	_, err := loader.Load("catalog*")
	require.Error(t, err)

	var bad *BadConfigError
	require.ErrorAs(t, err, &bad)
	assert.Contains(t, bad.Path, "catalog.yaml")
}

func TestLoader_Load_MatchesBothExtensions(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yml", `
cars:
  type: csv
`)

	loader := NewLoader(conf, "", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)
	assert.Contains(t, got, "cars")
}

func TestLoader_GlobalsInterpolation(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "globals.yaml", `
bucket: my-bucket
load_args:
  sep: ";"
retries: 3
`)
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  type: csv
  filepath: s3://${globals:bucket}/cars.csv
  load_args: ${globals:load_args}
  retries: ${globals:retries}
  region: ${globals:region|eu-west-1}
`)

	loader := NewLoader(conf, "", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)

	cars := got["cars"].(map[string]any)
	assert.Equal(t, "s3://my-bucket/cars.csv", cars["filepath"], "inline reference splices the scalar")
	assert.Equal(t, map[string]any{"sep": ";"}, cars["load_args"], "whole-string reference keeps the value's type")
	assert.Equal(t, 3, cars["retries"])
	assert.Equal(t, "eu-west-1", cars["region"], "missing global falls back to the default after |")
}

func TestLoader_GlobalsInterpolation_Missing(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  filepath: s3://${globals:bucket}/cars.csv
`)

	loader := NewLoader(conf, "", nil, nil)
	_, err := loader.Load("catalog*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `global "bucket" is not defined`)
}

func TestLoader_GlobalsInterpolation_CompositeInline(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "globals.yaml", `
load_args:
  sep: ";"
`)
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  filepath: prefix-${globals:load_args}-suffix
`)

	loader := NewLoader(conf, "", nil, nil)
	_, err := loader.Load("catalog*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a scalar")
}

func TestLoader_GlobalsPerLayer(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "globals.yaml", `bucket: base-bucket`)
	writeConf(t, conf, "base", "catalog.yaml", `
cars:
  filepath: s3://${globals:bucket}/cars.csv
`)
	writeConf(t, conf, "prod", "globals.yaml", `bucket: prod-bucket`)
	writeConf(t, conf, "prod", "catalog.yaml", `
cars:
  filepath: s3://${globals:bucket}/cars.csv
`)

	loader := NewLoader(conf, "prod", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)

	cars := got["cars"].(map[string]any)
	assert.Equal(t, "s3://prod-bucket/cars.csv", cars["filepath"], "each layer resolves against its own globals")
}

func TestLoader_Credentials_ExpandsEnvVars(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_S3_KEY", "AKIATEST"))
	require.NoError(t, os.Setenv("TEST_S3_SECRET", "sekret"))
	defer func() {
		_ = os.Unsetenv("TEST_S3_KEY")
		_ = os.Unsetenv("TEST_S3_SECRET")
	}()

	conf := t.TempDir()
	writeConf(t, conf, "base", "credentials.yaml", `
dev_s3:
  key: ${TEST_S3_KEY}
  secret: ${TEST_S3_SECRET}
  endpoint: ${UNSET_ENDPOINT}
`)

	loader := NewLoader(conf, "", nil, nil)
	creds, err := loader.Credentials()
	require.NoError(t, err)

	devS3 := creds["dev_s3"].(map[string]any)
	assert.Equal(t, "AKIATEST", devS3["key"])
	assert.Equal(t, "sekret", devS3["secret"])
	assert.Equal(t, "${UNSET_ENDPOINT}", devS3["endpoint"], "unset variables keep the reference")
}

func TestLoader_Credentials_MissingIsEmpty(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `cars: {type: csv}`)

	loader := NewLoader(conf, "", nil, nil)
	creds, err := loader.Credentials()
	require.NoError(t, err)
	assert.Empty(t, creds, "projects without credentials files get an empty map")
}

func TestLoader_Parameters_RuntimeOverlay(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "parameters.yaml", `
learning_rate: 0.01
epochs: 10
`)

	loader := NewLoader(conf, "", map[string]any{"epochs": 20}, nil)
	params, err := loader.Parameters()
	require.NoError(t, err)

	assert.Equal(t, 0.01, params["learning_rate"])
	assert.Equal(t, 20, params["epochs"], "runtime params override file values")
}

func TestLoader_Parameters_NestedOverlayKeepsSiblings(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "parameters.yaml", `
train:
  epochs: 10
  learning_rate: 0.01
`)

	runtime := map[string]any{"train": map[string]any{"epochs": 20}}
	loader := NewLoader(conf, "", runtime, nil)
	params, err := loader.Parameters()
	require.NoError(t, err)

	train, ok := params["train"].(map[string]any)
	require.True(t, ok, "train should stay a mapping")
	assert.Equal(t, 20, train["epochs"])
	assert.Equal(t, 0.01, train["learning_rate"], "untouched nested keys survive the overlay")
}

func TestLoader_Parameters_MissingStartsEmpty(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `cars: {type: csv}`)

	loader := NewLoader(conf, "", map[string]any{"epochs": 5}, nil)
	params, err := loader.Parameters()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"epochs": 5}, params)
}

func TestLoader_BaseEnvLoadsOnce(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `cars: {type: csv}`)

	loader := NewLoader(conf, "base", nil, nil)
	got, err := loader.Load("catalog*")
	require.NoError(t, err)
	assert.Contains(t, got, "cars")
}

func TestLoader_Load_LogsLayerOverride(t *testing.T) {
	conf := t.TempDir()
	writeConf(t, conf, "base", "catalog.yaml", `cars: {type: csv}`)
	writeConf(t, conf, "prod", "catalog.yaml", `cars: {type: parquet}`)

	logger, rec := testutil.NewCapturingLogger(t)
	loader := NewLoader(conf, "prod", nil, logger)
	_, err := loader.Load("catalog*")
	require.NoError(t, err)

	assert.True(t, rec.Has(slog.LevelDebug, "overridden by environment layer"),
		"override of a base key should be logged at debug level")
	assert.True(t, rec.Has(slog.LevelDebug, "cars"))
}
