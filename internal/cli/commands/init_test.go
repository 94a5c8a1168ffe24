package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdata/internal/cli/config"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:    "init empty directory",
			args:    []string{},
			wantErr: false,
			wantFiles: []string{
				"leapdata.yaml",
				"conf",
				"conf/base/catalog.yaml",
				"conf/base/globals.yaml",
				"conf/base/parameters.yaml",
				"conf/local/credentials.yaml",
				"data/cars.csv",
				".gitignore",
			},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapdata.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapdata.yaml"), []byte("existing"), 0600)
			},
			args:    []string{"--force"},
			wantErr: false,
			wantFiles: []string{
				"leapdata.yaml",
				"conf",
			},
		},
		{
			name:    "init named directory",
			args:    []string{"my-project"},
			wantErr: false,
			wantFiles: []string{
				"my-project/leapdata.yaml",
				"my-project/conf/base/catalog.yaml",
				"my-project/data/cars.csv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			chdir(t, tmpDir)
			config.ResetSettings()
			t.Cleanup(config.ResetSettings)

			// Run setup if provided
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			// Check expected files exist
			for _, f := range tt.wantFiles {
				path := filepath.Join(tmpDir, f)
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "expected file/dir %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
}

func TestInitCreatesValidProject(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	config.ResetSettings()
	t.Cleanup(config.ResetSettings)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.NoError(t, err)

	// Read and verify project file content
	content, err := os.ReadFile("leapdata.yaml")
	require.NoError(t, err, "failed to read leapdata.yaml")

	expectedContents := []string{
		"project:",
		"conf_source: conf",
		"env: local",
		"journal_path:",
	}
	for _, expected := range expectedContents {
		assert.Contains(t, string(content), expected, "project file should contain %q", expected)
	}
	assert.NotContains(t, string(content), "my-project",
		"placeholder project name should be stamped with the directory name")
}

func TestInitScaffoldsLoadableCatalog(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	config.ResetSettings()
	t.Cleanup(config.ResetSettings)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Execute())

	// The scaffolded project must work with the data commands as-is.
	primeSettings(t, "--output", "json")
	out, _, err := execCommand(NewPreviewCommand(), "cars")
	require.NoError(t, err)
	assert.Contains(t, out, "model")
}
