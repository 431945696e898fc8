package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/featuregrid/internal/cli"
)

func TestRun_InvalidModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		model "broken" {
			binary_option "a" {
		// Missing closing braces here
	`
	filePath := filepath.Join(t.TempDir(), "model.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(t.Context(), out, []string{filePath})

	// --- Assert ---
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "failed to load variability model")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_EvaluatesModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.hcl")
	require.NoError(t, os.WriteFile(modelPath, []byte(`
model "tiny" {
  binary_option "a" {
    optional = true
  }
}
`), 0o600))
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"binaryOptions": {"a": true}}`), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(t.Context(), out, []string{"-log-level=error", "-config", configPath, modelPath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), `"valid":true`)
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(t.Context(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(t.Context(), out, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
