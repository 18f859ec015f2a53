package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearStorageEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_BACKEND", "PG_CONNECTION_STRING", "PG_HOSTNAME",
		"DATABRICKS_HOST", "DATABRICKS_TOKEN", "DATABRICKS_CLIENT_ID",
		"DATABRICKS_CLIENT_SECRET", "SQL_WAREHOUSE_ID", "API_HOST", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestRunPreflight_FailsWithoutStorageConfiguration(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("STORAGE_BACKEND", "databricks")

	out := &bytes.Buffer{}
	_, err := RunPreflight(LaunchOptions{SelfDir: t.TempDir(), Out: out})

	require.Error(t, err)
	assert.Contains(t, out.String(), "Error:")
	assert.Contains(t, out.String(), "DATABRICKS_HOST is required")
	assert.NotContains(t, out.String(), "/docs")
}

func TestRunPreflight_FailsOnUnknownBackend(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("STORAGE_BACKEND", "cosmos")

	_, err := RunPreflight(LaunchOptions{SelfDir: t.TempDir(), Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORAGE_BACKEND "cosmos"`)
}

func TestRunPreflight_Succeeds(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("STORAGE_BACKEND", "memory")

	selfDir := t.TempDir()
	out := &bytes.Buffer{}
	preflight, err := RunPreflight(LaunchOptions{
		SelfDir:  selfDir,
		Compiled: CompiledConfig{Version: "1.2.3"},
		Out:      out,
	})

	require.NoError(t, err)
	assert.Contains(t, preflight.SearchPath, filepath.Clean(selfDir))
	assert.Empty(t, preflight.DotEnvPath)
	assert.Equal(t, "0.0.0.0", preflight.Config.Api.Host)
	assert.Equal(t, "8000", preflight.Config.Api.Port)
	assert.Equal(t, "1.2.3", preflight.Config.Api.AppVersion)

	printed := out.String()
	assert.Contains(t, printed, AppName+" v1.2.3")
	assert.Contains(t, printed, "Warning: no .env file found")
	assert.Contains(t, printed, "http://localhost:8000/docs")
	assert.Contains(t, printed, "http://localhost:8000/health")
	assert.Contains(t, printed, "ws://localhost:8000/ws/chat")
}

func TestRunPreflight_LoadsDotEnvFromParentDirectory(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("STORAGE_BACKEND", "memory")
	const marker = "HC_LAUNCHER_TEST_MARKER"
	require.NoError(t, os.Unsetenv(marker))
	t.Cleanup(func() { os.Unsetenv(marker) })

	root := t.TempDir()
	selfDir := filepath.Join(root, "bin")
	require.NoError(t, os.Mkdir(selfDir, 0o755))
	dotEnv := filepath.Join(root, ".env")
	require.NoError(t, os.WriteFile(dotEnv, []byte(marker+"=loaded\n"), 0o600))

	out := &bytes.Buffer{}
	preflight, err := RunPreflight(LaunchOptions{SelfDir: selfDir, Out: out})

	require.NoError(t, err)
	assert.Equal(t, dotEnv, preflight.DotEnvPath)
	assert.Equal(t, "loaded", os.Getenv(marker))
	assert.Contains(t, out.String(), "Loaded "+dotEnv)
	assert.Equal(t, []string{selfDir, root}, preflight.SearchPath)
}
