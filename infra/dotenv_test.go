package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPath(t *testing.T) {
	dir := t.TempDir()

	path := SearchPath(dir)
	assert.Equal(t, []string{dir, filepath.Dir(dir)}, path)
	assert.Contains(t, path, dir)

	root := SearchPath(string(filepath.Separator))
	assert.Equal(t, []string{string(filepath.Separator)}, root)
}

func TestFindAndLoadDotEnv(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "bin")
	require.NoError(t, os.Mkdir(child, 0o755))

	assert.Equal(t, "", FindDotEnv(SearchPath(child)))

	envFile := filepath.Join(parent, DotEnvFileName)
	require.NoError(t, os.WriteFile(envFile, []byte("HEALTHFIN_TEST_FROM_FILE=file\nHEALTHFIN_TEST_PRESET=file\n"), 0o600))
	assert.Equal(t, envFile, FindDotEnv(SearchPath(child)))

	t.Setenv("HEALTHFIN_TEST_PRESET", "process")
	t.Setenv("HEALTHFIN_TEST_FROM_FILE", "")
	os.Unsetenv("HEALTHFIN_TEST_FROM_FILE")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "file", os.Getenv("HEALTHFIN_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("HEALTHFIN_TEST_PRESET"))

	childEnv := filepath.Join(child, DotEnvFileName)
	require.NoError(t, os.WriteFile(childEnv, []byte("X=1\n"), 0o600))
	assert.Equal(t, childEnv, FindDotEnv(SearchPath(child)), "own directory wins")
}

func TestPgConfigConnectionString(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db", PgConfig{ConnectionString: "postgres://u@h/db"}.GetConnectionString())
	assert.Equal(t,
		"host=db user=api password=secret database=healthfin sslmode=prefer port=5432",
		PgConfig{Hostname: "db", User: "api", Password: "secret", Database: "healthfin"}.GetConnectionString())
	assert.False(t, PgConfig{}.Configured())
	assert.True(t, PgConfig{Hostname: "db"}.Configured())
}
