package infra

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const DotEnvFileName = ".env"

// SearchPath lists the directories looked up for configuration files: the
// given directory first, then its parent.
func SearchPath(selfDir string) []string {
	dir := filepath.Clean(selfDir)
	parent := filepath.Dir(dir)
	if parent == dir {
		return []string{dir}
	}
	return []string{dir, parent}
}

// FindDotEnv returns the first .env file found in the search path, or "" when none exists.
func FindDotEnv(searchPath []string) string {
	for _, dir := range searchPath {
		candidate := filepath.Join(dir, DotEnvFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadDotEnv loads the given file into the process environment. Variables that
// are already set keep their value.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "could not load %s", path)
	}
	return nil
}
