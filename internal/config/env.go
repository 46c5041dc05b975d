package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the first .env found in the given paths, or
// from the workspace directory when none are given. Existing environment
// variables win. It reports the file that was loaded, if any.
func LoadEnv(workspace string, paths ...string) (string, error) {
	if len(paths) == 0 {
		if workspace == "" {
			workspace = "."
		}
		paths = []string{filepath.Join(workspace, ".env")}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", err
		}
		return p, nil
	}
	return "", nil
}
