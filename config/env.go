package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv copies variables from .env files into the environment.
// Without arguments it reads ./.env and ~/.issuewatch/.env. Variables that
// are already set are kept and missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".issuewatch", ".env"))
		}
	}

	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}
