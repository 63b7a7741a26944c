package config

import (
	stderrors "errors"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads the first existing file from envFiles. Variables already present in
// the process environment are not overwritten. It returns the file it attempted, if any.
func loadEnvFile() (string, error) {
	for _, path := range envFiles {
		if _, err := os.Stat(path); stderrors.Is(err, os.ErrNotExist) {
			continue
		}
		return path, godotenv.Load(path)
	}
	return "", nil
}
