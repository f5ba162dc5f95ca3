// Package secrets resolves credentials from the environment. A .env file is
// honored for local development; deployed runs expose secrets as plain
// environment variables.
package secrets

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file if one is present. Absence is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Get returns the value of the named secret. Missing or empty values are
// errors; the caller decides whether that is fatal for its call site.
func Get(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("secret %s is not set", key)
	}
	return v, nil
}
