package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/logging"
)

// ConfigForTests loads the .env.test file and returns a valid *config.Config.
// Integration tests that need a real database call this; when no .env.test is
// present the test is skipped, so the suite stays runnable without
// infrastructure.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	// Find project root by looking for go.mod to reliably locate .env.test
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil {
		t.Skipf("no .env.test found, skipping integration test: %v", err)
	}

	// t.Setenv is the idiomatic and safest way to handle test environments.
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()

	return config.New()
}
