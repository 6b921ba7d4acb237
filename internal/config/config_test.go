package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_NS", "testns")
	t.Setenv("SURREAL_DB", "testdb")
	t.Setenv("SURREAL_USER", "root")
	t.Setenv("SURREAL_PASS", "root")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg := New()

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "ws://localhost:8000/rpc", cfg.DBUrl)
	assert.Equal(t, "testns", cfg.DBNs)
	assert.Equal(t, "testdb", cfg.DBDb)
	assert.Equal(t, "root", cfg.DBUser)
	assert.Equal(t, "root", cfg.DBPass)
}

func TestNew_DefaultAddr(t *testing.T) {
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_NS", "testns")
	t.Setenv("SURREAL_DB", "testdb")
	t.Setenv("HTTP_ADDR", "")

	cfg := New()

	assert.Equal(t, ":5000", cfg.HTTPAddr)
}
