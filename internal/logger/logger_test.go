package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, flush := New(Options{Level: "debug", JSON: true, File: path})
	log.Infow("listing created", "id", "abc")
	flush()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"listing created"`)
	assert.Contains(t, string(b), `"id":"abc"`)
}

func TestNew_LevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, flush := New(Options{Level: "warn", File: path})
	log.Info("hidden")
	log.Warn("shown")
	flush()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hidden")
	assert.Contains(t, string(b), "shown")
}
