package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	t.Setenv("CFG_STR", "value")
	t.Setenv("CFG_DUR", "250ms")
	t.Setenv("CFG_BAD_DUR", "soon")
	t.Setenv("CFG_INT", "15")
	t.Setenv("CFG_BOOL", "false")

	assert.Equal(t, "value", Get("CFG_STR", "x"))
	assert.Equal(t, "x", Get("CFG_MISSING", "x"))
	assert.Equal(t, 250*time.Millisecond, GetDuration("CFG_DUR", time.Second))
	assert.Equal(t, time.Second, GetDuration("CFG_BAD_DUR", time.Second))
	assert.Equal(t, 15, GetInt("CFG_INT", 0))
	assert.False(t, GetBool("CFG_BOOL", true))
	assert.True(t, GetBool("CFG_MISSING", true))
}

func TestLoadDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("CFG_FROM_FILE=file\nCFG_SET=file\n"), 0o600))
	t.Setenv("CFG_SET", "env")
	t.Setenv("CFG_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("CFG_FROM_FILE"))

	Load(file, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "file", os.Getenv("CFG_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("CFG_SET"))
	require.NoError(t, os.Unsetenv("CFG_FROM_FILE"))
}
