package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
  // provider keys may reference the environment
  "model": "anthropic/claude-sonnet-4-20250514",
  "logLevel": "debug",
  "provider": {
    "anthropic": {"apiKey": "{env:TEST_ANTHROPIC_KEY}"}
  },
  "quota": {"messageLimit": 42}
}`
	path := filepath.Join(dir, "copilot.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("COPILOT_CONFIG", path)
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sk-test-123", cfg.Provider["anthropic"].APIKey)
	assert.Equal(t, 42, cfg.Quota.MessageLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COPILOT_MODEL", "openai/gpt-4o")
	t.Setenv("COPILOT_PORT", "9091")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.Provider["openai"].APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, DefaultMessageLimit, cfg.Quota.MessageLimit)
	assert.NotZero(t, cfg.Server.Port)
}
