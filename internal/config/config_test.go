package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_PLATFORM_KEY", "sk-or-platform-secret")

	path := writeConfig(t, `
server:
  addr: ":9999"
upstream:
  base_url: https://openrouter.ai/api/v1
  platform_key: ${TEST_PLATFORM_KEY}
auth:
  verify_url: https://backend.internal/session/verify
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "sk-or-platform-secret", cfg.Upstream.PlatformKey)
	assert.Equal(t, DefaultFreeMessagesPerDay, cfg.Quota.FreeMessagesPerDay)
	assert.Equal(t, Duration(DefaultUpstreamTimeout), cfg.Upstream.Timeout)
	assert.Equal(t, DefaultContextTokenBudget, cfg.Context.TokenBudget)
	assert.Equal(t, DefaultRateLimitPerMinute, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingUpstreamRejected(t *testing.T) {
	path := writeConfig(t, `
auth:
  verify_url: https://backend.internal/session/verify
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream.base_url")
}

func TestLoad_MissingVerifyURLRejected(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: https://openrouter.ai/api/v1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.verify_url")
}

func TestLoad_OverridesStick(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: https://openrouter.ai/api/v1
  timeout: 30s
auth:
  verify_url: https://backend.internal/session/verify
quota:
  free_messages_per_day: 3
  free_tokens_per_day: 50000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(30*time.Second), cfg.Upstream.Timeout)
	assert.Equal(t, 3, cfg.Quota.FreeMessagesPerDay)
	assert.Equal(t, 50000, cfg.Quota.FreeTokensPerDay)
}
