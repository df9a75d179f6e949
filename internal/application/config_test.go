package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv blanks every override so a test sees only its own values.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DUNE_API_KEY", "DEMO_WALLET",
		"SHARE_SERVICE_URL", "SHARE_PUBLIC_BASE", "BASE_URL",
		"REDIS_ADDR", "PG_DSN", "PG_ENABLED", "OGDROP_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadAppConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8090", cfg.Server.Addr())
	assert.Equal(t, 1_000_000_000.0, cfg.Scenario.TotalSupply)
	assert.Equal(t, 6, cfg.Scenario.RevealSeconds)

	assert.Equal(t, 5850749, cfg.Dune.QueryID)
	assert.Equal(t, "https://api.dune.com", cfg.Dune.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Dune.Timeout())
	assert.Equal(t, time.Second, cfg.Dune.PollInterval())
	assert.Equal(t, 15, cfg.Dune.MaxPollAttempts)
	assert.Empty(t, cfg.Dune.APIKey)

	assert.Equal(t, "http://127.0.0.1:4076", cfg.Share.ServiceURL)
	assert.Equal(t, 20*time.Second, cfg.Share.Timeout())

	assert.Equal(t, 15*time.Minute, cfg.Cache.ReportTTL())
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
}

func TestLoadAppConfig_File(t *testing.T) {
	clearConfigEnv(t)

	raw := `
server:
  host: 127.0.0.1
  port: 9000
scenario:
  total_supply: 2000000000
cohorts:
  manifest_path: config/cohorts.yaml
dune:
  api_key: from-file
  timeout_seconds: 10
share:
  public_base: https://seamom.example
cache:
  redis:
    addr: localhost:6379
    default_ttl_seconds: 120
  report_ttl_seconds: 60
database:
  enabled: true
  dsn: postgres://localhost/ogdrop
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 2_000_000_000.0, cfg.Scenario.TotalSupply)
	assert.Equal(t, "config/cohorts.yaml", cfg.Cohorts.ManifestPath)
	assert.Equal(t, "from-file", cfg.Dune.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Dune.Timeout())
	assert.Equal(t, "https://seamom.example", cfg.Share.PublicBase)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Cache.ReportTTL())
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://localhost/ogdrop", cfg.Database.DSN)

	// Untouched sections still receive defaults.
	assert.Equal(t, 5850749, cfg.Dune.QueryID)
}

func TestLoadAppConfig_MissingFileUsesDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadAppConfig_EnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DUNE_API_KEY", "from-env")
	t.Setenv("SHARE_SERVICE_URL", "http://cards.internal:4076")
	t.Setenv("OGDROP_PORT", "8091")
	t.Setenv("PG_DSN", "postgres://db/ogdrop")
	t.Setenv("PG_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := LoadAppConfig("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Dune.APIKey)
	assert.Equal(t, "http://cards.internal:4076", cfg.Share.ServiceURL)
	assert.Equal(t, 8091, cfg.Server.Port)
	assert.Equal(t, "postgres://db/ogdrop", cfg.Database.DSN)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
}

func TestLoadAppConfig_PublicBaseFallsBackToBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BASE_URL", "https://fallback.example")

	cfg, err := LoadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://fallback.example", cfg.Share.PublicBase)

	t.Setenv("SHARE_PUBLIC_BASE", "https://primary.example")
	cfg, err = LoadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", cfg.Share.PublicBase)
}

func TestLoadAppConfig_Invalid(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OGDROP_PORT", "99999")

	_, err := LoadAppConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port")

	clearConfigEnv(t)
	raw := "scenario:\n  total_supply: -5\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	_, err = LoadAppConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_supply")
}

func TestLoadAppConfig_BadYAML(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err := LoadAppConfig(path)
	require.Error(t, err)
}
