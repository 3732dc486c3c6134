package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.StatsTimeout)
	assert.Equal(t, time.Hour, cfg.AuditInterval)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STATS_TIMEOUT", "5s")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Second, cfg.StatsTimeout)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_PATH=/tmp/x.db\nCACHE_TTL=1m\n"), 0o600))

	cfg, err := load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	// GIVEN: A .env file with a line that is not KEY=VALUE
	// WHEN: Loading
	// THEN: The parse error is returned instead of silently using defaults

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9000\nNOT_A_PAIR\n"), 0o600))

	cfg, err := load(dir)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), ".env")
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
}
