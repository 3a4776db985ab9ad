package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortuna/matchups/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"REST_PORT", "CACHE_DIR", "CACHE_SOURCE", "DATABASE_DSN", "REDIS_URL",
	"MATCHUP_CACHE_TTL", "RELOAD_INTERVAL", "ENABLE_DAILY_SCRAPE", "DAILY_SCRAPE_HOUR",
	"SCRAPE_CONCURRENCY", "SCRAPE_MAX_RETRIES", "SCRAPE_RETRY_DELAY", "SCRAPE_INTERVAL",
	"SCRAPE_PAGE_TIMEOUT", "ARCHIVE_KEEP_RUNS", "CHROME_PATH",
}

// clearEnv blanks every key for the test, t.Setenv restores them after
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, ".", cfg.Cache.Dir)
	assert.Equal(t, config.SourceFile, cfg.Cache.Source)
	assert.Equal(t, 10*time.Minute, cfg.Cache.MatchupTTL)
	assert.Equal(t, time.Minute, cfg.Cache.ReloadInterval)
	assert.Empty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Scrape.EnableDaily)
	assert.Equal(t, 4, cfg.Scrape.DailyHour)
	assert.Equal(t, 1, cfg.Scrape.Concurrency)
	assert.Equal(t, 2, cfg.Scrape.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Scrape.RetryDelay)
	assert.Equal(t, 2*time.Second, cfg.Scrape.Interval)
	assert.Equal(t, time.Minute, cfg.Scrape.PageTimeout)
	assert.Equal(t, 30, cfg.Scrape.KeepRuns)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REST_PORT", "8088")
	t.Setenv("CACHE_SOURCE", "Postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/matchups?sslmode=disable")
	t.Setenv("RELOAD_INTERVAL", "0s")
	t.Setenv("ENABLE_DAILY_SCRAPE", "true")
	t.Setenv("DAILY_SCRAPE_HOUR", "23")
	t.Setenv("SCRAPE_CONCURRENCY", "3")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, config.SourcePostgres, cfg.Cache.Source)
	assert.Zero(t, cfg.Cache.ReloadInterval)
	assert.True(t, cfg.Scrape.EnableDaily)
	assert.Equal(t, 23, cfg.Scrape.DailyHour)
	assert.Equal(t, 3, cfg.Scrape.Concurrency)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"RELOAD_INTERVAL": "soon"}, "RELOAD_INTERVAL"},
		{"bad bool", map[string]string{"ENABLE_DAILY_SCRAPE": "sometimes"}, "ENABLE_DAILY_SCRAPE"},
		{"hour out of range", map[string]string{"DAILY_SCRAPE_HOUR": "24"}, "DAILY_SCRAPE_HOUR"},
		{"postgres without dsn", map[string]string{"CACHE_SOURCE": "postgres"}, "DATABASE_DSN"},
		{"unknown source", map[string]string{"CACHE_SOURCE": "s3"}, "CACHE_SOURCE"},
		{"zero concurrency", map[string]string{"SCRAPE_CONCURRENCY": "0"}, "SCRAPE_CONCURRENCY"},
		{"negative retries", map[string]string{"SCRAPE_MAX_RETRIES": "-1"}, "SCRAPE_MAX_RETRIES"},
		{"negative keep runs", map[string]string{"ARCHIVE_KEEP_RUNS": "-3"}, "ARCHIVE_KEEP_RUNS"},
		{"negative matchup ttl", map[string]string{"MATCHUP_CACHE_TTL": "-1m"}, "MATCHUP_CACHE_TTL"},
		{"negative reload interval", map[string]string{"RELOAD_INTERVAL": "-1s"}, "RELOAD_INTERVAL"},
		{"negative page timeout", map[string]string{"SCRAPE_PAGE_TIMEOUT": "-5s"}, "SCRAPE_PAGE_TIMEOUT"},
		{"negative retry delay", map[string]string{"SCRAPE_RETRY_DELAY": "-5s"}, "SCRAPE_RETRY_DELAY"},
		{"negative interval", map[string]string{"SCRAPE_INTERVAL": "-2s"}, "SCRAPE_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_ReportsEveryViolation(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAILY_SCRAPE_HOUR", "25")
	t.Setenv("SCRAPE_CONCURRENCY", "0")
	t.Setenv("SCRAPE_PAGE_TIMEOUT", "-5s")

	_, err := config.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAILY_SCRAPE_HOUR")
	assert.Contains(t, err.Error(), "SCRAPE_CONCURRENCY")
	assert.Contains(t, err.Error(), "SCRAPE_PAGE_TIMEOUT")
}

func TestLoadConfig_ZeroKeepRunsKeepsAll(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHIVE_KEEP_RUNS", "0")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.Scrape.KeepRuns)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REST_PORT", "7000")
	// godotenv only fills unset variables, an empty one counts as set
	require.NoError(t, os.Unsetenv("CACHE_DIR"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CACHE_DIR=/var/lib/matchups\nREST_PORT=9999\n"), 0o644))

	config.LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/matchups", cfg.Cache.Dir)
	assert.Equal(t, "7000", cfg.Server.Port, "existing env wins over .env")
}
