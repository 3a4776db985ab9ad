package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache sources
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// CacheConfig says where snapshots are read from and how long matchups are memoized
type CacheConfig struct {
	Dir            string
	Source         string
	MatchupTTL     time.Duration
	ReloadInterval time.Duration // 0 disables the watcher
}

// DatabaseConfig holds the optional Postgres archive connection
type DatabaseConfig struct {
	DSN string
}

// RedisConfig holds the optional Redis connection
type RedisConfig struct {
	URL string
}

// ScrapeConfig tunes the nba.com scraper
type ScrapeConfig struct {
	EnableDaily bool
	DailyHour   int
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	Interval    time.Duration
	PageTimeout time.Duration
	KeepRuns    int
	ChromePath  string
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scrape   ScrapeConfig
}

// LoadDotEnv loads .env style files into the environment. Missing files
// are not an error, variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			log.Printf("⚠️  Could not load %s: %v", p, err)
		}
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("REST_PORT", "5000"),
		},
		Cache: CacheConfig{
			Dir:            getEnv("CACHE_DIR", "."),
			Source:         strings.ToLower(getEnv("CACHE_SOURCE", SourceFile)),
			MatchupTTL:     p.duration("MATCHUP_CACHE_TTL", 10*time.Minute),
			ReloadInterval: p.duration("RELOAD_INTERVAL", time.Minute),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Scrape: ScrapeConfig{
			EnableDaily: p.boolean("ENABLE_DAILY_SCRAPE", false),
			DailyHour:   p.integer("DAILY_SCRAPE_HOUR", 4),
			Concurrency: p.integer("SCRAPE_CONCURRENCY", 1),
			MaxRetries:  p.integer("SCRAPE_MAX_RETRIES", 2),
			RetryDelay:  p.duration("SCRAPE_RETRY_DELAY", 5*time.Second),
			Interval:    p.duration("SCRAPE_INTERVAL", 2*time.Second),
			PageTimeout: p.duration("SCRAPE_PAGE_TIMEOUT", 60*time.Second),
			KeepRuns:    p.integer("ARCHIVE_KEEP_RUNS", 30),
			ChromePath:  getEnv("CHROME_PATH", ""),
		},
	}

	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value and cross-field constraints. Every violation is
// reported, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Source {
	case SourceFile:
	case SourcePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("CACHE_SOURCE=postgres requires DATABASE_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_SOURCE must be %q or %q, got %q", SourceFile, SourcePostgres, c.Cache.Source))
	}

	if c.Scrape.DailyHour < 0 || c.Scrape.DailyHour > 23 {
		errs = append(errs, fmt.Errorf("DAILY_SCRAPE_HOUR must be 0-23, got %d", c.Scrape.DailyHour))
	}
	if c.Scrape.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("SCRAPE_CONCURRENCY must be at least 1, got %d", c.Scrape.Concurrency))
	}
	if c.Scrape.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("SCRAPE_MAX_RETRIES must not be negative, got %d", c.Scrape.MaxRetries))
	}
	if c.Scrape.KeepRuns < 0 {
		errs = append(errs, fmt.Errorf("ARCHIVE_KEEP_RUNS must not be negative (0 keeps all), got %d", c.Scrape.KeepRuns))
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"MATCHUP_CACHE_TTL", c.Cache.MatchupTTL},
		{"RELOAD_INTERVAL", c.Cache.ReloadInterval},
		{"SCRAPE_RETRY_DELAY", c.Scrape.RetryDelay},
		{"SCRAPE_INTERVAL", c.Scrape.Interval},
		{"SCRAPE_PAGE_TIMEOUT", c.Scrape.PageTimeout},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", d.key, d.d))
		}
	}

	return errors.Join(errs...)
}

// parser collects every malformed variable instead of stopping at the first
type parser struct {
	errs []error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
