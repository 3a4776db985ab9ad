package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database is the optional Postgres archive of scrape runs
type Database struct {
	conn *sql.DB
	dsn  string
}

// NewDatabase opens and pings a Postgres connection
func NewDatabase(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		conn: db,
		dsn:  dsn,
	}, nil
}

// NewDatabaseFromDB wraps an existing handle
func NewDatabaseFromDB(conn *sql.DB) *Database {
	return &Database{conn: conn}
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

// migrations are applied in order and recorded in schema_migrations
var migrations = []struct {
	version string
	sql     string
}{
	{
		version: "001_create_scrape_runs",
		sql: `
			CREATE TABLE IF NOT EXISTS scrape_runs (
				run_id UUID PRIMARY KEY,
				scraped_at TIMESTAMPTZ NOT NULL,
				offensive_types INT NOT NULL,
				defensive_types INT NOT NULL,
				total_time_seconds DOUBLE PRECISION NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		version: "002_create_offensive_play_stats",
		sql: `
			CREATE TABLE IF NOT EXISTS offensive_play_stats (
				run_id UUID NOT NULL REFERENCES scrape_runs(run_id) ON DELETE CASCADE,
				play_type_order INT NOT NULL,
				row_order INT NOT NULL,
				play_type VARCHAR(64) NOT NULL,
				team VARCHAR(64) NOT NULL,
				player VARCHAR(128) NOT NULL,
				pts DOUBLE PRECISION,
				PRIMARY KEY (run_id, play_type_order, row_order)
			)
		`,
	},
	{
		version: "003_create_defensive_play_stats",
		sql: `
			CREATE TABLE IF NOT EXISTS defensive_play_stats (
				run_id UUID NOT NULL REFERENCES scrape_runs(run_id) ON DELETE CASCADE,
				play_type_order INT NOT NULL,
				row_order INT NOT NULL,
				play_type VARCHAR(64) NOT NULL,
				rank INT NOT NULL,
				team VARCHAR(64) NOT NULL,
				ppp DOUBLE PRECISION,
				PRIMARY KEY (run_id, play_type_order, row_order)
			)
		`,
	},
	{
		version: "004_index_scrape_runs_scraped_at",
		sql:     `CREATE INDEX IF NOT EXISTS idx_scrape_runs_scraped_at ON scrape_runs (scraped_at DESC)`,
	},
	{
		// play types with no rows still count as scraped
		version: "005_add_scrape_runs_play_types",
		sql: `
			ALTER TABLE scrape_runs
				ADD COLUMN IF NOT EXISTS offensive_play_types TEXT[] NOT NULL DEFAULT '{}',
				ADD COLUMN IF NOT EXISTS defensive_play_types TEXT[] NOT NULL DEFAULT '{}'
		`,
	},
}

// RunMigrations applies every pending migration
func (db *Database) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		if err := db.runMigration(ctx, m.version, m.sql); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}
	}

	log.Println("✓ All migrations completed successfully")
	return nil
}

func (db *Database) runMigration(ctx context.Context, version, statement string) error {
	var exists bool
	err := db.conn.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		log.Printf("  ⊘ Skipping %s (already applied)", version)
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("  ✓ Applied %s", version)
	return nil
}

// HealthCheck performs a health check on the database
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.conn.PingContext(ctx)
}
