package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/matchups/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNoRuns is returned when the archive holds no scrape runs yet
var ErrNoRuns = errors.New("no scrape runs archived")

// SnapshotRepository archives scrape runs in Postgres
type SnapshotRepository struct {
	db *store.Database
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *store.Database) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save stores a snapshot as a new run and returns the run ID
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *store.Snapshot) (uuid.UUID, error) {
	runID := uuid.New()

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO scrape_runs (
			run_id, scraped_at, offensive_types, defensive_types, total_time_seconds,
			offensive_play_types, defensive_play_types
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		runID, snapshot.Info.Time().UTC(), snapshot.Info.OffensiveTypes,
		snapshot.Info.DefensiveTypes, snapshot.Info.TotalTimeSeconds,
		pq.Array(playTypeNames(snapshot.Offensive)), pq.Array(playTypeNames(snapshot.Defensive)),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting scrape run: %w", err)
	}

	if err := copyOffensive(ctx, tx, runID, snapshot.Offensive); err != nil {
		return uuid.Nil, err
	}
	if err := copyDefensive(ctx, tx, runID, snapshot.Defensive); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

func copyOffensive(ctx context.Context, tx *sql.Tx, runID uuid.UUID, tables []store.PlayTypeTable[store.OffensiveRecord]) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("offensive_play_stats",
		"run_id", "play_type_order", "row_order", "play_type", "team", "player", "pts"))
	if err != nil {
		return fmt.Errorf("preparing offensive copy: %w", err)
	}

	for i, table := range tables {
		for j, row := range table.Rows {
			_, err := stmt.ExecContext(ctx, runID, i, j, table.PlayType, row.Team, row.Player, nullFloat(row.Points))
			if err != nil {
				stmt.Close()
				return fmt.Errorf("copying offensive row: %w", err)
			}
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing offensive copy: %w", err)
	}
	return stmt.Close()
}

func copyDefensive(ctx context.Context, tx *sql.Tx, runID uuid.UUID, tables []store.PlayTypeTable[store.DefensiveRecord]) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("defensive_play_stats",
		"run_id", "play_type_order", "row_order", "play_type", "rank", "team", "ppp"))
	if err != nil {
		return fmt.Errorf("preparing defensive copy: %w", err)
	}

	for i, table := range tables {
		for j, row := range table.Rows {
			_, err := stmt.ExecContext(ctx, runID, i, j, table.PlayType, row.Rank, row.Team, nullFloat(row.PPP))
			if err != nil {
				stmt.Close()
				return fmt.Errorf("copying defensive row: %w", err)
			}
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing defensive copy: %w", err)
	}
	return stmt.Close()
}

// LatestRun returns the ID and info of the newest archived run
func (r *SnapshotRepository) LatestRun(ctx context.Context) (uuid.UUID, store.CacheInfo, error) {
	query := `
		SELECT run_id, scraped_at, offensive_types, defensive_types, total_time_seconds
		FROM scrape_runs
		ORDER BY scraped_at DESC
		LIMIT 1
	`

	var (
		runID     uuid.UUID
		scrapedAt time.Time
		info      store.CacheInfo
	)
	err := r.db.DB().QueryRowContext(ctx, query).Scan(
		&runID, &scrapedAt, &info.OffensiveTypes, &info.DefensiveTypes, &info.TotalTimeSeconds,
	)
	if err == sql.ErrNoRows {
		return uuid.Nil, info, ErrNoRuns
	}
	if err != nil {
		return uuid.Nil, info, fmt.Errorf("querying latest run: %w", err)
	}

	info.Timestamp = float64(scrapedAt.UnixNano()) / 1e9
	return runID, info, nil
}

// Load returns the newest archived run as a snapshot
func (r *SnapshotRepository) Load(ctx context.Context) (*store.Snapshot, error) {
	runID, info, err := r.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	var offensiveTypes, defensiveTypes []string
	err = r.db.DB().QueryRowContext(ctx,
		`SELECT offensive_play_types, defensive_play_types FROM scrape_runs WHERE run_id = $1`, runID,
	).Scan(pq.Array(&offensiveTypes), pq.Array(&defensiveTypes))
	if err != nil {
		return nil, fmt.Errorf("querying run play types: %w", err)
	}

	offensive, err := r.loadOffensive(ctx, runID, offensiveTypes)
	if err != nil {
		return nil, err
	}
	defensive, err := r.loadDefensive(ctx, runID, defensiveTypes)
	if err != nil {
		return nil, err
	}

	return &store.Snapshot{
		Offensive: offensive,
		Defensive: defensive,
		Info:      info,
	}, nil
}

func (r *SnapshotRepository) loadOffensive(ctx context.Context, runID uuid.UUID, playTypes []string) ([]store.PlayTypeTable[store.OffensiveRecord], error) {
	query := `
		SELECT play_type_order, play_type, team, player, pts
		FROM offensive_play_stats
		WHERE run_id = $1
		ORDER BY play_type_order, row_order
	`

	rows, err := r.db.DB().QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying offensive stats: %w", err)
	}
	defer rows.Close()

	tables := seedTables[store.OffensiveRecord](playTypes)
	for rows.Next() {
		var (
			order int
			rec   store.OffensiveRecord
			pts   sql.NullFloat64
		)
		if err := rows.Scan(&order, &rec.PlayType, &rec.Team, &rec.Player, &pts); err != nil {
			return nil, fmt.Errorf("scanning offensive stat: %w", err)
		}
		rec.Points = store.NullFloat{Float64: pts.Float64, Valid: pts.Valid}

		tables = appendRow(tables, order, rec.PlayType, rec)
	}

	return tables, rows.Err()
}

func (r *SnapshotRepository) loadDefensive(ctx context.Context, runID uuid.UUID, playTypes []string) ([]store.PlayTypeTable[store.DefensiveRecord], error) {
	query := `
		SELECT play_type_order, play_type, rank, team, ppp
		FROM defensive_play_stats
		WHERE run_id = $1
		ORDER BY play_type_order, row_order
	`

	rows, err := r.db.DB().QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying defensive stats: %w", err)
	}
	defer rows.Close()

	tables := seedTables[store.DefensiveRecord](playTypes)
	for rows.Next() {
		var (
			order int
			rec   store.DefensiveRecord
			ppp   sql.NullFloat64
		)
		if err := rows.Scan(&order, &rec.PlayType, &rec.Rank, &rec.Team, &ppp); err != nil {
			return nil, fmt.Errorf("scanning defensive stat: %w", err)
		}
		rec.PPP = store.NullFloat{Float64: ppp.Float64, Valid: ppp.Valid}

		tables = appendRow(tables, order, rec.PlayType, rec)
	}

	return tables, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many went
func (r *SnapshotRepository) PruneRuns(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM scrape_runs
		WHERE run_id NOT IN (
			SELECT run_id FROM scrape_runs ORDER BY scraped_at DESC LIMIT $1
		)
	`

	res, err := r.db.DB().ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning scrape runs: %w", err)
	}
	return res.RowsAffected()
}

func playTypeNames[T any](tables []store.PlayTypeTable[T]) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.PlayType
	}
	return names
}

// seedTables creates one empty table per recorded play type, so tables
// without rows survive the round trip
func seedTables[T any](playTypes []string) []store.PlayTypeTable[T] {
	tables := make([]store.PlayTypeTable[T], len(playTypes))
	for i, name := range playTypes {
		tables[i].PlayType = name
	}
	return tables
}

// appendRow adds rec to the table at order. Runs archived before play
// types were recorded have no seeded tables, those grow from the rows.
func appendRow[T any](tables []store.PlayTypeTable[T], order int, playType string, rec T) []store.PlayTypeTable[T] {
	if order < len(tables) {
		tables[order].Rows = append(tables[order].Rows, rec)
		return tables
	}
	if n := len(tables); n == 0 || tables[n-1].PlayType != playType {
		tables = append(tables, store.PlayTypeTable[T]{PlayType: playType})
	}
	last := &tables[len(tables)-1]
	last.Rows = append(last.Rows, rec)
	return tables
}

func nullFloat(n store.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float64, Valid: n.Valid}
}
