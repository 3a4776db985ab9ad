package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/fortuna/matchups/internal/store"
	"github.com/google/uuid"
)

// Scraper produces a fresh snapshot
type Scraper interface {
	Run(ctx context.Context) (*store.Snapshot, error)
}

// SnapshotWriter persists the snapshot the API reads
type SnapshotWriter interface {
	Save(snapshot *store.Snapshot) error
}

// Archive keeps scrape history. Implemented by repository.SnapshotRepository.
type Archive interface {
	Save(ctx context.Context, snapshot *store.Snapshot) (uuid.UUID, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
}

// Job scrapes, writes the cache files and optionally archives the run
type Job struct {
	scraper  Scraper
	files    SnapshotWriter
	archive  Archive
	keepRuns int
}

// NewJob creates a scrape job writing to files
func NewJob(scraper Scraper, files SnapshotWriter) *Job {
	return &Job{scraper: scraper, files: files}
}

// WithArchive also stores each run in archive, pruning to the newest keep
// runs when keep > 0
func (j *Job) WithArchive(archive Archive, keep int) *Job {
	j.archive = archive
	j.keepRuns = keep
	return j
}

// Run executes one scrape. The cache files are only replaced when the
// scrape produced data. An archive failure is logged, the files stay
// authoritative.
func (j *Job) Run(ctx context.Context) (*store.Snapshot, error) {
	snapshot, err := j.scraper.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scraping: %w", err)
	}

	if err := j.files.Save(snapshot); err != nil {
		return nil, fmt.Errorf("saving cache files: %w", err)
	}
	log.Printf("✓ Cache files written (%d offensive, %d defensive play types)",
		snapshot.Info.OffensiveTypes, snapshot.Info.DefensiveTypes)

	if j.archive == nil {
		return snapshot, nil
	}

	runID, err := j.archive.Save(ctx, snapshot)
	if err != nil {
		log.Printf("⚠️  Failed to archive scrape run: %v", err)
		return snapshot, nil
	}
	log.Printf("✓ Archived scrape run %s", runID)

	if j.keepRuns > 0 {
		pruned, err := j.archive.PruneRuns(ctx, j.keepRuns)
		if err != nil {
			log.Printf("⚠️  Failed to prune archived runs: %v", err)
		} else if pruned > 0 {
			log.Printf("  Pruned %d old runs", pruned)
		}
	}

	return snapshot, nil
}
