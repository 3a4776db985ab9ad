package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/fortuna/matchups/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct {
	snapshot *store.Snapshot
	err      error
}

func (s stubScraper) Run(context.Context) (*store.Snapshot, error) {
	return s.snapshot, s.err
}

type recordingArchive struct {
	saved   int
	keep    int
	saveErr error
}

func (a *recordingArchive) Save(context.Context, *store.Snapshot) (uuid.UUID, error) {
	if a.saveErr != nil {
		return uuid.Nil, a.saveErr
	}
	a.saved++
	return uuid.New(), nil
}

func (a *recordingArchive) PruneRuns(_ context.Context, keep int) (int64, error) {
	a.keep = keep
	return 0, nil
}

func sample() *store.Snapshot {
	return &store.Snapshot{
		Offensive: []store.PlayTypeTable[store.OffensiveRecord]{
			{PlayType: "Isolation", Rows: []store.OffensiveRecord{
				{Team: "DAL", Player: "Luka Dončić", Points: store.Float(8.4), PlayType: "Isolation"},
			}},
		},
		Info: store.CacheInfo{Timestamp: 1700000000, OffensiveTypes: 1},
	}
}

func TestJob_RunWritesFilesAndArchives(t *testing.T) {
	files := store.NewFileStore(t.TempDir())
	archive := &recordingArchive{}

	job := NewJob(stubScraper{snapshot: sample()}, files).WithArchive(archive, 7)
	snapshot, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Info.OffensiveTypes)

	loaded, err := files.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Luka Dončić", loaded.Offensive[0].Rows[0].Player)

	assert.Equal(t, 1, archive.saved)
	assert.Equal(t, 7, archive.keep)
}

func TestJob_ScrapeFailureKeepsFiles(t *testing.T) {
	files := store.NewFileStore(t.TempDir())
	require.NoError(t, files.Save(sample()))

	job := NewJob(stubScraper{err: errors.New("no play-type tables scraped")}, files)
	_, err := job.Run(context.Background())
	require.Error(t, err)

	info, err := files.Info()
	require.NoError(t, err)
	assert.InDelta(t, 1700000000, info.Timestamp, 1e-9)
}

func TestJob_ArchiveFailureIsNotFatal(t *testing.T) {
	files := store.NewFileStore(t.TempDir())
	archive := &recordingArchive{saveErr: errors.New("connection refused")}

	_, err := NewJob(stubScraper{snapshot: sample()}, files).WithArchive(archive, 7).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, archive.keep, "no prune after a failed save")
}
