package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortuna/matchups/internal/service"
	"github.com/fortuna/matchups/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotAt(ts float64) *store.Snapshot {
	return &store.Snapshot{
		Offensive: []store.PlayTypeTable[store.OffensiveRecord]{
			{PlayType: "Isolation", Rows: []store.OffensiveRecord{
				{Team: "DAL", Player: "Luka Dončić", Points: store.Float(8.4), PlayType: "Isolation"},
			}},
		},
		Info: store.CacheInfo{Timestamp: ts, OffensiveTypes: 1},
	}
}

// dirSource serves snapshots from a FileStore, like the file-backed API
func dirSource(t *testing.T) (*store.FileStore, *service.StatsService) {
	t.Helper()
	files := store.NewFileStore(t.TempDir())
	return files, service.NewStatsService(files)
}

func fileInfo(files *store.FileStore) InfoFunc {
	return func(context.Context) (store.CacheInfo, error) { return files.Info() }
}

func TestCheckForNewSnapshot(t *testing.T) {
	files, stats := dirSource(t)

	var reloads int
	stats.OnReload(func(context.Context, service.Status) { reloads++ })

	o := NewOrchestrator(stats, fileInfo(files), nil, nil)
	ctx := context.Background()

	assert.False(t, o.CheckForNewSnapshot(ctx), "no files yet")

	require.NoError(t, files.Save(snapshotAt(1700000000)))
	assert.True(t, o.CheckForNewSnapshot(ctx))
	assert.Equal(t, 1, reloads)

	assert.False(t, o.CheckForNewSnapshot(ctx), "same timestamp")

	require.NoError(t, files.Save(snapshotAt(1700086400)))
	assert.True(t, o.CheckForNewSnapshot(ctx))
	assert.Equal(t, 2, reloads)
	assert.InDelta(t, 1700086400, stats.Index().Info().Timestamp, 1e-9)
}

type flakyJob struct {
	files    *store.FileStore
	failures int32
	calls    atomic.Int32
}

func (j *flakyJob) Run(context.Context) (*store.Snapshot, error) {
	n := j.calls.Add(1)
	if n <= j.failures {
		return nil, errors.New("chromedp error: context deadline exceeded")
	}
	snap := snapshotAt(1700000000 + float64(n))
	return snap, j.files.Save(snap)
}

func TestRunScrape_RetriesThenReloads(t *testing.T) {
	files, stats := dirSource(t)
	job := &flakyJob{files: files, failures: 1}

	o := NewOrchestrator(stats, fileInfo(files), job, &Config{
		EnableDailyScrape: true,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
	})

	require.NoError(t, o.RunScrape(context.Background()))
	assert.Equal(t, int32(2), job.calls.Load())
	assert.True(t, stats.Index().Loaded())
}

func TestRunScrape_GivesUp(t *testing.T) {
	files, stats := dirSource(t)
	job := &flakyJob{files: files, failures: 10}

	o := NewOrchestrator(stats, fileInfo(files), job, &Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	require.Error(t, o.RunScrape(context.Background()))
	assert.Equal(t, int32(2), job.calls.Load())
	assert.False(t, stats.Index().Loaded())
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{"later today", time.Date(2025, 1, 10, 2, 30, 0, 0, loc), 4, time.Date(2025, 1, 10, 4, 0, 0, 0, loc)},
		{"passed today", time.Date(2025, 1, 10, 5, 0, 0, 0, loc), 4, time.Date(2025, 1, 11, 4, 0, 0, 0, loc)},
		{"exactly now", time.Date(2025, 1, 10, 4, 0, 0, 0, loc), 4, time.Date(2025, 1, 11, 4, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 1, 31, 23, 0, 0, 0, loc), 4, time.Date(2025, 2, 1, 4, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRun(tt.now, tt.hour))
		})
	}
}

func TestStartAndStop(t *testing.T) {
	files, stats := dirSource(t)
	require.NoError(t, files.Save(snapshotAt(1700000000)))

	reloaded := make(chan struct{}, 1)
	stats.OnReload(func(context.Context, service.Status) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	o := NewOrchestrator(stats, fileInfo(files), nil, &Config{ReloadInterval: 5 * time.Millisecond})

	go o.Start(context.Background())

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reloaded")
	}

	o.Stop()
	assert.True(t, stats.Index().Loaded())
}
