package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fortuna/matchups/internal/matching"
	"github.com/fortuna/matchups/internal/store"
)

// Source loads the snapshot the service serves from
type Source interface {
	Load(ctx context.Context) (*store.Snapshot, error)
}

// ResponseCache memoizes assembled matchups between requests
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Status describes the loaded snapshot
type Status struct {
	Cached         bool     `json:"cached"`
	AgeSeconds     *float64 `json:"age_seconds"`
	CacheDate      *string  `json:"cache_date"`
	OffensiveTypes int      `json:"offensive_types"`
	DefensiveTypes int      `json:"defensive_types"`
}

// ReloadListener is told about every snapshot a reload swaps in
type ReloadListener func(ctx context.Context, status Status)

// StatsService serves lookups from the current index and swaps in a new
// index on reload. Readers never wait on a rebuild.
type StatsService struct {
	source Source

	mu    sync.RWMutex
	index *Index

	cache    ResponseCache
	cacheTTL time.Duration

	listeners []ReloadListener

	now func() time.Time
}

// NewStatsService creates a service with an empty index
func NewStatsService(source Source) *StatsService {
	return &StatsService{
		source: source,
		index:  NewIndex(nil),
		now:    time.Now,
	}
}

// WithCache enables the matchup response cache
func (s *StatsService) WithCache(cache ResponseCache, ttl time.Duration) *StatsService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// WithClock overrides the clock used for cache age
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// OnReload registers fn to run after each successful Reload. Register
// listeners before serving.
func (s *StatsService) OnReload(fn ReloadListener) *StatsService {
	s.listeners = append(s.listeners, fn)
	return s
}

// Reload loads a fresh snapshot from the source and swaps it in. On error
// the current index is kept.
func (s *StatsService) Reload(ctx context.Context) (Status, error) {
	snapshot, err := s.source.Load(ctx)
	if err != nil {
		return s.Status(), fmt.Errorf("loading snapshot: %w", err)
	}

	s.SetSnapshot(snapshot)
	status := s.Status()
	log.Printf("✓ Snapshot loaded: %d offensive, %d defensive play types (data from %s)",
		status.OffensiveTypes, status.DefensiveTypes, snapshot.Info.Time().Format(time.ANSIC))

	for _, fn := range s.listeners {
		fn(ctx, status)
	}
	return status, nil
}

// SetSnapshot indexes a snapshot and makes it current
func (s *StatsService) SetSnapshot(snapshot *store.Snapshot) {
	ix := NewIndex(snapshot)

	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
}

// Index returns the current index
func (s *StatsService) Index() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// FindPlayer looks a player up in the current index
func (s *StatsService) FindPlayer(ctx context.Context, name string) (*PlayerProfile, error) {
	return s.Index().FindPlayer(name)
}

// FindDefense looks a team up in the current index
func (s *StatsService) FindDefense(ctx context.Context, team string) (*DefenseProfile, error) {
	return s.Index().FindDefense(team)
}

// Matchup assembles a matchup, consulting the response cache when set.
// Cache failures are logged and never fail the request.
func (s *StatsService) Matchup(ctx context.Context, player, team string) (*Matchup, error) {
	ix := s.Index()
	if s.cache == nil {
		return ix.Matchup(player, team)
	}

	key := matchupKey(ix.Info(), player, team)

	var cached Matchup
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		log.Printf("⚠️  Matchup cache read failed for %s: %v", key, err)
	}
	if hit {
		return &cached, nil
	}

	m, err := ix.Matchup(player, team)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, m, s.cacheTTL); err != nil {
		log.Printf("⚠️  Matchup cache write failed for %s: %v", key, err)
	}
	return m, nil
}

// Status reports the current snapshot age and size
func (s *StatsService) Status() Status {
	ix := s.Index()

	status := Status{
		OffensiveTypes: ix.OffensiveTypes(),
		DefensiveTypes: ix.DefensiveTypes(),
	}
	if !ix.Loaded() || ix.Info().Timestamp == 0 {
		return status
	}

	scrapedAt := ix.Info().Time()
	age := s.now().Sub(scrapedAt).Seconds()
	date := scrapedAt.Format(time.ANSIC)

	status.Cached = true
	status.AgeSeconds = &age
	status.CacheDate = &date
	return status
}

// matchupKey is scoped to the snapshot so a reload never serves stale pairs
func matchupKey(info store.CacheInfo, player, team string) string {
	return fmt.Sprintf("matchups:%.3f:%s:%s", info.Timestamp, matching.Normalize(player), matching.TeamNeedle(team))
}
