package nbastats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/matchups/internal/store"
	"golang.org/x/sync/errgroup"
)

// ErrNothingScraped is returned when every page failed, so a good cache is
// never replaced by an empty one
var ErrNothingScraped = errors.New("no play-type tables scraped")

// Fetcher returns the rendered HTML of a stats page
type Fetcher interface {
	Fetch(ctx context.Context, url string, expandAll bool) (string, error)
}

// Config holds scrape configuration
type Config struct {
	Concurrency int           // Default: 1
	MaxRetries  int           // Default: 2
	RetryDelay  time.Duration // Default: 5s
	Offensive   []PlayType
	Defensive   []PlayType
}

// DefaultConfig scrapes the full catalog one page at a time
func DefaultConfig() Config {
	return Config{
		Concurrency: 1,
		MaxRetries:  2,
		RetryDelay:  5 * time.Second,
		Offensive:   OffensivePlayTypes,
		Defensive:   DefensivePlayTypes,
	}
}

// Scraper turns the play-type catalog into a Snapshot
type Scraper struct {
	fetcher Fetcher
	config  Config
	now     func() time.Time
}

// NewScraper creates a scraper over fetcher
func NewScraper(fetcher Fetcher, config Config) *Scraper {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Scraper{fetcher: fetcher, config: config, now: time.Now}
}

// WithClock overrides the clock used for cache timestamps
func (s *Scraper) WithClock(now func() time.Time) *Scraper {
	s.now = now
	return s
}

// Run scrapes all offensive then all defensive pages. A page that fails
// after its retries is logged and left out of the snapshot.
func (s *Scraper) Run(ctx context.Context) (*store.Snapshot, error) {
	started := s.now()

	log.Printf("→ Scraping %d offensive and %d defensive play types (concurrency: %d)",
		len(s.config.Offensive), len(s.config.Defensive), s.config.Concurrency)

	offensive := make([]*store.PlayTypeTable[store.OffensiveRecord], len(s.config.Offensive))
	defensive := make([]*store.PlayTypeTable[store.DefensiveRecord], len(s.config.Defensive))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for i, pt := range s.config.Offensive {
		g.Go(func() error {
			rows, err := s.scrapeOffensive(ctx, pt)
			if err != nil {
				log.Printf("  ❌ %s (offense): %v", pt.Name, err)
				return nil
			}
			log.Printf("  ✓ %s (offense): %d players", pt.Name, len(rows))
			offensive[i] = &store.PlayTypeTable[store.OffensiveRecord]{PlayType: pt.Name, Rows: rows}
			return nil
		})
	}

	for i, pt := range s.config.Defensive {
		g.Go(func() error {
			rows, err := s.scrapeDefensive(ctx, pt)
			if err != nil {
				log.Printf("  ❌ %s (defense): %v", pt.Name, err)
				return nil
			}
			log.Printf("  ✓ %s (defense): %d teams", pt.Name, len(rows))
			defensive[i] = &store.PlayTypeTable[store.DefensiveRecord]{PlayType: pt.Name, Rows: rows}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := &store.Snapshot{}
	for _, t := range offensive {
		if t != nil {
			snapshot.Offensive = append(snapshot.Offensive, *t)
		}
	}
	for _, t := range defensive {
		if t != nil {
			snapshot.Defensive = append(snapshot.Defensive, *t)
		}
	}

	if snapshot.Empty() {
		return nil, ErrNothingScraped
	}

	finished := s.now()
	snapshot.Info = store.CacheInfo{
		Timestamp:        float64(finished.UnixNano()) / float64(time.Second),
		OffensiveTypes:   len(snapshot.Offensive),
		DefensiveTypes:   len(snapshot.Defensive),
		TotalTimeSeconds: finished.Sub(started).Seconds(),
	}

	log.Printf("✓ Scrape complete in %v: %d/%d offensive, %d/%d defensive",
		finished.Sub(started).Round(time.Second),
		snapshot.Info.OffensiveTypes, len(s.config.Offensive),
		snapshot.Info.DefensiveTypes, len(s.config.Defensive))

	return snapshot, nil
}

func (s *Scraper) scrapeOffensive(ctx context.Context, pt PlayType) ([]store.OffensiveRecord, error) {
	table, err := s.fetchTable(ctx, pt, true)
	if err != nil {
		return nil, err
	}
	return OffensiveRows(table, pt.Name)
}

func (s *Scraper) scrapeDefensive(ctx context.Context, pt PlayType) ([]store.DefensiveRecord, error) {
	table, err := s.fetchTable(ctx, pt, false)
	if err != nil {
		return nil, err
	}
	return DefensiveRows(table, pt.Name)
}

// fetchTable fetches and parses one page, retrying fetch and parse failures
func (s *Scraper) fetchTable(ctx context.Context, pt PlayType, expandAll bool) (*Table, error) {
	attempts := s.config.MaxRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var html string
		html, err = s.fetcher.Fetch(ctx, pt.URL, expandAll)
		if err == nil {
			var table *Table
			table, err = ParseTable(html)
			if err == nil {
				return table, nil
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < attempts {
			log.Printf("  ⚠️  %s attempt %d/%d failed: %v. Retrying in %v...", pt.Name, attempt, attempts, err, s.config.RetryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
}
