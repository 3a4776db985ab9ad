package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fortuna/matchups/internal/service"
	"github.com/fortuna/matchups/internal/store"
)

// InfoFunc reads the metadata of the newest snapshot at the source without
// loading it
type InfoFunc func(ctx context.Context) (store.CacheInfo, error)

// ScrapeJob refreshes the snapshot source
type ScrapeJob interface {
	Run(ctx context.Context) (*store.Snapshot, error)
}

// Config holds scheduler configuration
type Config struct {
	ReloadInterval    time.Duration // Default: 1m, 0 disables the watcher
	EnableDailyScrape bool          // Default: false
	DailyScrapeHour   int           // Default: 4 (4 AM)
	MaxRetries        int           // Default: 2
	RetryDelay        time.Duration // Default: 5m
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		ReloadInterval:    time.Minute,
		EnableDailyScrape: false,
		DailyScrapeHour:   4,
		MaxRetries:        2,
		RetryDelay:        5 * time.Minute,
	}
}

// Orchestrator keeps the served snapshot fresh. It reloads when the source
// has a newer snapshot and can run the scraper once a day.
type Orchestrator struct {
	stats  *service.StatsService
	info   InfoFunc
	job    ScrapeJob
	config *Config
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator creates a new scheduler orchestrator. job may be nil when
// daily scraping is disabled.
func NewOrchestrator(stats *service.StatsService, info InfoFunc, job ScrapeJob, config *Config) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Orchestrator{
		stats:  stats,
		info:   info,
		job:    job,
		config: config,
		now:    time.Now,
	}
}

// Start runs scheduled tasks until ctx is canceled or Stop is called
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	defer close(done)

	o.mu.Lock()
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	log.Println("╔════════════════════════════════════════╗")
	log.Println("║   Matchups Scheduler Orchestrator      ║")
	log.Println("╚════════════════════════════════════════╝")
	log.Printf("Reload watcher: %v (interval: %v)", o.config.ReloadInterval > 0, o.config.ReloadInterval)
	log.Printf("Daily scrape: %v (at %02d:00)", o.dailyEnabled(), o.config.DailyScrapeHour)
	log.Println()

	finished := make(chan struct{}, 2)
	running := 0

	if o.config.ReloadInterval > 0 && o.info != nil {
		running++
		go func() {
			o.runReloadWatcher(ctx)
			finished <- struct{}{}
		}()
	}

	if o.dailyEnabled() {
		running++
		go func() {
			o.runDailyScrape(ctx)
			finished <- struct{}{}
		}()
	}

	<-ctx.Done()
	for ; running > 0; running-- {
		<-finished
	}
	log.Println("Scheduler orchestrator stopped")
}

// Stop cancels all tasks and waits for them to return
func (o *Orchestrator) Stop() {
	log.Println("Stopping scheduler orchestrator...")

	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	log.Println("✓ Scheduler orchestrator stopped")
}

func (o *Orchestrator) dailyEnabled() bool {
	return o.config.EnableDailyScrape && o.job != nil
}

// runReloadWatcher polls the source's snapshot timestamp
func (o *Orchestrator) runReloadWatcher(ctx context.Context) {
	log.Printf("→ Reload watcher started (interval: %v)", o.config.ReloadInterval)

	ticker := time.NewTicker(o.config.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("→ Reload watcher stopped")
			return
		case <-ticker.C:
			o.CheckForNewSnapshot(ctx)
		}
	}
}

// CheckForNewSnapshot reloads when the source timestamp differs from the
// served one. It reports whether a reload happened.
func (o *Orchestrator) CheckForNewSnapshot(ctx context.Context) bool {
	info, err := o.info(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMissing) {
			log.Printf("  ⚠️  Could not read snapshot info: %v", err)
		}
		return false
	}

	current := o.stats.Index().Info().Timestamp
	if info.Timestamp == 0 || info.Timestamp == current {
		return false
	}

	log.Printf("→ New snapshot detected (%s), reloading", info.Time().Format(time.ANSIC))
	if _, err := o.stats.Reload(ctx); err != nil {
		log.Printf("  ❌ Reload failed: %v", err)
		return false
	}
	return true
}

// runDailyScrape runs the scrape job once a day at the configured hour
func (o *Orchestrator) runDailyScrape(ctx context.Context) {
	log.Printf("→ Daily scrape scheduler started (runs at %02d:00 daily)", o.config.DailyScrapeHour)

	for {
		nextRun := NextRun(o.now(), o.config.DailyScrapeHour)
		waitDuration := nextRun.Sub(o.now())
		log.Printf("  Next daily scrape: %s (in %v)", nextRun.Format("2006-01-02 15:04:05"), waitDuration.Round(time.Second))

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("→ Daily scrape scheduler stopped")
			return
		case <-timer.C:
			log.Println()
			log.Println("═══ Daily Scrape Starting ═══")
			o.RunScrape(ctx)
			log.Println("═══ Daily Scrape Complete ═══")
			log.Println()
		}
	}
}

// NextRun returns the next time at hour:00 strictly after now
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunScrape runs the scrape job with retries and reloads on success
func (o *Orchestrator) RunScrape(ctx context.Context) error {
	startTime := time.Now()
	attempts := o.config.MaxRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err = o.job.Run(ctx)
		if err == nil {
			break
		}

		log.Printf("  ⚠️  Scrape attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt < attempts {
			log.Printf("  Retrying in %v...", o.config.RetryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.config.RetryDelay):
			}
		}
	}

	if err != nil {
		log.Printf("❌ All %d scrape attempts failed, keeping current snapshot", attempts)
		return err
	}

	if _, err := o.stats.Reload(ctx); err != nil {
		log.Printf("❌ Reload after scrape failed: %v", err)
		return err
	}

	log.Printf("✓ Daily scrape complete in %v", time.Since(startTime).Round(time.Second))
	return nil
}
