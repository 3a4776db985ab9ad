package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/matchups/internal/api/rest"
	"github.com/fortuna/matchups/internal/api/websocket"
	"github.com/fortuna/matchups/internal/cache"
	"github.com/fortuna/matchups/internal/config"
	"github.com/fortuna/matchups/internal/ingest"
	"github.com/fortuna/matchups/internal/ingest/nbastats"
	"github.com/fortuna/matchups/internal/publisher"
	"github.com/fortuna/matchups/internal/scheduler"
	"github.com/fortuna/matchups/internal/service"
	"github.com/fortuna/matchups/internal/store"
	"github.com/fortuna/matchups/internal/store/repository"
)

const (
	serviceName    = "matchups"
	serviceVersion = rest.Version
)

func main() {
	log.Printf("Starting %s v%s - Play-Type Matchup Service", serviceName, serviceVersion)

	config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files := store.NewFileStore(cfg.Cache.Dir)

	// Postgres archive (optional unless it is the snapshot source)
	var (
		db        *store.Database
		snapshots *repository.SnapshotRepository
	)
	if cfg.Database.DSN != "" {
		conn, err := connectDatabase(ctx, cfg.Database.DSN)
		switch {
		case err == nil:
			db = conn
			defer db.Close()
			snapshots = repository.NewSnapshotRepository(db)
		case cfg.Cache.Source == config.SourcePostgres:
			log.Fatalf("Failed to connect to database: %v", err)
		default:
			log.Printf("⚠️  Database unavailable, archiving disabled: %v", err)
		}
	}

	var (
		source service.Source = files
		info   scheduler.InfoFunc
	)
	if cfg.Cache.Source == config.SourcePostgres {
		source = snapshots
		info = func(ctx context.Context) (store.CacheInfo, error) {
			_, latest, err := snapshots.LatestRun(ctx)
			if errors.Is(err, repository.ErrNoRuns) {
				return latest, store.ErrCacheMissing
			}
			return latest, err
		}
	} else {
		info = func(context.Context) (store.CacheInfo, error) { return files.Info() }
	}
	log.Printf("✓ Snapshot source: %s", cfg.Cache.Source)

	stats := service.NewStatsService(source)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	stats.OnReload(func(_ context.Context, status service.Status) {
		hub.BroadcastSnapshotReloaded(status)
	})

	// Redis matchup cache and snapshot stream (optional)
	var (
		stream     publisher.Publisher = publisher.NopPublisher{}
		redisCache *cache.RedisCache
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, matchup cache disabled: %v", err)
		} else {
			redisCache = rc
			defer redisCache.Close()
			log.Println("✓ Connected to Redis")

			stats.WithCache(redisCache, cfg.Cache.MatchupTTL)
			stream = publisher.NewRedisStreamPublisher(redisCache.Client())
		}
	}
	stats.OnReload(func(ctx context.Context, status service.Status) {
		if err := stream.PublishSnapshotReloaded(ctx, status); err != nil {
			log.Printf("⚠️  Failed to publish snapshot event: %v", err)
		}
	})

	// Initial load (non-fatal - the API answers 503 until data exists)
	if _, err := stats.Reload(ctx); err != nil {
		if errors.Is(err, store.ErrCacheMissing) || errors.Is(err, repository.ErrNoRuns) {
			log.Printf("⚠️  No cached data found in %s. Run the scraper first.", files.Dir())
		} else {
			log.Printf("⚠️  Initial load failed: %v (continuing anyway)", err)
		}
	}

	// Daily scrape needs a browser, only start one when enabled
	var job scheduler.ScrapeJob
	if cfg.Scrape.EnableDaily {
		client, err := nbastats.NewClient(clientConfig(cfg.Scrape))
		if err != nil {
			log.Printf("⚠️  Could not start browser, daily scrape disabled: %v", err)
		} else {
			defer client.Close()

			scrapeJob := ingest.NewJob(nbastats.NewScraper(client, scraperConfig(cfg.Scrape)), files)
			if snapshots != nil {
				scrapeJob.WithArchive(snapshots, cfg.Scrape.KeepRuns)
			}
			job = scrapeJob
		}
	}

	sched := scheduler.NewOrchestrator(stats, info, job, &scheduler.Config{
		ReloadInterval:    cfg.Cache.ReloadInterval,
		EnableDailyScrape: cfg.Scrape.EnableDaily,
		DailyScrapeHour:   cfg.Scrape.DailyHour,
		MaxRetries:        cfg.Scrape.MaxRetries,
		RetryDelay:        5 * time.Minute,
	})
	go sched.Start(ctx)

	log.Println("✓ Scheduler started")

	wsHandler := websocket.NewHandler(hub, func() interface{} { return stats.Status() })
	handler := rest.NewHandler(stats).WithMetrics("websocket", hub.Metrics)
	if db != nil {
		handler.WithDependency("postgres", db)
	}
	if redisCache != nil {
		handler.WithDependency("redis", redisCache)
	}
	restServer := rest.NewServer(cfg.Server.Port, handler, wsHandler)
	go func() {
		log.Printf("Starting REST API server on port %s", cfg.Server.Port)
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("REST server error: %v", err)
		}
	}()

	log.Printf("✓ %s v%s started successfully", serviceName, serviceVersion)
	log.Printf("  REST API: http://0.0.0.0:%s", cfg.Server.Port)
	log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/cache", cfg.Server.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}

	cancel()
	log.Printf("%s stopped", serviceName)
}

func connectDatabase(ctx context.Context, dsn string) (*store.Database, error) {
	db, err := store.NewDatabase(dsn)
	if err != nil {
		return nil, err
	}
	log.Println("✓ Connected to database")

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("✓ Database migrations applied")
	return db, nil
}

func clientConfig(sc config.ScrapeConfig) nbastats.ClientConfig {
	cc := nbastats.DefaultClientConfig()
	cc.PageTimeout = sc.PageTimeout
	cc.MinInterval = sc.Interval
	cc.ExecPath = sc.ChromePath
	return cc
}

func scraperConfig(sc config.ScrapeConfig) nbastats.Config {
	c := nbastats.DefaultConfig()
	c.Concurrency = sc.Concurrency
	c.MaxRetries = sc.MaxRetries
	c.RetryDelay = sc.RetryDelay
	return c
}
