package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fortuna/matchups/internal/config"
	"github.com/fortuna/matchups/internal/ingest"
	"github.com/fortuna/matchups/internal/ingest/nbastats"
	"github.com/fortuna/matchups/internal/store"
	"github.com/fortuna/matchups/internal/store/repository"
)

const (
	appName    = "matchups-scrape"
	appVersion = "1.0.0"
)

func main() {
	log.Printf("=== %s v%s ===", appName, appVersion)

	config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var (
		cacheDir    = flag.String("dir", cfg.Cache.Dir, "Directory for the cache JSON files")
		dsn         = flag.String("dsn", cfg.Database.DSN, "Postgres DSN for the run archive (empty disables)")
		concurrency = flag.Int("concurrency", cfg.Scrape.Concurrency, "Pages loaded in parallel")
		retries     = flag.Int("retries", cfg.Scrape.MaxRetries, "Retries per page")
		keep        = flag.Int("keep", cfg.Scrape.KeepRuns, "Archived runs to keep (0 keeps all)")
		only        = flag.String("only", "", "Comma-separated play types to scrape (default: all)")
		showBrowser = flag.Bool("show-browser", false, "Run Chrome with a visible window")
		list        = flag.Bool("list", false, "List play types and exit")
	)

	flag.Parse()

	if *list {
		printCatalog()
		return
	}

	scrapeCfg := nbastats.DefaultConfig()
	scrapeCfg.Concurrency = *concurrency
	scrapeCfg.MaxRetries = *retries
	scrapeCfg.RetryDelay = cfg.Scrape.RetryDelay

	if *only != "" {
		scrapeCfg.Offensive, scrapeCfg.Defensive, err = selectPlayTypes(*only)
		if err != nil {
			log.Fatalf("select play types: %v", err)
		}
	}

	clientCfg := nbastats.DefaultClientConfig()
	clientCfg.PageTimeout = cfg.Scrape.PageTimeout
	clientCfg.MinInterval = cfg.Scrape.Interval
	clientCfg.ExecPath = cfg.Scrape.ChromePath
	clientCfg.ShowBrowser = *showBrowser

	client, err := nbastats.NewClient(clientCfg)
	if err != nil {
		log.Fatalf("start browser: %v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := ingest.NewJob(nbastats.NewScraper(client, scrapeCfg), store.NewFileStore(*cacheDir))

	if *dsn != "" {
		db, err := store.NewDatabase(*dsn)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		job.WithArchive(repository.NewSnapshotRepository(db), *keep)
	}

	snapshot, err := job.Run(ctx)
	if err != nil {
		log.Fatalf("scrape failed: %v", err)
	}

	log.Printf("✓ Scrape completed successfully in %.1fs", snapshot.Info.TotalTimeSeconds)
	log.Printf("  Offensive: %d/%d play types", snapshot.Info.OffensiveTypes, len(scrapeCfg.Offensive))
	log.Printf("  Defensive: %d/%d play types", snapshot.Info.DefensiveTypes, len(scrapeCfg.Defensive))
}

// selectPlayTypes filters the catalog by name, case-insensitively
func selectPlayTypes(only string) ([]nbastats.PlayType, []nbastats.PlayType, error) {
	wanted := map[string]bool{}
	for _, name := range strings.Split(only, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			wanted[name] = true
		}
	}

	var offensive, defensive []nbastats.PlayType
	found := map[string]bool{}
	for _, pt := range nbastats.OffensivePlayTypes {
		if wanted[strings.ToLower(pt.Name)] {
			offensive = append(offensive, pt)
			found[strings.ToLower(pt.Name)] = true
		}
	}
	for _, pt := range nbastats.DefensivePlayTypes {
		if wanted[strings.ToLower(pt.Name)] {
			defensive = append(defensive, pt)
			found[strings.ToLower(pt.Name)] = true
		}
	}

	for name := range wanted {
		if !found[name] {
			return nil, nil, fmt.Errorf("unknown play type %q (see -list)", name)
		}
	}
	return offensive, defensive, nil
}

func printCatalog() {
	fmt.Println("Offensive play types:")
	for _, pt := range nbastats.OffensivePlayTypes {
		fmt.Printf("  %-14s %s\n", pt.Name, pt.URL)
	}
	fmt.Println("Defensive play types:")
	for _, pt := range nbastats.DefensivePlayTypes {
		fmt.Printf("  %-14s %s\n", pt.Name, pt.URL)
	}
}
