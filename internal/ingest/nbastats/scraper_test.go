package nbastats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]int // url -> failures before success
	calls    map[string]int
	expanded map[string]bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    map[string]string{},
		failures: map[string]int{},
		calls:    map[string]int{},
		expanded: map[string]bool{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, expandAll bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[url]++
	f.expanded[url] = expandAll
	if f.calls[url] <= f.failures[url] {
		return "", errors.New("net::ERR_TIMED_OUT")
	}
	page, ok := f.pages[url]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return page, nil
}

func testConfig(offensive, defensive []PlayType) Config {
	return Config{
		Concurrency: 3,
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
		Offensive:   offensive,
		Defensive:   defensive,
	}
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

func TestScraper_Run(t *testing.T) {
	offense := []PlayType{
		{Name: "Isolation", URL: "https://stats.test/players/isolation"},
		{Name: "Transition", URL: "https://stats.test/players/transition"},
		{Name: "Cut", URL: "https://stats.test/players/cut"},
	}
	defense := []PlayType{
		{Name: "Isolation", URL: "https://stats.test/teams/isolation"},
		{Name: "Transition", URL: "https://stats.test/teams/transition"},
	}

	fetcher := newFakeFetcher()
	fetcher.pages[offense[0].URL] = statsPage(playerHeaders, []string{"Luka Dončić", "DAL", "70", "600", "1.02", "8.4"})
	fetcher.pages[offense[1].URL] = statsPage(playerHeaders, []string{"Luka Dončić", "DAL", "70", "300", "1.20", "5.1"})
	fetcher.failures[offense[1].URL] = 1
	// Cut never loads

	teamHeaders := []string{"TEAM", "PPP"}
	fetcher.pages[defense[0].URL] = statsPage(teamHeaders, []string{"Boston Celtics", "0.80"}, []string{"Denver Nuggets", "0.85"})
	fetcher.pages[defense[1].URL] = `<html><body>loading...</body></html>`

	start := time.Unix(1700000000, 0)
	scraper := NewScraper(fetcher, testConfig(offense, defense)).WithClock(steppingClock(start, 30*time.Second))

	snapshot, err := scraper.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Offensive, 2)
	assert.Equal(t, "Isolation", snapshot.Offensive[0].PlayType)
	assert.Equal(t, "Transition", snapshot.Offensive[1].PlayType, "retried page is kept")
	require.Len(t, snapshot.Defensive, 1)
	assert.Equal(t, "Isolation", snapshot.Defensive[0].PlayType)
	assert.Equal(t, 2, snapshot.Defensive[0].Rows[1].Rank)

	assert.Equal(t, 2, snapshot.Info.OffensiveTypes)
	assert.Equal(t, 1, snapshot.Info.DefensiveTypes)
	assert.InDelta(t, 1700000030, snapshot.Info.Timestamp, 1e-3)
	assert.InDelta(t, 30, snapshot.Info.TotalTimeSeconds, 1e-9)

	assert.Equal(t, 2, fetcher.calls[offense[2].URL], "one retry for a failing page")
	assert.Equal(t, 2, fetcher.calls[defense[1].URL], "parse failures are retried")
	assert.True(t, fetcher.expanded[offense[0].URL])
	assert.False(t, fetcher.expanded[defense[0].URL])
}

func TestScraper_NothingScraped(t *testing.T) {
	offense := []PlayType{{Name: "Isolation", URL: "https://stats.test/players/isolation"}}

	scraper := NewScraper(newFakeFetcher(), testConfig(offense, nil))
	_, err := scraper.Run(context.Background())
	assert.ErrorIs(t, err, ErrNothingScraped)
}

func TestScraper_Canceled(t *testing.T) {
	offense := []PlayType{{Name: "Isolation", URL: "https://stats.test/players/isolation"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scraper := NewScraper(newFakeFetcher(), testConfig(offense, nil))
	_, err := scraper.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
