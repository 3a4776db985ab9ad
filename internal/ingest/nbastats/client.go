package nbastats

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const (
	// TableSelector matches the stats table nba.com renders client side
	TableSelector = "table.Crom_table__p1iZz"

	// MinRequestInterval to prevent rate limiting
	MinRequestInterval = 2 * time.Second
)

// desktop user agents, one is picked per browser launch
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// allButtonSelectors are tried in order to switch the table to all rows
var allButtonSelectors = []string{
	"//button[text()='All']",
	"//button[contains(text(), 'All')]",
	"//button[@value='All']",
	"//button[contains(@class, 'DropDown') and contains(., 'All')]",
	"//button[contains(@aria-label, 'All')]",
}

// the page-size dropdown is a <select> whose "All" option has value -1
const selectAllScript = `(() => {
	const opt = document.querySelector("select option[value='-1']");
	if (!opt) return false;
	const sel = opt.parentElement;
	sel.value = "-1";
	sel.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
})()`

// ClientConfig tunes page loads
type ClientConfig struct {
	PageTimeout time.Duration
	SettleDelay time.Duration
	ExpandDelay time.Duration
	MinInterval time.Duration
	ExecPath    string
	ShowBrowser bool
}

// DefaultClientConfig mirrors the waits nba.com needs to render its tables
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PageTimeout: 60 * time.Second,
		SettleDelay: 3 * time.Second,
		ExpandDelay: 5 * time.Second,
		MinInterval: MinRequestInterval,
	}
}

// Client renders nba.com stats pages in headless Chrome. Each fetch runs in
// its own tab of one shared browser, so Client is safe for concurrent use.
type Client struct {
	cfg     ClientConfig
	limiter *rate.Limiter

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewClient starts a headless browser
func NewClient(cfg ClientConfig) (*Client, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.ShowBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(userAgents[rand.IntN(len(userAgents))]),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// an empty Run launches the browser
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	interval := cfg.MinInterval
	if interval <= 0 {
		interval = MinRequestInterval
	}

	return &Client{
		cfg:           cfg,
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down
func (c *Client) Close() {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// Fetch loads url and returns the rendered HTML once the stats table is
// visible. With expandAll it first switches the table to show every row.
func (c *Client) Fetch(ctx context.Context, url string, expandAll bool) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()

	tabCtx, cancel = context.WithTimeout(tabCtx, c.cfg.PageTimeout)
	defer cancel()

	// tie the tab to the caller's cancellation as well
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(url),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.WaitVisible(TableSelector, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}

	if expandAll {
		if err := c.expandAll(tabCtx); err != nil {
			log.Printf("  ⚠️  Could not switch %s to all rows, using current view: %v", url, err)
		}
	}

	var htmlContent string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}

	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned")
	}

	return htmlContent, nil
}

// expandAll clicks the first "All" control it finds and waits for rows
func (c *Client) expandAll(ctx context.Context) error {
	for _, sel := range allButtonSelectors {
		var nodes []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
			return err
		}
		if len(nodes) == 0 {
			continue
		}

		return chromedp.Run(ctx,
			chromedp.MouseClickNode(nodes[0]),
			chromedp.Sleep(c.cfg.ExpandDelay),
		)
	}

	var selected bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(selectAllScript, &selected)); err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("no 'All' control found")
	}

	return chromedp.Run(ctx, chromedp.Sleep(c.cfg.ExpandDelay))
}
