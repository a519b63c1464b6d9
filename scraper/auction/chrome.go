package auction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"auction-sniper/config"
	"auction-sniper/utils"
)

// lotPageJS extracts the lot fields and the next-page link in one pass.
// Selectors follow the catalogue's markup: the lot title heading, the
// client-rendered bid element, translated description paragraphs, and the
// rel=next pagination link.
const lotPageJS = `
	(function() {
		var result = {name: '', bid: '', description: '', nextUrl: ''};

		var nameEl = document.querySelector('h1.lot-desc-h1');
		result.name = nameEl ? nameEl.innerText.trim() : (document.title || '').trim();

		var bidEl = document.querySelector('#timedBid');
		if (bidEl) result.bid = bidEl.innerText.trim();

		var parts = [];
		var descEls = document.querySelectorAll('p.translate');
		for (var i = 0; i < descEls.length; i++) {
			var t = descEls[i].innerText.trim();
			if (t) parts.push(t);
		}
		result.description = parts.join(' ');

		var next = document.querySelector('a[rel="next"]');
		if (next) result.nextUrl = next.getAttribute('href') || '';

		return result;
	})()
`

// ChromeLoader renders catalogue pages in headless Chrome. The auction site
// fills the bid element client-side, so a plain HTTP fetch is not enough.
type ChromeLoader struct {
	allocCtx context.Context
	retry    *utils.RetryConfig
	logger   *utils.Logger

	pageTimeout time.Duration
	bidWait     time.Duration
}

// NewChromeLoader starts a shared browser allocator and returns the loader
// plus a cleanup function.
func NewChromeLoader(cfg *config.Config, logger *utils.Logger) (*ChromeLoader, func()) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[crawler] using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	loader := &ChromeLoader{
		allocCtx: silentCtx,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger:      logger,
		pageTimeout: 60 * time.Second,
		bidWait:     10 * time.Second,
	}
	cleanup := func() {
		cancelSilent()
		cancelAlloc()
	}
	return loader, cleanup
}

type lotPageData struct {
	Name        string `json:"name"`
	Bid         string `json:"bid"`
	Description string `json:"description"`
	NextURL     string `json:"nextUrl"`
}

// LoadLotPage navigates to pageURL in a fresh tab and extracts the lot
// fields. Missing optional fields degrade to their placeholders: title falls
// back to the page title then "Unnamed Lot", an unrendered bid becomes "N/A",
// a missing description stays empty.
func (l *ChromeLoader) LoadLotPage(ctx context.Context, pageURL string) (*LotPage, error) {
	var page LotPage

	err := l.retry.Do("load-lot-page", func() error {
		tabCtx, cancel := chromedp.NewContext(l.allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, l.pageTimeout)
		defer cancelTimeout()

		if err := chromedp.Run(tabCtx, chromedp.Navigate(pageURL)); err != nil {
			return fmt.Errorf("navigate %s: %w", pageURL, err)
		}

		// The bid renders client-side after load; wait for it briefly and
		// fall back to N/A instead of blocking the crawl.
		waitCtx, cancelWait := context.WithTimeout(tabCtx, l.bidWait)
		bidVisible := chromedp.Run(waitCtx,
			chromedp.WaitVisible("#timedBid", chromedp.ByID)) == nil
		cancelWait()
		if !bidVisible {
			l.logger.Debug("[crawler] %s: bid element never rendered", pageURL)
		}

		var raw lotPageData
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(lotPageJS, &raw)); err != nil {
			return fmt.Errorf("extract lot fields from %s: %w", pageURL, err)
		}

		if raw.Name == "" {
			raw.Name = "Unnamed Lot"
		}
		if !bidVisible || raw.Bid == "" {
			raw.Bid = "N/A"
		}

		page = LotPage{
			Name:        raw.Name,
			CurrentBid:  raw.Bid,
			Description: raw.Description,
			NextURL:     raw.NextURL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
