// Package auction walks a paginated auction catalogue, persisting one lot
// record per page. Page rendering sits behind the PageLoader seam so the
// pagination state machine is testable without a browser.
package auction

import (
	"context"
	"net/url"
	"time"

	"auction-sniper/models"
	"auction-sniper/storage"
	"auction-sniper/utils"
)

// LotPage is the structured result of loading one catalogue page. Optional
// fields are filled with their documented fallbacks by the loader; NextURL is
// empty when the catalogue ends.
type LotPage struct {
	Name        string
	CurrentBid  string
	Description string
	NextURL     string
}

// PageLoader renders a lot page and extracts its fields.
type PageLoader interface {
	LoadLotPage(ctx context.Context, pageURL string) (*LotPage, error)
}

// Crawler is the producer loop: start page in, a finite sequence of stored
// lots out. A crawl always begins at its start URL; it is not restartable
// mid-sequence.
type Crawler struct {
	loader      PageLoader
	store       storage.LotStore
	logger      *utils.Logger
	rateLimitMs int
}

// NewCrawler wires a catalogue crawler.
func NewCrawler(loader PageLoader, store storage.LotStore, logger *utils.Logger, rateLimitMs int) *Crawler {
	return &Crawler{
		loader:      loader,
		store:       store,
		logger:      logger,
		rateLimitMs: rateLimitMs,
	}
}

// Crawl follows the catalogue's next links from startURL until there is no
// next link, maxItems lots are stored, or ctx is cancelled. A failed page
// load or insert skips that lot; pagination continues whenever a next link is
// known. Returns the number of lots stored.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxItems int) (int, error) {
	c.logger.Info("[crawler] starting at %s — max %d lots", startURL, maxItems)

	current := startURL
	stored := 0

	for current != "" && stored < maxItems {
		select {
		case <-ctx.Done():
			c.logger.Info("[crawler] stopping: %v", ctx.Err())
			return stored, ctx.Err()
		default:
		}

		page, err := c.loader.LoadLotPage(ctx, current)
		if err != nil {
			// Retries are already spent inside the loader, and the next link
			// only exists on the rendered page, so a lost page ends the
			// pagination chain. Lots stored so far are kept.
			c.logger.Error("[crawler] %s: %v — ending crawl", current, err)
			break
		}

		lot := &models.Lot{
			Name:        page.Name,
			CurrentBid:  page.CurrentBid,
			Description: page.Description,
			URL:         current,
		}
		if _, err := c.store.InsertLot(ctx, lot); err != nil {
			c.logger.Error("[crawler] persist %s: %v — skipping lot", current, err)
		} else {
			stored++
			c.logger.Info("[crawler] lot %d: %s — current bid: %s", lot.ID, lot.Name, lot.CurrentBid)
		}

		next := resolveNext(current, page.NextURL)
		if next == current {
			c.logger.Warn("[crawler] next link loops back to %s — ending crawl", current)
			break
		}
		current = next

		if current != "" && stored < maxItems {
			time.Sleep(time.Duration(c.rateLimitMs) * time.Millisecond)
		}
	}

	c.logger.Info("[crawler] done — stored %d lots", stored)
	return stored, nil
}

// resolveNext resolves a possibly relative next-link href against the page it
// was found on. Malformed links end the crawl rather than derailing it.
func resolveNext(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
