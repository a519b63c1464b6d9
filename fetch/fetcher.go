package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"auction-sniper/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a comparison page is read; the researcher
// only keeps a short prefix anyway.
const maxBodyBytes = 1 << 20

var reWhitespace = regexp.MustCompile(`\s+`)

// Page is the readable content of a fetched comparison page.
type Page struct {
	Title string
	Text  string
}

// Fetcher retrieves a page's readable text. Plain HTTP suffices for
// comparison pages; only the auction catalogue itself needs a browser.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Error is a fetch failure carrying the HTTP status for retry classification.
type Error struct {
	URL        string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Class maps the HTTP status onto a retry class.
func (e *Error) Class() utils.ErrorClass {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return utils.ClassRateLimited
	case e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone:
		return utils.ClassNotFound
	case e.StatusCode >= 500:
		return utils.ClassTransient
	default:
		return utils.ClassPermanent
	}
}

// HTTPFetcher fetches pages with a bounded timeout and extracts their main
// content via readability, falling back to the raw document text.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads pageURL and returns its title and readable text.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &Error{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", pageURL, err)
	}

	return ExtractReadable(string(body), pageURL)
}

// ExtractReadable pulls the main content out of raw HTML. Readability strips
// navigation and boilerplate; goquery flattens what remains to plain text.
func ExtractReadable(rawHTML, pageURL string) (*Page, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url %q: %w", pageURL, err)
	}

	page := &Page{}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err == nil {
		page.Title = article.Title
		if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); derr == nil {
			page.Text = normalizeText(doc.Text())
		}
	}

	// Sparse pages defeat readability; fall back to the whole document.
	if page.Text == "" {
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
		if derr != nil {
			return nil, fmt.Errorf("fetch %s: parse html: %w", pageURL, derr)
		}
		if page.Title == "" {
			page.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		text := doc.Find("body").Text()
		if text == "" {
			text = doc.Text()
		}
		page.Text = normalizeText(text)
	}
	return page, nil
}

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}
