// Package search provides the text-search capability: a query in, a ranked
// list of candidate URLs out. Failures carry a typed class so the retry
// policy never has to match on error message text.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"auction-sniper/utils"
)

// Client runs a text search and returns up to limit ranked result URLs.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Error is a search failure with an explicit retry classification.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("search: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("search: status %d", e.StatusCode)
}

// Class maps the API status onto a retry class.
func (e *Error) Class() utils.ErrorClass {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return utils.ClassRateLimited
	case e.StatusCode == http.StatusNotFound:
		return utils.ClassNotFound
	case e.StatusCode >= 500:
		return utils.ClassTransient
	default:
		return utils.ClassPermanent
	}
}

const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
}

// NewGoogleClient creates a search client with the given credentials and
// per-request timeout.
func NewGoogleClient(apiKey, engineID string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns up to limit result URLs for query, in rank order. The API
// caps a single request at 10 results, which matches the researcher's needs.
func (g *GoogleClient) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit > 10 {
		limit = 10
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		serr := &Error{StatusCode: resp.StatusCode}
		if parsed.Error != nil {
			serr.Message = parsed.Error.Message
		}
		return nil, serr
	}

	urls := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls, nil
}
