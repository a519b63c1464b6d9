package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"auction-sniper/fetch"
	"auction-sniper/models"
	"auction-sniper/search"
	"auction-sniper/utils"
)

const (
	// maxSearchResults is how many ranked URLs one search requests.
	maxSearchResults = 10
	// maxSources caps the (url, price) evidence pairs per estimate.
	maxSources = 3
	// pageCorpusCap bounds how much of each page feeds the corpus.
	pageCorpusCap = 2000
	// corpusCap bounds the combined text handed to the summarizer.
	corpusCap = 3000
)

// artRegexp detects art-like lots from a fixed vocabulary.
var artRegexp = regexp.MustCompile(`(?i)\b(artist|painting|oil|canvas|watercolour|print|drawing|lithograph|signed)\b`)

// excludePatterns drop known non-comparable listing sites from results.
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)easy.?live.?auction`),
}

// artMarketHosts is the allow-list applied to art lots: only established
// art-market sites count as comparables for them.
var artMarketHosts = []string{
	"invaluable.com",
	"artprice.com",
	"artnet.com",
	"mutualart.com",
	"christies.com",
	"sothebys.com",
}

// firstNumberRegexp pulls the first numeric token out of summarizer output.
var firstNumberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

// IsArtItem reports whether a lot reads like an artwork.
func IsArtItem(name, description string) bool {
	return artRegexp.MatchString(name + " " + description)
}

// MarketResearcher converts a lot's free text into a market estimate with
// supporting evidence.
type MarketResearcher interface {
	Research(ctx context.Context, name, description string, isArt bool) (models.MarketEstimate, error)
}

// Summarizer is the language-model capability the researcher depends on.
type Summarizer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Researcher implements MarketResearcher against live search, fetch, and
// summarization capabilities.
type Researcher struct {
	search     search.Client
	fetcher    fetch.Fetcher
	summarizer Summarizer
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewResearcher wires a Researcher from its capabilities.
func NewResearcher(sc search.Client, f fetch.Fetcher, s Summarizer, retry *utils.RetryConfig, logger *utils.Logger) *Researcher {
	return &Researcher{
		search:     sc,
		fetcher:    f,
		summarizer: s,
		retry:      retry,
		logger:     logger,
	}
}

// Research runs the full pipeline: generate a query, search, gather priced
// comparables and a bounded corpus, then ask the summarizer for a value.
// Search and fetch failures degrade to a smaller (possibly empty) corpus; the
// returned error is reserved for summarization-capability failures, which the
// caller records as an explicit failure analysis.
func (r *Researcher) Research(ctx context.Context, name, description string, isArt bool) (models.MarketEstimate, error) {
	query, err := r.BuildQuery(ctx, name, description, isArt)
	if err != nil {
		return models.MarketEstimate{}, fmt.Errorf("generate search query: %w", err)
	}
	r.logger.Debug("[researcher] query for %q: %s", name, query)

	sources, corpus := r.gather(ctx, query, isArt)
	return r.estimate(ctx, corpus, sources)
}

// BuildQuery asks the summarizer to turn the lot's text into a broad search
// query for comparable market values.
func (r *Researcher) BuildQuery(ctx context.Context, name, description string, isArt bool) (string, error) {
	var b strings.Builder
	b.WriteString("Given these item details, generate a broad web search query to find comparable market values. ")
	if isArt {
		b.WriteString("For artwork, include artist, medium, and subject. ")
	}
	fmt.Fprintf(&b, "\n\nTitle: %s\nDescription: %s\n\nReturn only the search query.", name, description)

	out, err := r.summarizer.Complete(ctx, b.String(), 0.5)
	if err != nil {
		return "", err
	}
	query := strings.TrimSpace(out)
	if query == "" {
		return "", fmt.Errorf("empty query from summarizer")
	}
	return query, nil
}

// gather searches for comparables and collects priced sources plus a bounded
// text corpus. Every failure here is logged and degrades to "fewer
// candidates"; the pipeline always proceeds to summarization.
func (r *Researcher) gather(ctx context.Context, query string, isArt bool) ([]models.Source, string) {
	var urls []string
	err := r.retry.Do("market-search", func() error {
		var serr error
		urls, serr = r.search.Search(ctx, query, maxSearchResults)
		return serr
	})
	if err != nil {
		r.logger.Warn("[researcher] search failed, continuing without candidates: %v", err)
		return nil, ""
	}

	var sources []models.Source
	var corpus strings.Builder

	for _, candidate := range urls {
		if len(sources) >= maxSources {
			break
		}
		if !validURL(candidate) || excluded(candidate) {
			continue
		}
		if isArt && !artMarketHost(candidate) {
			continue
		}

		page, err := r.fetcher.Fetch(ctx, candidate)
		if err != nil {
			// A single failed comparison fetch is skipped, not retried.
			r.logger.Debug("[researcher] skip %s: %v", candidate, err)
			continue
		}

		if price, ok := ExtractPrice(page.Text); ok {
			sources = append(sources, models.Source{URL: candidate, Price: price.String()})
		}

		if remain := corpusCap - corpus.Len(); remain > 0 {
			text := page.Text
			if len(text) > pageCorpusCap {
				text = text[:pageCorpusCap]
			}
			if len(text) > remain {
				text = text[:remain]
			}
			corpus.WriteString(text)
			corpus.WriteString(" ")
		}
	}

	return sources, strings.TrimSpace(corpus.String())
}

// estimate asks the summarizer for a single euro value over the corpus. An
// explicit "None" reply is a valid uncertain outcome, not an error.
func (r *Researcher) estimate(ctx context.Context, corpus string, sources []models.Source) (models.MarketEstimate, error) {
	prompt := "Based on the following listings, estimate the item's market value in euros " +
		"and briefly explain why. If uncertain, reply 'None' and briefly explain why.\n\n" + corpus

	reasoning, err := r.summarizer.Complete(ctx, prompt, 0.2)
	if err != nil {
		return models.MarketEstimate{Sources: sources}, fmt.Errorf("estimate market value: %w", err)
	}
	reasoning = strings.TrimSpace(reasoning)

	est := models.MarketEstimate{Reasoning: reasoning, Sources: sources}
	if uncertainReply(reasoning) {
		return est, nil
	}
	if value, ok := firstNumber(reasoning); ok {
		est.Value = value
		est.Valid = true
	}
	return est, nil
}

func uncertainReply(reasoning string) bool {
	return strings.HasPrefix(strings.ToLower(reasoning), "none")
}

// firstNumber parses the first numeric token of the reasoning as the
// estimate, tolerating thousands commas.
func firstNumber(reasoning string) (float64, bool) {
	m := firstNumberRegexp.FindString(strings.ReplaceAll(reasoning, ",", ""))
	if m == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func validURL(candidate string) bool {
	parsed, err := url.Parse(candidate)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func excluded(candidate string) bool {
	for _, pattern := range excludePatterns {
		if pattern.MatchString(candidate) {
			return true
		}
	}
	return false
}

func artMarketHost(candidate string) bool {
	for _, host := range artMarketHosts {
		if strings.Contains(candidate, host) {
			return true
		}
	}
	return false
}
