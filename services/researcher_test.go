package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"auction-sniper/fetch"
	"auction-sniper/search"
	"auction-sniper/utils"
)

type fakeSearch struct {
	urls  []string
	err   error
	calls int
}

func (f *fakeSearch) Search(_ context.Context, _ string, _ int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.urls, nil
}

type fakeFetcher struct {
	pages   map[string]*fetch.Page
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (*fetch.Page, error) {
	f.fetched = append(f.fetched, pageURL)
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, &fetch.Error{URL: pageURL, StatusCode: 404}
	}
	return page, nil
}

type fakeSummarizer struct {
	queryReply    string
	queryErr      error
	estimateReply string
	estimateErr   error
	lastEstimate  string
}

func (f *fakeSummarizer) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	if strings.Contains(prompt, "Return only the search query.") {
		return f.queryReply, f.queryErr
	}
	f.lastEstimate = prompt
	return f.estimateReply, f.estimateErr
}

func newTestResearcher(sc search.Client, f fetch.Fetcher, s Summarizer) *Researcher {
	logger := utils.NewLogger()
	retry := &utils.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: logger}
	return NewResearcher(sc, f, s, retry, logger)
}

func TestResearcherCollectsSourcesAndEstimate(t *testing.T) {
	sc := &fakeSearch{urls: []string{
		"https://a.example.com/1",
		"https://b.example.com/2",
		"https://c.example.com/3",
		"https://d.example.com/4",
		"https://e.example.com/5",
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://a.example.com/1": {Text: "Similar clock sold for €1,400 last year"},
		"https://b.example.com/2": {Text: "Listed at $1,600"},
		"https://c.example.com/3": {Text: "Auction result: £1,350"},
		"https://d.example.com/4": {Text: "Another at €1,500"},
		"https://e.example.com/5": {Text: "And one more, €1,450"},
	}}
	sum := &fakeSummarizer{
		queryReply:    "antique bracket clock comparable prices",
		estimateReply: "The market value is approximately €1,500 based on recent sales.",
	}

	r := newTestResearcher(sc, fetcher, sum)
	est, err := r.Research(context.Background(), "Bracket clock", "mahogany case", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !est.Valid || est.Value != 1500 {
		t.Errorf("estimate = %.2f valid=%v; want 1500 valid", est.Value, est.Valid)
	}
	if len(est.Sources) != 3 {
		t.Fatalf("sources = %d; want capped at 3", len(est.Sources))
	}
	if est.Sources[0].URL != "https://a.example.com/1" || est.Sources[0].Price != "€1400" {
		t.Errorf("first source = %+v", est.Sources[0])
	}
	// Only the first three pages should have been fetched.
	if len(fetcher.fetched) != 3 {
		t.Errorf("fetched %d pages; want 3", len(fetcher.fetched))
	}
}

func TestResearcherArtAllowList(t *testing.T) {
	sc := &fakeSearch{urls: []string{
		"https://www.ebay.com/itm/1",
		"https://www.artnet.com/artists/someone/lot",
		"https://blog.example.com/post",
		"https://www.christies.com/lot/2",
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://www.artnet.com/artists/someone/lot": {Text: "Hammer price €2,000"},
		"https://www.christies.com/lot/2":            {Text: "Realised €2,400"},
	}}
	sum := &fakeSummarizer{queryReply: "q", estimateReply: "Around €2,200 given recent results."}

	r := newTestResearcher(sc, fetcher, sum)
	est, err := r.Research(context.Background(), "Oil painting, signed", "canvas", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fetched := range fetcher.fetched {
		if !artMarketHost(fetched) {
			t.Errorf("fetched non-art-market page for art lot: %s", fetched)
		}
	}
	if len(est.Sources) != 2 {
		t.Errorf("sources = %d; want 2", len(est.Sources))
	}
}

func TestResearcherSkipsExcludedAndMalformedURLs(t *testing.T) {
	sc := &fakeSearch{urls: []string{
		"not a url",
		"https://www.easyliveauction.com/lot/1",
		"https://ok.example.com/1",
	}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://ok.example.com/1": {Text: "price €100"},
	}}
	sum := &fakeSummarizer{queryReply: "q", estimateReply: "About €100."}

	r := newTestResearcher(sc, fetcher, sum)
	if _, err := r.Research(context.Background(), "Thing", "", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "https://ok.example.com/1" {
		t.Errorf("fetched = %v; want only the valid, non-excluded URL", fetcher.fetched)
	}
}

func TestResearcherUncertainReply(t *testing.T) {
	sc := &fakeSearch{urls: []string{"https://a.example.com/1"}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://a.example.com/1": {Text: "nothing useful"},
	}}
	sum := &fakeSummarizer{
		queryReply:    "q",
		estimateReply: "None — the 2 listings give no comparable prices.",
	}

	r := newTestResearcher(sc, fetcher, sum)
	est, err := r.Research(context.Background(), "Mystery box", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if est.Valid {
		t.Errorf("estimate should be absent on an uncertain reply, got %.2f", est.Value)
	}
	if est.Reasoning == "" {
		t.Error("reasoning should be kept on an uncertain reply")
	}
}

func TestResearcherSearchFailureDegrades(t *testing.T) {
	sc := &fakeSearch{err: &search.Error{StatusCode: 400, Message: "bad request"}}
	fetcher := &fakeFetcher{}
	sum := &fakeSummarizer{queryReply: "q", estimateReply: "None — no listings to review."}

	r := newTestResearcher(sc, fetcher, sum)
	est, err := r.Research(context.Background(), "Chair", "", false)
	if err != nil {
		t.Fatalf("search failure must not abort the pipeline: %v", err)
	}

	if est.Valid || len(est.Sources) != 0 {
		t.Errorf("expected empty estimate, got %+v", est)
	}
	if sum.lastEstimate == "" {
		t.Error("summarizer should still be consulted with an empty corpus")
	}
	// A permanent search error is not retried.
	if sc.calls != 1 {
		t.Errorf("search calls = %d; want 1", sc.calls)
	}
}

func TestResearcherQueryGenerationFailure(t *testing.T) {
	sc := &fakeSearch{}
	sum := &fakeSummarizer{queryErr: errors.New("api unreachable")}

	r := newTestResearcher(sc, &fakeFetcher{}, sum)
	if _, err := r.Research(context.Background(), "Vase", "", false); err == nil {
		t.Fatal("expected an error when query generation fails")
	}
	if sc.calls != 0 {
		t.Errorf("search should not run without a query, got %d calls", sc.calls)
	}
}

func TestResearcherCorpusIsBounded(t *testing.T) {
	// z and j do not occur in the estimate prompt's fixed text, so counting
	// them isolates each page's contribution.
	sc := &fakeSearch{urls: []string{"https://a.example.com/1", "https://b.example.com/2"}}
	fetcher := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://a.example.com/1": {Text: strings.Repeat("z", 2500)},
		"https://b.example.com/2": {Text: strings.Repeat("j", 2500)},
	}}
	sum := &fakeSummarizer{queryReply: "q", estimateReply: "None — filler only."}

	r := newTestResearcher(sc, fetcher, sum)
	if _, err := r.Research(context.Background(), "Filler", "", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Count(sum.lastEstimate, "z"); got != pageCorpusCap {
		t.Errorf("page one contributed %d chars; want %d", got, pageCorpusCap)
	}
	if got := strings.Count(sum.lastEstimate, "j"); got == 0 || got >= pageCorpusCap {
		t.Errorf("page two contributed %d chars; want a bounded, non-zero remainder", got)
	}
}
