package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auction-sniper/models"
	"auction-sniper/utils"
)

type fakeStore struct {
	mu     sync.Mutex
	lots   []*models.Lot
	resets int
}

func (f *fakeStore) InsertLot(_ context.Context, lot *models.Lot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot.ID = int64(len(f.lots) + 1)
	f.lots = append(f.lots, lot)
	return lot.ID, nil
}

func (f *fakeStore) UnanalyzedLots(_ context.Context, _ int) ([]*models.Lot, error) {
	return nil, nil
}

func (f *fakeStore) SetAnalysis(_ context.Context, _ int64, _ string) error { return nil }

func (f *fakeStore) FlaggedLots(_ context.Context) ([]*models.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Lot
	for _, lot := range f.lots {
		if lot.Analyzed() && !models.Dropped(lot.Analysis) {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeStore) AllLots(_ context.Context) ([]*models.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Lot(nil), f.lots...), nil
}

func (f *fakeStore) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.lots = nil
	return nil
}

func (f *fakeStore) Close() error { return nil }

func seededStore() *fakeStore {
	return &fakeStore{lots: []*models.Lot{
		{ID: 1, Name: "Clock", CurrentBid: "€100", URL: "https://a.example.com/1",
			Analysis: "Bargain: auction price incl. premium €130.00, estimated market value €1000.00."},
		{ID: 2, Name: "Vase", CurrentBid: "€50", URL: "https://a.example.com/2",
			Analysis: models.DroppedPrefix + " Not a significant bargain."},
		{ID: 3, Name: "Chair", CurrentBid: "N/A", URL: "https://a.example.com/3"},
	}}
}

func TestLotsEndpointFiltersDropped(t *testing.T) {
	server := NewServer(seededStore(), utils.NewLogger(), func(string) {})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lots", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var views []lotView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 1 || views[0].Name != "Clock" {
		t.Errorf("views = %+v; want only the flagged bargain", views)
	}
}

func TestCrawlEndpointResetsAndStarts(t *testing.T) {
	store := seededStore()
	started := make(chan string, 1)
	server := NewServer(store, utils.NewLogger(), func(url string) { started <- url })

	body := strings.NewReader(`{"start_url": "https://auctions.example.com/lot/1"}`)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crawl", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d; want 202", rec.Code)
	}

	select {
	case url := <-started:
		if url != "https://auctions.example.com/lot/1" {
			t.Errorf("crawl started with %q", url)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crawl was never started")
	}

	if store.resets != 1 {
		t.Errorf("store reset %d times; want 1", store.resets)
	}
}

func TestCrawlEndpointConflictsWithRunningCrawl(t *testing.T) {
	store := seededStore()
	release := make(chan struct{})
	server := NewServer(store, utils.NewLogger(), func(string) { <-release })
	defer close(release)

	// Boot-style crawl, no reset; it holds the guard until released.
	if err := server.StartCrawl(context.Background(), "https://auctions.example.com/boot", false); err != nil {
		t.Fatalf("first crawl: %v", err)
	}

	body := strings.NewReader(`{"start_url": "https://auctions.example.com/lot/1"}`)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crawl", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d; want 409 while a crawl is running", rec.Code)
	}
	if store.resets != 0 {
		t.Errorf("store reset %d times under a running crawl; want 0", store.resets)
	}
}

func TestCrawlEndpointRequiresStartURL(t *testing.T) {
	server := NewServer(seededStore(), utils.NewLogger(), func(string) {
		t.Error("crawl must not start without a start_url")
	})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestExportEndpointWritesCSV(t *testing.T) {
	server := NewServer(seededStore(), utils.NewLogger(), func(string) {})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lots.csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Clock") || strings.Contains(body, "Vase") {
		t.Errorf("csv should contain only flagged lots:\n%s", body)
	}
}
