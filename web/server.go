// Package web is the control surface: it lists flagged lots and lets the
// user trigger a fresh crawl. The real presentation layer is an external
// collaborator; this stays a thin JSON/CSV API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"auction-sniper/services"
	"auction-sniper/storage"
	"auction-sniper/utils"
)

// ErrCrawlRunning is returned by StartCrawl while another crawl is in flight.
var ErrCrawlRunning = errors.New("a crawl is already running")

// Server exposes the HTTP control surface.
type Server struct {
	store      storage.LotStore
	logger     *utils.Logger
	startCrawl func(startURL string)
	crawling   atomic.Bool
}

// NewServer creates a Server. startCrawl runs one crawl synchronously; the
// server launches it in the background behind its single-flight guard.
func NewServer(store storage.LotStore, logger *utils.Logger, startCrawl func(startURL string)) *Server {
	return &Server{
		store:      store,
		logger:     logger,
		startCrawl: startCrawl,
	}
}

// StartCrawl launches a crawl in the background unless one is already
// running. With reset the store is cleared first, before any page loads.
// The boot-time crawl and the HTTP trigger both go through here, so the
// guard covers them together.
func (s *Server) StartCrawl(ctx context.Context, startURL string, reset bool) error {
	if !s.crawling.CompareAndSwap(false, true) {
		return ErrCrawlRunning
	}

	if reset {
		if err := s.store.Reset(ctx); err != nil {
			s.crawling.Store(false)
			return err
		}
	}

	go func() {
		defer s.crawling.Store(false)
		s.startCrawl(startURL)
	}()
	return nil
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/lots", s.handleLots).Methods(http.MethodGet)
	r.HandleFunc("/lots.csv", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/crawl", s.handleCrawl).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

type lotView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CurrentBid string `json:"current_bid"`
	URL        string `json:"url"`
	Analysis   string `json:"analysis"`
}

// handleLots lists analyzed lots that were not dropped — the bargains and
// explicit failures worth a human look.
func (s *Server) handleLots(w http.ResponseWriter, r *http.Request) {
	lots, err := s.store.FlaggedLots(r.Context())
	if err != nil {
		s.logger.Error("[web] list lots: %v", err)
		http.Error(w, "failed to list lots", http.StatusInternalServerError)
		return
	}

	views := make([]lotView, 0, len(lots))
	for _, lot := range lots {
		views = append(views, lotView{
			ID:         lot.ID,
			Name:       lot.Name,
			CurrentBid: lot.CurrentBid,
			URL:        lot.URL,
			Analysis:   lot.Analysis,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	lots, err := s.store.FlaggedLots(r.Context())
	if err != nil {
		s.logger.Error("[web] export lots: %v", err)
		http.Error(w, "failed to export lots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="flagged_lots.csv"`)
	if err := storage.WriteLotsCSV(w, lots); err != nil {
		s.logger.Error("[web] write csv: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	lots, err := s.store.AllLots(r.Context())
	if err != nil {
		s.logger.Error("[web] stats: %v", err)
		http.Error(w, "failed to build stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, services.BuildReport(lots))
}

type crawlRequest struct {
	StartURL string `json:"start_url"`
}

// handleCrawl resets the store and launches a fresh crawl from the supplied
// start URL.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StartURL == "" {
		http.Error(w, "start_url is required", http.StatusBadRequest)
		return
	}

	err := s.StartCrawl(r.Context(), req.StartURL, true)
	switch {
	case errors.Is(err, ErrCrawlRunning):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("[web] reset store: %v", err)
		http.Error(w, "failed to reset store", http.StatusInternalServerError)
		return
	}

	s.logger.Info("[web] crawl triggered from %s", req.StartURL)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "crawl started"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
