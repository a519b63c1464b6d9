package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-sniper/config"
	"auction-sniper/fetch"
	"auction-sniper/llm"
	"auction-sniper/scraper/auction"
	"auction-sniper/search"
	"auction-sniper/services"
	"auction-sniper/storage"
	"auction-sniper/utils"
	"auction-sniper/web"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	logger.Info("=== Auction Bargain Sniper starting ===")
	logger.Info("Config — batch: %d | workers: %d | poll: %ds | premium: %.2f | threshold: %.2f",
		cfg.BatchSize, cfg.MaxConcurrency, cfg.PollIntervalSec,
		cfg.BuyerPremiumRate, cfg.DiscountThreshold)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	fetchTimeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	searchClient := search.NewGoogleClient(cfg.SearchAPIKey, cfg.SearchEngineID, fetchTimeout)
	summarizer := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, 30*time.Second)
	fetcher := fetch.NewHTTPFetcher(fetchTimeout)

	searchRetry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	researcher := services.NewResearcher(searchClient, fetcher, summarizer, searchRetry, logger)
	evaluator := services.NewEvaluator(cfg.BuyerPremiumRate, cfg.DiscountThreshold)
	scheduler := services.NewScheduler(store, researcher, evaluator, logger,
		cfg.BatchSize, cfg.MaxConcurrency, cfg.RateLimitMs,
		time.Duration(cfg.PollIntervalSec)*time.Second)

	loader, stopBrowser := auction.NewChromeLoader(cfg, logger)
	defer stopBrowser()
	crawler := auction.NewCrawler(loader, store, logger, cfg.RateLimitMs)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go scheduler.Run(ctx)

	startCrawl := func(startURL string) {
		stored, err := crawler.Crawl(ctx, startURL, cfg.MaxItems)
		if err != nil {
			logger.Error("Crawl from %s failed after %d lots: %v", startURL, stored, err)
			return
		}
		logger.Info("Crawl from %s finished — %d lots stored", startURL, stored)
	}

	server := web.NewServer(store, logger, startCrawl)
	if cfg.StartURL != "" {
		// Through the server so the startup crawl shares its single-flight
		// guard with POST /crawl.
		if err := server.StartCrawl(ctx, cfg.StartURL, false); err != nil {
			logger.Error("Startup crawl from %s: %v", cfg.StartURL, err)
		}
	}
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Control surface listening on %s", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
