package services

import (
	"context"
	"time"

	"auction-sniper/models"
	"auction-sniper/storage"
	"auction-sniper/utils"
)

// Scheduler is the consumer loop: it repeatedly claims batches of unanalyzed
// lots from the store, runs the research/evaluation pipeline on each with a
// bounded worker pool, and writes back terminal verdicts. It only talks to
// the crawler through the store.
type Scheduler struct {
	store      storage.LotStore
	researcher MarketResearcher
	evaluator  *Evaluator
	pool       *utils.WorkerPool
	claimed    *utils.ClaimSet
	logger     *utils.Logger

	batchSize    int
	pollInterval time.Duration
}

// NewScheduler wires an analysis scheduler.
func NewScheduler(store storage.LotStore, researcher MarketResearcher, evaluator *Evaluator,
	logger *utils.Logger, batchSize, maxWorkers, rateLimitMs int, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		researcher:   researcher,
		evaluator:    evaluator,
		pool:         utils.NewWorkerPool(maxWorkers, rateLimitMs),
		claimed:      utils.NewClaimSet(),
		logger:       logger,
		batchSize:    batchSize,
		pollInterval: pollInterval,
	}
}

// Run polls for work until ctx is cancelled. An empty poll backs off for the
// configured interval; nothing that happens to a single lot stops the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("[scheduler] started — batch size %d, poll interval %s", s.batchSize, s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[scheduler] stopping: %v", ctx.Err())
			return
		default:
		}

		dispatched, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error("[scheduler] poll failed: %v", err)
		}
		if dispatched == 0 {
			s.logger.Debug("[scheduler] no unanalyzed lots — waiting %s", s.pollInterval)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
		}
	}
}

// RunOnce claims one batch, analyzes it on the worker pool, and blocks until
// the whole batch is written back. Returns how many lots were dispatched.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	lots, err := s.store.UnanalyzedLots(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, lot := range lots {
		lot := lot
		if !s.claimed.Claim(lot.ID) {
			continue
		}
		dispatched++
		s.pool.Submit(func() { s.analyze(ctx, lot) })
	}
	s.pool.Wait()

	return dispatched, nil
}

func (s *Scheduler) analyze(ctx context.Context, lot *models.Lot) {
	// The claim only guards in-flight work. The analysis column decides
	// whether a lot comes back on the next poll, so the ID must be released
	// either way: a store reset recycles IDs, and a held claim would starve
	// the recycled lot forever.
	defer s.claimed.Release(lot.ID)

	analysis := s.verdictFor(ctx, lot)

	if err := s.store.SetAnalysis(ctx, lot.ID, analysis); err != nil {
		s.logger.Error("[scheduler] lot %d: write analysis: %v", lot.ID, err)
		return
	}
	s.logger.Info("[scheduler] lot %d (%s): %s", lot.ID, lot.Name, analysis)
}

// verdictFor produces the terminal analysis string for one lot. Every
// per-lot failure ends here as an inspectable value, never as a panic or a
// dead loop.
func (s *Scheduler) verdictFor(ctx context.Context, lot *models.Lot) string {
	if IsReproduction(lot.Name) {
		return models.Verdict{Kind: models.VerdictReproduction}.Analysis()
	}

	bid, ok := ExtractPrice(lot.CurrentBid)
	if !ok {
		return "Analysis failed: auction bid not parseable."
	}

	estimate, err := s.researcher.Research(ctx, lot.Name, lot.Description,
		IsArtItem(lot.Name, lot.Description))
	if err != nil {
		s.logger.Warn("[scheduler] lot %d: research failed: %v", lot.ID, err)
		return "Analysis failed: " + err.Error()
	}

	return s.evaluator.Evaluate(bid.Amount, estimate).Analysis()
}
