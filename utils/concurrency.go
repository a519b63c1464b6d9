package utils

import (
	"sync"
	"time"
)

// WorkerPool manages a pool of goroutines with rate limiting. The analysis
// scheduler uses it to bound how many lots are researched at once.
type WorkerPool struct {
	maxWorkers  int
	rateLimitMs int
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		rateLimitMs: rateLimitMs,
		semaphore:   make(chan struct{}, maxWorkers),
		lastRequest: time.Now(),
	}
}

// Submit enqueues a job for execution in the pool.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	elapsed := time.Since(wp.lastRequest)
	if elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	wp.lastRequest = time.Now()
}

// ClaimSet is a thread-safe set of lot IDs currently claimed for analysis.
// It keeps overlapping scheduler polls from dispatching the same lot twice.
type ClaimSet struct {
	mu      sync.RWMutex
	claimed map[int64]struct{}
}

// NewClaimSet creates an empty ClaimSet.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{claimed: make(map[int64]struct{})}
}

// Claim returns true if the ID was newly claimed, false if already held.
func (s *ClaimSet) Claim(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claimed[id]; exists {
		return false
	}
	s.claimed[id] = struct{}{}
	return true
}

// Release gives a claim back, letting a later poll pick the lot up again.
func (s *ClaimSet) Release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, id)
}

// Contains returns true if the ID is currently claimed.
func (s *ClaimSet) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.claimed[id]
	return exists
}

// Size returns the number of claimed IDs.
func (s *ClaimSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claimed)
}
