package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClaimSetNoDoubleClaim(t *testing.T) {
	s := NewClaimSet()

	if !s.Claim(42) {
		t.Error("first Claim should return true")
	}
	if s.Claim(42) {
		t.Error("second Claim of same ID should return false")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}

	s.Release(42)
	if !s.Claim(42) {
		t.Error("Claim after Release should return true")
	}
}

func TestClaimSetConcurrency(t *testing.T) {
	s := NewClaimSet()
	var claimed int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Claim(7) {
				atomic.AddInt64(&claimed, 1)
			}
		})
	}
	pool.Wait()

	if claimed != 1 {
		t.Errorf("expected exactly 1 successful claim, got %d", claimed)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds pool size 2", peak)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}
