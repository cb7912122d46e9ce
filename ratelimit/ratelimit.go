// Package ratelimit spaces out requests to the upstream origin.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts wall time so waits can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scheduler enforces a minimum interval between consecutive sends using a
// single-token limiter. The token is spent at construction, so the first Wait
// also waits the full interval. Jitter stretches the interval of each Wait.
type Scheduler struct {
	clock    Clock
	interval time.Duration
	jitter   time.Duration
	limiter  *rate.Limiter
	rng      *rand.Rand

	mu sync.Mutex
}

// NewScheduler builds a scheduler waiting interval plus up to jitter between sends.
func NewScheduler(interval, jitter time.Duration, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.ReserveN(clock.Now(), 1)
	return &Scheduler{
		clock:    clock,
		interval: interval,
		jitter:   jitter,
		limiter:  limiter,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until the interval since the previous send has elapsed and
// claims the next send slot. Every request, retries included, goes through it.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.jitter > 0 && s.interval > 0 {
		extra := time.Duration(s.rng.Int63n(int64(s.jitter)))
		s.limiter.SetLimitAt(now, rate.Every(s.interval+extra))
	}

	r := s.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("ratelimit: reservation refused")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return ctx.Err()
	}
	if err := s.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(s.clock.Now())
		return err
	}
	return nil
}

// Pause sleeps for d on the scheduler's clock without claiming a send slot.
// Retry backoff uses it.
func (s *Scheduler) Pause(ctx context.Context, d time.Duration) error {
	return s.clock.Sleep(ctx, d)
}
