package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-collection/config"
	"github.com/aluiziolira/go-scrape-collection/ratelimit"
)

// requestStats is the per-run request bookkeeping shared by the crawl stages.
type requestStats struct {
	requests     int
	retries      int
	errorsByType map[string]int
}

func newRequestStats() *requestStats {
	return &requestStats{errorsByType: make(map[string]int)}
}

func (s *requestStats) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

// retrier re-issues a failed fetch up to MaxRetries times. Each retry waits
// out its backoff and then claims a send slot from the stage's scheduler, so
// retries keep the same spacing as first attempts.
type retrier struct {
	cfg     *config.Config
	metrics *Metrics
	logger  *slog.Logger
	stats   *requestStats
}

func (r *retrier) do(ctx context.Context, sched *ratelimit.Scheduler, target string, fetch func() ([]byte, error)) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		r.stats.requests++
		body, err := fetch()
		if err == nil {
			return body, nil
		}

		label := errorTypeLabel(err)
		r.stats.errorsByType[label]++
		r.metrics.IncError(label)

		if attempt > r.cfg.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		delay := r.backoff(attempt, err)
		r.stats.retries++
		r.metrics.IncRetries()
		r.logger.Warn("request failed, retrying",
			slog.String("target", target),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("category", label),
			slog.Any("error", err),
		)
		if err := sched.Pause(ctx, delay); err != nil {
			return nil, err
		}
		if err := sched.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// backoff doubles RetryBackoff per attempt up to RetryBackoffMax. Forbidden
// and rate-limited responses wait the maximum straight away.
func (r *retrier) backoff(attempt int, cause error) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	maxDelay := r.cfg.RetryBackoffMax
	var forbidden ErrForbidden
	var limited ErrRateLimited
	if maxDelay > 0 && (errors.As(cause, &forbidden) || errors.As(cause, &limited)) {
		return maxDelay
	}

	base := r.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
