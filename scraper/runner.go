package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-collection/config"
	"github.com/aluiziolira/go-scrape-collection/models"
	"github.com/aluiziolira/go-scrape-collection/parser"
	"github.com/aluiziolira/go-scrape-collection/pipeline"
	"github.com/aluiziolira/go-scrape-collection/ratelimit"
)

// Runner executes complete runs: crawl, resolve categories, aggregate.
// Each Run builds its own stage state, so nothing leaks between runs.
type Runner struct {
	cfg        *config.Config
	fetcher    Fetcher
	clock      ratelimit.Clock
	Metrics    *Metrics
	logger     *slog.Logger
	onProgress func(models.Progress)
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock replaces the clock used for request spacing and retry backoff.
func WithClock(clock ratelimit.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithMetrics shares a metrics bundle, typically the fetcher's.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.Metrics = m
	}
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithProgress registers a callback invoked after every page and category.
func WithProgress(fn func(models.Progress)) Option {
	return func(r *Runner) {
		r.onProgress = fn
	}
}

// NewRunner builds a runner around fetcher.
func NewRunner(cfg *config.Config, fetcher Fetcher, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		clock:   ratelimit.SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one complete crawl. The summary is always returned, even when
// the run aborts; the result is nil on abort.
func (r *Runner) Run(ctx context.Context) (*models.CrawlResult, *models.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID))
	stats := newRequestStats()
	summary := &models.RunSummary{RunID: runID, StartTime: time.Now()}
	finish := func() {
		summary.EndTime = time.Now()
		summary.RequestCount = stats.requests
		summary.RetryCount = stats.retries
		summary.ErrorsByType = stats.snapshotErrors()
	}

	retry := &retrier{cfg: r.cfg, metrics: r.Metrics, logger: logger, stats: stats}

	crawler := &Crawler{
		cfg:        r.cfg,
		fetcher:    r.fetcher,
		pages:      ratelimit.NewScheduler(r.cfg.PageDelay, r.cfg.RandomDelay, r.clock),
		retry:      retry,
		metrics:    r.Metrics,
		logger:     logger,
		onProgress: r.onProgress,
	}

	logger.Info("starting collection crawl", slog.String("member", r.cfg.Member))
	outcome, err := crawler.Crawl(ctx)
	if outcome != nil {
		summary.Estimate = outcome.Estimate
		summary.PagesPlanned = outcome.PagesPlanned
		summary.PagesFetched = outcome.PagesFetched
		summary.FailedPages = outcome.Failures
	}
	if err != nil {
		finish()
		logger.Error("collection crawl aborted", slog.Any("error", err))
		return nil, summary, err
	}

	resolver := &Resolver{
		fetcher:    r.fetcher,
		sched:      ratelimit.NewScheduler(r.cfg.CategoryDelay, r.cfg.RandomDelay, r.clock),
		retry:      retry,
		cleaner:    parser.NewTitleCleaner(r.cfg.Type),
		metrics:    r.Metrics,
		logger:     logger,
		onProgress: r.onProgress,
	}

	infos, failures, err := resolver.Resolve(ctx, outcome.Records)
	summary.FailedCategories = failures
	if err != nil {
		finish()
		aborted := &CrawlAborted{Stage: models.StageCategories, Records: len(outcome.Records), Err: err}
		logger.Error("category resolution aborted", slog.Any("error", aborted))
		return nil, summary, aborted
	}

	result := pipeline.Aggregate(outcome.Records, infos)
	finish()

	logger.Info("run complete",
		slog.Int("records", result.TotalItems),
		slog.Int("categories", result.TotalCategories),
		slog.Int("failed_pages", len(summary.FailedPages)),
		slog.Int("failed_categories", len(summary.FailedCategories)),
		slog.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)),
	)
	return result, summary, nil
}
