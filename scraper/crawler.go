package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-collection/config"
	"github.com/aluiziolira/go-scrape-collection/models"
	"github.com/aluiziolira/go-scrape-collection/parser"
	"github.com/aluiziolira/go-scrape-collection/ratelimit"
)

// CrawlOutcome is everything the collection stage produced.
type CrawlOutcome struct {
	Records      []models.Record
	Estimate     models.Estimate
	PagesPlanned int
	PagesFetched int
	Failures     []models.PageFailure
}

// Crawler walks the collection pages in ascending order, one request at a time.
type Crawler struct {
	cfg        *config.Config
	fetcher    Fetcher
	pages      *ratelimit.Scheduler
	retry      *retrier
	metrics    *Metrics
	logger     *slog.Logger
	onProgress func(models.Progress)
}

// Crawl fetches page 1, sizes the crawl from it, then fetches the remaining
// pages. Failures on later pages are recorded and skipped; a page 1 failure
// aborts with no outcome.
func (c *Crawler) Crawl(ctx context.Context) (*CrawlOutcome, error) {
	body, err := c.fetchPage(ctx, 1, c.cfg.SeedRecords)
	if err != nil {
		return nil, &CrawlAborted{Stage: models.StageCollection, Page: 1, Err: err}
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return nil, &CrawlAborted{Stage: models.StageCollection, Page: 1, Err: err}
	}

	out := &CrawlOutcome{Records: make([]models.Record, 0)}
	out.Estimate = parser.EstimateTotal(doc, c.cfg.PageSize)
	if out.Estimate.Source == models.EstimateFallback {
		c.logger.Warn("no record count marker on first page, assuming a single page",
			slog.Int("page_size", c.cfg.PageSize),
		)
	}

	pages := parser.PageCount(out.Estimate.Total, c.cfg.PageSize)
	if pages > c.cfg.MaxPages {
		c.logger.Warn("page count capped",
			slog.Int("estimated_pages", pages),
			slog.Int("max_pages", c.cfg.MaxPages),
		)
		pages = c.cfg.MaxPages
	}
	out.PagesPlanned = pages
	c.logger.Info("collection sized",
		slog.Int("estimated_records", out.Estimate.Total),
		slog.String("source", out.Estimate.Source),
		slog.Int("pages", pages),
	)

	c.appendPage(out, 1, parser.ParseCollectionPage(doc))

	for page := 2; page <= pages; page++ {
		if err := c.pages.Wait(ctx); err != nil {
			return out, &CrawlAborted{Stage: models.StageCollection, Page: page, Records: len(out.Records), Err: err}
		}

		body, err := c.fetchPage(ctx, page, out.Estimate.Total)
		if err != nil {
			if ctx.Err() != nil {
				return out, &CrawlAborted{Stage: models.StageCollection, Page: page, Records: len(out.Records), Err: err}
			}
			c.skipPage(out, page, errorTypeLabel(err), err)
			continue
		}

		doc, err := parser.NewDocument(body)
		if err != nil {
			c.skipPage(out, page, "parse", err)
			continue
		}
		c.appendPage(out, page, parser.ParseCollectionPage(doc))
	}

	return out, nil
}

func (c *Crawler) fetchPage(ctx context.Context, page, records int) ([]byte, error) {
	return c.retry.do(ctx, c.pages, fmt.Sprintf("page %d", page), func() ([]byte, error) {
		return c.fetcher.FetchPage(ctx, page, records)
	})
}

func (c *Crawler) appendPage(out *CrawlOutcome, page int, records []models.Record) {
	out.Records = append(out.Records, records...)
	out.PagesFetched++
	c.metrics.AddRecords(len(records))
	c.logger.Info("page complete",
		slog.Int("page", page),
		slog.Int("pages", out.PagesPlanned),
		slog.Int("page_records", len(records)),
		slog.Int("records", len(out.Records)),
	)
	c.report(out, page)
}

func (c *Crawler) skipPage(out *CrawlOutcome, page int, kind string, err error) {
	out.Failures = append(out.Failures, models.PageFailure{Page: page, Kind: kind, Err: err.Error()})
	c.metrics.IncPageFailure()
	c.logger.Error("page failed, continuing",
		slog.Int("page", page),
		slog.Int("pages", out.PagesPlanned),
		slog.String("category", kind),
		slog.Any("error", err),
	)
	c.report(out, page)
}

func (c *Crawler) report(out *CrawlOutcome, page int) {
	if c.onProgress == nil {
		return
	}
	c.onProgress(models.Progress{
		Stage:   models.StageCollection,
		Step:    page,
		Total:   out.PagesPlanned,
		Records: len(out.Records),
	})
}
