package scraper

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-collection/models"
	"github.com/aluiziolira/go-scrape-collection/parser"
	"github.com/aluiziolira/go-scrape-collection/ratelimit"
)

// Resolver looks up display names and years for the categories referenced by
// a run's records. Every category id is requested at most once per Resolver.
type Resolver struct {
	fetcher    Fetcher
	sched      *ratelimit.Scheduler
	retry      *retrier
	cleaner    *parser.TitleCleaner
	metrics    *Metrics
	logger     *slog.Logger
	onProgress func(models.Progress)

	// cache capacity always covers every id seen, so nothing is evicted.
	cache    *lru.Cache[int, models.CategoryInfo]
	capacity int
}

// DistinctCategoryIDs returns each category id once, in first-referenced order.
func DistinctCategoryIDs(records []models.Record) []int {
	seen := make(map[int]struct{})
	ids := make([]int, 0)
	for _, rec := range records {
		if _, ok := seen[rec.CategoryID]; ok {
			continue
		}
		seen[rec.CategoryID] = struct{}{}
		ids = append(ids, rec.CategoryID)
	}
	return ids
}

// Resolve returns a CategoryInfo for every category referenced by records.
// Lookups that fail get the placeholder and are listed in the failures. Only
// context cancellation stops the stage early.
func (r *Resolver) Resolve(ctx context.Context, records []models.Record) (map[int]models.CategoryInfo, []models.CategoryFailure, error) {
	ids := DistinctCategoryIDs(records)
	if err := r.reserve(len(ids)); err != nil {
		return nil, nil, err
	}

	infos := make(map[int]models.CategoryInfo, len(ids))
	var failures []models.CategoryFailure

	for i, id := range ids {
		if info, ok := r.cache.Get(id); ok {
			infos[id] = info
			r.report(i+1, len(ids), len(records))
			continue
		}

		if err := r.sched.Wait(ctx); err != nil {
			return infos, failures, err
		}

		info, err := r.resolveOne(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return infos, failures, ctxErr
			}
			failure := &CategoryResolutionFailure{CategoryID: id, Err: err}
			failures = append(failures, models.CategoryFailure{CategoryID: id, Err: failure.Error()})
			r.metrics.IncCategoryFallback()
			r.logger.Warn("category unresolved, using placeholder",
				slog.Int("step", i+1),
				slog.Int("categories", len(ids)),
				slog.Int("category_id", id),
				slog.Any("error", failure),
			)
			info = models.PlaceholderCategory(id)
		} else {
			r.logger.Info("category resolved",
				slog.Int("step", i+1),
				slog.Int("categories", len(ids)),
				slog.Int("category_id", id),
				slog.String("name", info.DisplayName),
				slog.Int("year", info.Year),
			)
		}

		r.cache.Add(id, info)
		infos[id] = info
		r.report(i+1, len(ids), len(records))
	}

	return infos, failures, nil
}

func (r *Resolver) resolveOne(ctx context.Context, id int) (models.CategoryInfo, error) {
	body, err := r.retry.do(ctx, r.sched, fmt.Sprintf("category %d", id), func() ([]byte, error) {
		return r.fetcher.FetchCategory(ctx, id)
	})
	if err != nil {
		return models.CategoryInfo{}, err
	}

	doc, err := parser.NewDocument(body)
	if err != nil {
		return models.CategoryInfo{}, err
	}
	name, year := r.cleaner.ParseCategoryTitle(doc)
	if name == "" {
		return models.CategoryInfo{}, errEmptyTitle
	}
	return models.CategoryInfo{CategoryID: id, DisplayName: name, Year: year}, nil
}

func (r *Resolver) reserve(n int) error {
	need := n
	if r.cache != nil {
		need += r.cache.Len()
	}
	if need < 1 {
		need = 1
	}

	if r.cache == nil {
		cache, err := lru.New[int, models.CategoryInfo](need)
		if err != nil {
			return fmt.Errorf("create category cache: %w", err)
		}
		r.cache = cache
		r.capacity = need
		return nil
	}
	if need > r.capacity {
		r.cache.Resize(need)
		r.capacity = need
	}
	return nil
}

func (r *Resolver) report(step, total, records int) {
	if r.onProgress == nil {
		return
	}
	r.onProgress(models.Progress{
		Stage:   models.StageCategories,
		Step:    step,
		Total:   total,
		Records: records,
	})
}
