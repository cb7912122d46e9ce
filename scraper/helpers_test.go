package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-collection/config"
	"github.com/aluiziolira/go-scrape-collection/ratelimit"
)

var errBoom = errors.New("boom")

type testRow struct {
	number     string
	name       string
	categoryID int
	itemID     int
}

// collectionHTML renders a collection page stating total items and holding rows.
func collectionHTML(total int, rows ...testRow) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if total > 0 {
		fmt.Fprintf(&b, "<p>Showing 1 to 100 of %d items</p>", total)
	}
	b.WriteString("<table>")
	for _, r := range rows {
		href := fmt.Sprintf("/ViewCard.cfm/sid/%d/cid/%d/card", r.categoryID, r.itemID)
		fmt.Fprintf(&b,
			`<tr><td><span class="badge">1</span></td><td></td><td><a href="%s">%s</a></td><td></td><td><a href="%s">%s</a></td></tr>`,
			href, r.number, href, r.name)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func categoryHTML(title string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body></body></html>", title)
}

// fakeFetcher serves canned pages and counts every call.
type fakeFetcher struct {
	mu sync.Mutex

	pages      map[int]string
	categories map[int]string

	// pageFailures is how many leading attempts fail per page; -1 fails forever.
	pageFailures map[int]int
	pageErr      error
	categoryErr  map[int]error

	// onPage runs after each page request.
	onPage func(page int)
	// clock, when set, stamps each page request into pageTimes.
	clock ratelimit.Clock

	pageCalls     []int
	pageTimes     []time.Time
	pageRecords   []int
	categoryCalls map[int]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:         make(map[int]string),
		categories:    make(map[int]string),
		pageFailures:  make(map[int]int),
		pageErr:       ErrTimeout{Err: context.DeadlineExceeded},
		categoryErr:   make(map[int]error),
		categoryCalls: make(map[int]int),
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page, records int) ([]byte, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, page)
	f.pageRecords = append(f.pageRecords, records)
	if f.clock != nil {
		f.pageTimes = append(f.pageTimes, f.clock.Now())
	}
	fail := f.pageFailures[page]
	if fail > 0 {
		f.pageFailures[page] = fail - 1
	}
	body, ok := f.pages[page]
	hook := f.onPage
	f.mu.Unlock()

	if hook != nil {
		defer hook(page)
	}
	if fail != 0 {
		return nil, &NetworkFailure{Page: page, Err: f.pageErr}
	}
	if !ok {
		return nil, &NetworkFailure{Page: page, Err: ErrNotFound{Err: errBoom}}
	}
	return []byte(body), nil
}

func (f *fakeFetcher) FetchCategory(ctx context.Context, categoryID int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls[categoryID]++
	if err := f.categoryErr[categoryID]; err != nil {
		return nil, &NetworkFailure{CategoryID: categoryID, Err: err}
	}
	body, ok := f.categories[categoryID]
	if !ok {
		return nil, &NetworkFailure{CategoryID: categoryID, Err: ErrNotFound{Err: errBoom}}
	}
	return []byte(body), nil
}

func (f *fakeFetcher) countPage(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pageCalls {
		if p == page {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Member = "tester"
	cfg.PageDelay = 2 * time.Second
	cfg.CategoryDelay = 4 * time.Second
	cfg.RandomDelay = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Second
	cfg.RetryBackoffMax = 8 * time.Second
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, cfg *config.Config, f Fetcher, opts ...Option) (*Runner, *ratelimit.FakeClock) {
	t.Helper()
	clock := ratelimit.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	base := []Option{WithClock(clock), WithLogger(discardLogger()), WithMetrics(NewMetrics())}
	return NewRunner(cfg, f, append(base, opts...)...), clock
}

func newTestRetrier(cfg *config.Config) *retrier {
	return &retrier{cfg: cfg, metrics: NewMetrics(), logger: discardLogger(), stats: newRequestStats()}
}
