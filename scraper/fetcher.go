package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-collection/config"
)

// Fetcher retrieves raw pages from the catalog site. Implementations do not
// retry; the crawler and resolver own retry policy.
type Fetcher interface {
	FetchPage(ctx context.Context, page, records int) ([]byte, error)
	FetchCategory(ctx context.Context, categoryID int) ([]byte, error)
}

// CollyFetcher is a Fetcher backed by a synchronous colly collector that
// carries the member's session cookie.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher configured from cfg.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if strings.TrimSpace(cfg.Cookie) != "" {
		cookies, err := http.ParseCookie(cfg.Cookie)
		if err != nil {
			return nil, fmt.Errorf("parse session cookie: %w", err)
		}
		if err := collector.SetCookies(cfg.BaseURL, cookies); err != nil {
			return nil, fmt.Errorf("set session cookie: %w", err)
		}
	}

	f := &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}
	f.configureHandlers()
	return f, nil
}

// WithTransport swaps the HTTP transport, mainly for tests.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// PageURL builds the collection page request for page with the given records value.
func (f *CollyFetcher) PageURL(page, records int) string {
	q := url.Values{}
	q.Set("Filter", f.cfg.Filter)
	q.Set("Member", f.cfg.Member)
	q.Set("MODE", f.cfg.Mode)
	q.Set("Type", f.cfg.Type)
	q.Set("CollectionID", strconv.Itoa(f.cfg.CollectionID))
	q.Set("Records", strconv.Itoa(records))
	q.Set("PageIndex", strconv.Itoa(page))
	return strings.TrimSuffix(f.cfg.BaseURL, "/") + f.cfg.CollectionPath + "?" + q.Encode()
}

// CategoryURL builds the detail page request for a category.
func (f *CollyFetcher) CategoryURL(categoryID int) string {
	return strings.TrimSuffix(f.cfg.BaseURL, "/") + strings.TrimSuffix(f.cfg.CategoryPath, "/") + "/" + strconv.Itoa(categoryID)
}

// FetchPage retrieves one collection page.
func (f *CollyFetcher) FetchPage(ctx context.Context, page, records int) ([]byte, error) {
	target := f.PageURL(page, records)
	f.metrics.IncRequest("page")
	body, err := f.get(ctx, target)
	if err != nil {
		return nil, &NetworkFailure{Page: page, URL: target, Err: err}
	}
	return body, nil
}

// FetchCategory retrieves one category detail page.
func (f *CollyFetcher) FetchCategory(ctx context.Context, categoryID int) ([]byte, error) {
	target := f.CategoryURL(categoryID)
	f.metrics.IncRequest("category")
	body, err := f.get(ctx, target)
	if err != nil {
		return nil, &NetworkFailure{CategoryID: categoryID, URL: target, Err: err}
	}
	return body, nil
}

func (f *CollyFetcher) get(ctx context.Context, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, target, nil, reqCtx, nil)
	status, _ := reqCtx.GetAny("status").(int)
	if err != nil {
		return nil, classifyError(err, status)
	}
	if status >= http.StatusBadRequest {
		return nil, classifyError(nil, status)
	}
	body, _ := reqCtx.GetAny("body").([]byte)
	return body, nil
}

func (f *CollyFetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		slog.Debug("request", slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", r.StatusCode)
		r.Ctx.Put("body", r.Body)
		f.observe(r)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put("status", r.StatusCode)
		f.observe(r)
	})
}

func (f *CollyFetcher) observe(r *colly.Response) {
	if f.metrics == nil || r.Request == nil {
		return
	}
	if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
		f.metrics.ObserveDuration(time.Since(start))
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if err == nil {
			return wrapped
		}
	}

	return err
}
