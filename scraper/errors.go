package scraper

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403), usually an expired session.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// NetworkFailure is a failed retrieval of one collection page or category
// page. Page is zero for category requests.
type NetworkFailure struct {
	Page       int
	CategoryID int
	URL        string
	Err        error
}

func (e *NetworkFailure) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("fetch category %d: %v", e.CategoryID, e.Err)
	}
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// CrawlAborted is the terminal failure of a run. No CrawlResult is built.
type CrawlAborted struct {
	Stage string
	Page  int
	// Records counts the records collected before the abort.
	Records int
	Err     error
}

func (e *CrawlAborted) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("crawl aborted during %s at page %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("crawl aborted during %s: %v", e.Stage, e.Err)
}

func (e *CrawlAborted) Unwrap() error {
	return e.Err
}

// CategoryResolutionFailure is why a category fell back to its placeholder.
type CategoryResolutionFailure struct {
	CategoryID int
	Err        error
}

func (e *CategoryResolutionFailure) Error() string {
	return fmt.Sprintf("resolve category %d: %v", e.CategoryID, e.Err)
}

func (e *CategoryResolutionFailure) Unwrap() error {
	return e.Err
}

var errEmptyTitle = errors.New("category page has no usable title")

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	return "other"
}
