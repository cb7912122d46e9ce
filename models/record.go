// Package models defines data structures for the scraper.
package models

import (
	"strconv"
	"time"
)

// Record is one collected item row extracted from a collection page.
type Record struct {
	Identifier    string `json:"identifier"`
	SubjectName   string `json:"subjectName"`
	Quantity      int    `json:"quantity"`
	VariantSuffix string `json:"variantSuffix"`
	CategoryID    int    `json:"categoryId"`
	ItemID        int    `json:"itemId"`
}

// CategoryInfo is the resolved display metadata for one category (set).
type CategoryInfo struct {
	CategoryID  int
	DisplayName string
	Year        int
}

// PlaceholderName is the synthesized display name used when a category cannot be resolved.
func PlaceholderName(categoryID int) string {
	return "Set-" + strconv.Itoa(categoryID)
}

// PlaceholderCategory returns the fallback CategoryInfo for categoryID.
func PlaceholderCategory(categoryID int) CategoryInfo {
	return CategoryInfo{
		CategoryID:  categoryID,
		DisplayName: PlaceholderName(categoryID),
		Year:        0,
	}
}

// CategoryGroup holds the records of one category in encounter order.
type CategoryGroup struct {
	CategoryID int      `json:"categoryId"`
	Name       string   `json:"name"`
	Year       int      `json:"year"`
	ItemCount  int      `json:"itemCount"`
	Items      []Record `json:"items"`
}

// CrawlResult is the payload delivered to the importer.
type CrawlResult struct {
	TotalItems      int             `json:"totalItems"`
	TotalCategories int             `json:"totalCategories"`
	Categories      []CategoryGroup `json:"categories"`
}

// Estimate sources reported by the record count estimator.
const (
	EstimateFromRecordsParam = "records_param"
	EstimateFromItemText     = "item_text"
	EstimateFromPagination   = "pagination"
	EstimateFallback         = "fallback"
)

// Estimate is the best-effort total item count inferred from the seed page.
type Estimate struct {
	Total  int
	Source string
}

// PageFailure describes a collection page that could not be fetched.
type PageFailure struct {
	Page int
	Kind string
	Err  string
}

// CategoryFailure describes a category whose metadata fell back to the placeholder.
type CategoryFailure struct {
	CategoryID int
	Err        string
}

// Progress stages.
const (
	StageCollection = "collection"
	StageCategories = "categories"
)

// Progress is a snapshot emitted after every step of a run.
type Progress struct {
	Stage   string
	Step    int
	Total   int
	Records int
}

// RunSummary holds run diagnostics. It is never part of the delivered payload.
type RunSummary struct {
	RunID            string
	StartTime        time.Time
	EndTime          time.Time
	Estimate         Estimate
	PagesPlanned     int
	PagesFetched     int
	RequestCount     int
	RetryCount       int
	FailedPages      []PageFailure
	FailedCategories []CategoryFailure
	ErrorsByType     map[string]int
}
