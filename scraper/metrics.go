package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry               *prometheus.Registry
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	RecordsScrapedTotal    prometheus.Counter
	RetriesTotal           prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
	PagesFailedTotal       prometheus.Counter
	CategoryFallbacksTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_scraper_requests_total",
			Help: "Total HTTP requests issued, by phase (page or category).",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collection_scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collection_scraper_records_scraped_total",
			Help: "Total number of records extracted from collection pages.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collection_scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_scraper_errors_total",
			Help: "Total number of request errors by type.",
		},
		[]string{"error_type"},
	)
	pagesFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collection_scraper_pages_failed_total",
			Help: "Collection pages skipped after exhausting retries.",
		},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collection_scraper_category_fallbacks_total",
			Help: "Categories that fell back to the placeholder name.",
		},
	)

	registry.MustRegister(requests, requestDuration, records, retries, errorsTotal, pagesFailed, fallbacks)

	return &Metrics{
		Registry:               registry,
		RequestsTotal:          requests,
		RequestDuration:        requestDuration,
		RecordsScrapedTotal:    records,
		RetriesTotal:           retries,
		ErrorsTotal:            errorsTotal,
		PagesFailedTotal:       pagesFailed,
		CategoryFallbacksTotal: fallbacks,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords adds n to the records scraped counter.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsScrapedTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncPageFailure counts a skipped collection page.
func (m *Metrics) IncPageFailure() {
	if m == nil {
		return
	}
	m.PagesFailedTotal.Inc()
}

// IncCategoryFallback counts a placeholder substitution.
func (m *Metrics) IncCategoryFallback() {
	if m == nil {
		return
	}
	m.CategoryFallbacksTotal.Inc()
}
