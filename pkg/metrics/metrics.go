package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ScrapeRunsTotal counts finished scraper runs. status: success, failed
	ScrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Total number of scraper runs by outcome.",
		},
		[]string{"source", "status"},
	)

	ScrapeRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_run_duration_seconds",
			Help:    "Duration of scraper runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"source"},
	)

	// ScrapeRecordsTotal counts records by outcome: created, updated, skipped
	ScrapeRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_records_total",
			Help: "Total number of extracted records by upsert outcome.",
		},
		[]string{"source", "outcome"},
	)

	// SourceRequestsTotal counts upstream requests. outcome: ok, rate_limited, http_error, transport_error
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_requests_total",
			Help: "Total number of requests made to grant sources.",
		},
		[]string{"source", "outcome"},
	)

	RateLimitCooldownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_rate_limit_cooldowns_total",
			Help: "Total number of rate-limit cooldowns entered.",
		},
		[]string{"source"},
	)

	ExpiredGrantsClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expired_grants_closed_total",
			Help: "Total number of grants moved to closed by the expiry sweep.",
		},
	)

	SyncJobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_jobs_in_queue",
			Help: "Current number of sync jobs waiting in the queue.",
		},
	)
)
