package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the counters.
const (
	OutcomeProcessed = "processed"
	OutcomeDropped   = "dropped"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
	OutcomeSaved     = "saved"
	OutcomeUploaded  = "uploaded"
	OutcomeSkipped   = "skipped"
)

var (
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ztf_alerts_total",
			Help: "Alerts consumed, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ztf_polls_total",
			Help: "Broker polls, by topic and result (message, timeout, error)",
		},
		[]string{"topic", "result"},
	)

	StampFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ztf_stamp_fetches_total",
			Help: "Stamp fetch attempts for an object, by outcome",
		},
		[]string{"outcome"},
	)

	SyncFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ztf_sync_files_total",
			Help: "Files visited by the sync job, by outcome",
		},
		[]string{"outcome"},
	)

	CatalogRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ztf_catalog_rows_total",
			Help: "Catalog rows written to the warehouse, by mode",
		},
		[]string{"mode"},
	)

	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ztf_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 14), // 0.5s to ~68min
		},
		[]string{"job", "status"},
	)
)
