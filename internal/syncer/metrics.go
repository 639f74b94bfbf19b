package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pagesTotal counts synced pages by action (created, updated, skipped, failed).
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisync_pages_total",
		Help: "Pages synchronized by action",
	}, []string{"action", "dry_run"})

	// unitErrorsTotal counts aborted units by error kind.
	unitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisync_unit_errors_total",
		Help: "Sync units aborted by error kind",
	}, []string{"kind"})

	placeholdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikisync_placeholders_created_total",
		Help: "Placeholder ancestor pages created",
	})

	createRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikisync_create_retries_total",
		Help: "Creates retried because the parent was not yet resolvable",
	})

	attachmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisync_attachments_total",
		Help: "Attachment uploads by result",
	}, []string{"result"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wikisync_pass_duration_seconds",
		Help:    "Duration of a full sync pass",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
	})
)
