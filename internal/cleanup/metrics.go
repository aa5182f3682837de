package cleanup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediahost_cleanup_runs_total",
		Help: "Completed cleanup runs.",
	})
	deletedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediahost_cleanup_deleted_records_total",
		Help: "File records removed by cleanup, by status.",
	}, []string{"status"})
	objectDeleteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediahost_cleanup_object_delete_errors_total",
		Help: "Object deletions that failed during cleanup.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediahost_cleanup_run_duration_seconds",
		Help:    "Duration of a full cleanup run.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
