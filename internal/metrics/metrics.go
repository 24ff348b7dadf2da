package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_tasks_submitted_total",
		Help: "Total number of tasks accepted",
	})

	TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_downloader_tasks_rejected_total",
		Help: "Total number of submissions rejected before reaching the registry",
	}, []string{"reason"})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_tasks_completed_total",
		Help: "Total number of tasks completed",
	})

	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_downloader_tasks_failed_total",
		Help: "Total number of tasks failed, by error category",
	}, []string{"category"})

	TasksDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_tasks_discarded_total",
		Help: "Job results dropped because the task was removed while running",
	})

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video_downloader_tasks_in_flight",
		Help: "Number of extraction jobs currently running",
	})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_downloader_extraction_duration_seconds",
		Help:    "Extraction engine call duration in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_download_bytes_total",
		Help: "Total bytes of completed downloads",
	})

	CleanupRecordsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_cleanup_records_removed_total",
		Help: "Total number of expired task records removed",
	})

	CleanupFilesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_downloader_cleanup_files_removed_total",
		Help: "Total number of files removed by cleanup, by reason",
	}, []string{"reason"})

	CleanupBytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_cleanup_bytes_freed_total",
		Help: "Total bytes freed by cleanup",
	})

	CleanupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_cleanup_errors_total",
		Help: "Total number of per-entry cleanup failures",
	})

	CleanupSweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_cleanup_sweep_failures_total",
		Help: "Total number of cleanup sweeps aborted before finishing",
	})

	CleanupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_downloader_cleanup_duration_seconds",
		Help:    "Cleanup sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
