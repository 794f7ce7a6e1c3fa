package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupsTotal counts finished backup runs by outcome.
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_runs_total",
			Help: "Total number of finished backup runs by outcome",
		},
		[]string{"type", "outcome"},
	)

	// BackupDuration observes wall-clock duration of completed backups.
	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_run_duration_seconds",
			Help:    "Wall-clock duration of backup runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// BackupBytes observes total bytes captured per completed backup.
	BackupBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_size_bytes",
			Help:    "Total size in bytes of completed backups",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10),
		},
	)

	// ReapedBackupsTotal counts backups soft-deleted by the retention reaper.
	ReapedBackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_reaped_total",
			Help: "Backups soft-deleted by the retention reaper, by reason",
		},
		[]string{"reason"},
	)
)
