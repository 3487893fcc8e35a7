package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Archive pipeline metrics (spec §4.7/§4.8 scan + chunk + store loop)
	ArchiveFilesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_files_scanned_total",
			Help: "Total number of files visited while walking archive source paths",
		},
	)

	ArchiveFilesUnchanged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_files_unchanged_total",
			Help: "Total number of files skipped via parent-snapshot metadata match",
		},
	)

	ArchiveFilesChanged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_files_changed_total",
			Help: "Total number of files re-chunked because content or metadata changed",
		},
	)

	ArchiveBytesChunked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_bytes_chunked_total",
			Help: "Total plaintext bytes passed through the content-defined chunker",
		},
	)

	ArchiveBlobsNew = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_blobs_new_total",
			Help: "Total chunk blobs written because their id was not already in the index",
		},
	)

	ArchiveBlobsDeduped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_archive_blobs_deduped_total",
			Help: "Total chunk blobs skipped because an identical id already existed",
		},
	)

	ArchiveSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_archive_skipped_total",
			Help: "Total archive entries skipped by reason (exclude, permission, special-file)",
		},
		[]string{"reason"},
	)

	ArchiveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_archive_duration_seconds",
			Help:    "Wall-clock time of a full archive run",
			Buckets: []float64{.1, .5, 1, 5, 30, 60, 300, 1800, 3600},
		},
	)

	// Restore pipeline metrics (spec §4.8 materialize loop)
	RestoreFilesRestored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_restore_files_restored_total",
			Help: "Total number of files written during restore",
		},
	)

	RestoreBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_restore_bytes_written_total",
			Help: "Total plaintext bytes written to the restore target",
		},
	)

	RestoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_restore_duration_seconds",
			Help:    "Wall-clock time of a full restore run",
			Buckets: []float64{.1, .5, 1, 5, 30, 60, 300, 1800, 3600},
		},
	)

	// Garbage collection metrics (spec §4.9 mark-sweep)
	GCPacksDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_gc_packs_deleted_total",
			Help: "Total packs removed because every blob they held was unreferenced",
		},
	)

	GCPacksRepacked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_gc_packs_repacked_total",
			Help: "Total packs rewritten because their live-byte fraction fell below the repack threshold",
		},
	)

	GCBytesReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_gc_bytes_reclaimed_total",
			Help: "Total encrypted bytes reclaimed by gc across deleted and repacked packs",
		},
	)

	GCDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_gc_duration_seconds",
			Help:    "Wall-clock time of a full mark-sweep cycle",
			Buckets: []float64{.1, .5, 1, 5, 30, 60, 300, 1800, 3600},
		},
	)

	// Repository-wide gauges, sampled by Collector
	RepositoryIndexedBlobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_repository_indexed_blobs",
			Help: "Number of blob locations currently tracked by the in-memory index",
		},
	)

	RepositoryIndexedPacks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_repository_indexed_packs",
			Help: "Number of distinct packs currently covered by the index",
		},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_backend_requests_total",
			Help: "Total backend operations by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(ArchiveFilesScanned)
	prometheus.MustRegister(ArchiveFilesUnchanged)
	prometheus.MustRegister(ArchiveFilesChanged)
	prometheus.MustRegister(ArchiveBytesChunked)
	prometheus.MustRegister(ArchiveBlobsNew)
	prometheus.MustRegister(ArchiveBlobsDeduped)
	prometheus.MustRegister(ArchiveSkippedTotal)
	prometheus.MustRegister(ArchiveDuration)

	prometheus.MustRegister(RestoreFilesRestored)
	prometheus.MustRegister(RestoreBytesWritten)
	prometheus.MustRegister(RestoreDuration)

	prometheus.MustRegister(GCPacksDeleted)
	prometheus.MustRegister(GCPacksRepacked)
	prometheus.MustRegister(GCBytesReclaimed)
	prometheus.MustRegister(GCDuration)

	prometheus.MustRegister(RepositoryIndexedBlobs)
	prometheus.MustRegister(RepositoryIndexedPacks)
	prometheus.MustRegister(BackendRequestsTotal)
}

// Handler returns the Prometheus HTTP handler, for commands that want to
// expose /metrics alongside a long-running operation (e.g. a scheduled gc).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
