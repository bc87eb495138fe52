package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper scroll service.
// Metrics are organized by subsystem: syncs, snapshots, the paper feed, and
// stars and exports. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SyncsStarted counts the total number of catalog syncs initiated.
	SyncsStarted prometheus.Counter

	// SyncsCompleted counts the total number of syncs that finished successfully.
	SyncsCompleted prometheus.Counter

	// SyncsFailed counts the total number of syncs that ended in failure.
	SyncsFailed prometheus.Counter

	// SyncDuration observes the end-to-end duration of syncs in seconds.
	SyncDuration prometheus.Histogram

	// SnapshotsFetched counts journal-year snapshots fetched from the catalog.
	SnapshotsFetched prometheus.Counter

	// SnapshotsDeleted counts stale snapshots removed during reconciliation.
	SnapshotsDeleted prometheus.Counter

	// SnapshotItems observes the number of works per fetched snapshot.
	SnapshotItems prometheus.Histogram

	// PapersServed counts papers handed to clients, labeled by delivery path
	// ("buffered" when popped from the prefetch buffer, "direct" otherwise).
	PapersServed *prometheus.CounterVec

	// BufferSize tracks the current number of prefetched papers.
	BufferSize prometheus.Gauge

	// RefillWorkersStarted counts background refill workers spawned.
	RefillWorkersStarted prometheus.Counter

	// ResolutionAttempts counts DOI resolution attempts made by the feed.
	ResolutionAttempts prometheus.Counter

	// ResolutionFailures counts resolution attempts that failed or returned
	// a record unfit for display.
	ResolutionFailures prometheus.Counter

	// PapersDiscarded counts resolved records discarded for missing an
	// abstract or authors.
	PapersDiscarded prometheus.Counter

	// StarOperations counts star store operations, labeled by operation
	// ("star", "unstar").
	StarOperations *prometheus.CounterVec

	// ExportsTotal counts reference-manager export attempts.
	ExportsTotal prometheus.Counter

	// ExportsFailed counts export attempts that failed.
	ExportsFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Syncs
		SyncsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_started_total",
			Help:      "Total number of catalog syncs started",
		}),
		SyncsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_completed_total",
			Help:      "Total number of catalog syncs completed successfully",
		}),
		SyncsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_failed_total",
			Help:      "Total number of catalog syncs that failed",
		}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of catalog syncs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		// Snapshots
		SnapshotsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_fetched_total",
			Help:      "Total number of journal-year snapshots fetched",
		}),
		SnapshotsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_deleted_total",
			Help:      "Total number of stale snapshots deleted",
		}),
		SnapshotItems: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_items",
			Help:      "Number of works per fetched snapshot",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 500, 1000, 2000},
		}),

		// Feed
		PapersServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_served_total",
			Help:      "Total number of papers served by delivery path",
		}, []string{"path"}),
		BufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_size",
			Help:      "Current number of prefetched papers in the buffer",
		}),
		RefillWorkersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refill_workers_started_total",
			Help:      "Total number of buffer refill workers spawned",
		}),
		ResolutionAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_attempts_total",
			Help:      "Total number of DOI resolution attempts",
		}),
		ResolutionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_failures_total",
			Help:      "Total number of failed DOI resolution attempts",
		}),
		PapersDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discarded_total",
			Help:      "Total number of resolved papers discarded as unfit for display",
		}),

		// Stars and exports
		StarOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "star_operations_total",
			Help:      "Total number of star store operations by operation",
		}, []string{"operation"}),
		ExportsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of reference-manager export attempts",
		}),
		ExportsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_failed_total",
			Help:      "Total number of failed reference-manager exports",
		}),
	}
}

// RecordSyncStarted records that a sync has started.
func (m *Metrics) RecordSyncStarted() {
	m.SyncsStarted.Inc()
}

// RecordSyncCompleted records that a sync has completed.
func (m *Metrics) RecordSyncCompleted(durationSeconds float64) {
	m.SyncsCompleted.Inc()
	m.SyncDuration.Observe(durationSeconds)
}

// RecordSyncFailed records that a sync has failed.
func (m *Metrics) RecordSyncFailed(durationSeconds float64) {
	m.SyncsFailed.Inc()
	m.SyncDuration.Observe(durationSeconds)
}

// RecordSnapshotFetched records a fetched snapshot and its item count.
func (m *Metrics) RecordSnapshotFetched(itemCount int) {
	m.SnapshotsFetched.Inc()
	m.SnapshotItems.Observe(float64(itemCount))
}

// RecordSnapshotDeleted records a stale snapshot removal.
func (m *Metrics) RecordSnapshotDeleted() {
	m.SnapshotsDeleted.Inc()
}

// RecordPaperServed records a paper handed to a client by delivery path.
func (m *Metrics) RecordPaperServed(path string) {
	m.PapersServed.WithLabelValues(path).Inc()
}

// SetBufferSize records the current buffer occupancy.
func (m *Metrics) SetBufferSize(n int) {
	m.BufferSize.Set(float64(n))
}

// RecordRefillWorkerStarted records that a refill worker has been spawned.
func (m *Metrics) RecordRefillWorkerStarted() {
	m.RefillWorkersStarted.Inc()
}

// RecordResolutionAttempt records a DOI resolution attempt.
func (m *Metrics) RecordResolutionAttempt() {
	m.ResolutionAttempts.Inc()
}

// RecordResolutionFailure records a failed resolution attempt.
func (m *Metrics) RecordResolutionFailure() {
	m.ResolutionFailures.Inc()
}

// RecordPaperDiscarded records a resolved paper discarded as unfit.
func (m *Metrics) RecordPaperDiscarded() {
	m.PapersDiscarded.Inc()
}

// RecordStarOperation records a star store operation.
func (m *Metrics) RecordStarOperation(operation string) {
	m.StarOperations.WithLabelValues(operation).Inc()
}

// RecordExport records an export attempt and whether it failed.
func (m *Metrics) RecordExport(failed bool) {
	m.ExportsTotal.Inc()
	if failed {
		m.ExportsFailed.Inc()
	}
}
