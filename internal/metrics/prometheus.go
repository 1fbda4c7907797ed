package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dotsalary"

// PrometheusRecorder exposes Recorder events as Prometheus collectors.
type PrometheusRecorder struct {
	uploads           *prometheus.CounterVec
	uploadRecords     prometheus.Histogram
	usersInserted     prometheus.Counter
	usersUpdated      prometheus.Counter
	recordsSkipped    prometheus.Counter
	reconcileDuration prometheus.Histogram
	queries           *prometheus.CounterVec
	queryDuration     prometheus.Histogram
	archives          *prometheus.CounterVec
}

// NewPrometheus registers the application collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Number of CSV uploads by outcome",
		}, []string{"status"}),
		uploadRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_records",
			Help:      "Number of data rows parsed per accepted upload",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		usersInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_inserted_total",
			Help:      "Number of users created by uploads",
		}),
		usersUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_updated_total",
			Help:      "Number of salary updates applied to existing users",
		}),
		recordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Number of uploaded records ignored for a non-positive salary",
		}),
		reconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling and persisting an upload",
			Buckets:   prometheus.DefBuckets,
		}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Number of user queries by outcome",
		}, []string{"status"}),
		queryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent answering user queries",
			Buckets:   prometheus.DefBuckets,
		}),
		archives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "Number of raw upload archive attempts by outcome",
		}, []string{"status"}),
	}
}

// IncUpload increments the upload counter for status.
func (p *PrometheusRecorder) IncUpload(status string) {
	p.uploads.WithLabelValues(status).Inc()
}

// ObserveUploadRecords records the number of parsed rows.
func (p *PrometheusRecorder) ObserveUploadRecords(count int) {
	p.uploadRecords.Observe(float64(count))
}

// AddUsersInserted increments the inserted users counter.
func (p *PrometheusRecorder) AddUsersInserted(count int) {
	p.usersInserted.Add(float64(count))
}

// AddUsersUpdated increments the updated users counter.
func (p *PrometheusRecorder) AddUsersUpdated(count int) {
	p.usersUpdated.Add(float64(count))
}

// AddRecordsSkipped increments the skipped records counter.
func (p *PrometheusRecorder) AddRecordsSkipped(count int) {
	p.recordsSkipped.Add(float64(count))
}

// ObserveReconcileDuration records reconciliation duration.
func (p *PrometheusRecorder) ObserveReconcileDuration(duration time.Duration) {
	p.reconcileDuration.Observe(duration.Seconds())
}

// IncQuery increments the query counter for status.
func (p *PrometheusRecorder) IncQuery(status string) {
	p.queries.WithLabelValues(status).Inc()
}

// ObserveQueryDuration records query duration.
func (p *PrometheusRecorder) ObserveQueryDuration(duration time.Duration) {
	p.queryDuration.Observe(duration.Seconds())
}

// IncArchive increments the archive counter for status.
func (p *PrometheusRecorder) IncArchive(status string) {
	p.archives.WithLabelValues(status).Inc()
}
