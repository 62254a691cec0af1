package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_questions_total",
			Help: "Total number of orchestrated query attempts by outcome.",
		},
		[]string{"origin", "outcome"},
	)
	generationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_generation_duration_seconds",
			Help:    "SQL generation latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querypilot_execution_duration_seconds",
			Help:    "Warehouse execution latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
	)
	retrievalDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_retrieval_degraded_total",
			Help: "Total number of similarity lookups that degraded to empty context.",
		},
	)
	persistenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_persistence_failures_total",
			Help: "Total number of absorbed post-execution persistence failures by store.",
		},
		[]string{"store"},
	)
	pendingApprovals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querypilot_pending_approvals",
			Help: "Current count of generated SQL statements awaiting approval.",
		},
	)
	archivedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_archived_records_total",
			Help: "Total number of history records exported to the archive.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		generationDurationSeconds,
		executionDurationSeconds,
		retrievalDegradedTotal,
		persistenceFailuresTotal,
		pendingApprovals,
		archivedRecordsTotal,
	)
}

func IncrementQuestions(origin, outcome string) {
	questionsTotal.WithLabelValues(origin, outcome).Inc()
}

func ObserveGenerationDuration(d time.Duration) {
	generationDurationSeconds.Observe(d.Seconds())
}

func ObserveExecutionDuration(d time.Duration) {
	executionDurationSeconds.Observe(d.Seconds())
}

func IncrementRetrievalDegraded() {
	retrievalDegradedTotal.Inc()
}

func IncrementPersistenceFailure(store string) {
	persistenceFailuresTotal.WithLabelValues(store).Inc()
}

func SetPendingApprovals(count int) {
	pendingApprovals.Set(float64(count))
}

func AddArchivedRecords(count int64) {
	archivedRecordsTotal.Add(float64(count))
}
