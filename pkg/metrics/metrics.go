package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Hash store metrics
	BlobsAbsorbed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moss_blobs_absorbed_total",
			Help: "Total number of blobs written into the hash store",
		},
	)

	BlobsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moss_blobs_swept_total",
			Help: "Total number of blobs removed by GC",
		},
	)

	StoreBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moss_store_bytes",
			Help: "Total bytes occupied by the blob store",
		},
	)

	// Resolver metrics
	ResolverClosureSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moss_resolver_closure_size",
			Help:    "Number of packages in a resolved dependency closure",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	ResolverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moss_resolver_duration_seconds",
			Help:    "Time taken to resolve a dependency closure",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moss_transactions_total",
			Help: "Total number of transactions by outcome",
		},
		[]string{"outcome"}, // committed, aborted
	)

	TransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moss_transaction_duration_seconds",
			Help:    "Time taken to plan, stage, and activate a transaction",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"phase"}, // total, fetch, stage, trigger, activate
	)

	StatesRetained = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moss_states_retained",
			Help: "Number of live states currently retained",
		},
	)

	ActiveStateID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moss_active_state_id",
			Help: "ID of the currently active state",
		},
	)

	// Repository client metrics
	RepoFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moss_repo_fetch_duration_seconds",
			Help:    "Time taken to fetch a repository index or package",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"repo"},
	)

	RepoFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moss_repo_fetch_errors_total",
			Help: "Total number of failed repository fetches by kind",
		},
		[]string{"repo", "kind"}, // kind: transient, integrity
	)

	// Trigger metrics
	TriggersRun = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moss_triggers_run_total",
			Help: "Total number of package triggers executed",
		},
	)

	TriggerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moss_trigger_duration_seconds",
			Help:    "Time taken to run a package's triggers",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(BlobsAbsorbed)
	prometheus.MustRegister(BlobsSwept)
	prometheus.MustRegister(StoreBytes)
	prometheus.MustRegister(ResolverClosureSize)
	prometheus.MustRegister(ResolverDuration)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(StatesRetained)
	prometheus.MustRegister(ActiveStateID)
	prometheus.MustRegister(RepoFetchDuration)
	prometheus.MustRegister(RepoFetchErrors)
	prometheus.MustRegister(TriggersRun)
	prometheus.MustRegister(TriggerDuration)
}

// Handler returns the Prometheus HTTP handler.
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
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
