package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the query and capture paths
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epcis_queries_total",
			Help: "Total number of event queries by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "epcis_query_duration_seconds",
			Help:    "Duration of event queries against the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	ParameterErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epcis_query_parameter_errors_total",
			Help: "Total number of rejected query parameters by error kind",
		},
		[]string{"kind"},
	)

	CapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epcis_captures_total",
			Help: "Total number of capture requests by outcome",
		},
		[]string{"outcome"},
	)

	CapturedEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epcis_captured_events_total",
			Help: "Total number of events persisted",
		},
	)

	SubscriptionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epcis_subscription_runs_total",
			Help: "Total number of subscription executions by result",
		},
		[]string{"result"},
	)
)

var once sync.Once

// Register registers all Prometheus metrics with the default registry.
// Calling it more than once is a no-op.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(QueriesTotal)
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(ParameterErrorsTotal)
		prometheus.MustRegister(CapturesTotal)
		prometheus.MustRegister(CapturedEventsTotal)
		prometheus.MustRegister(SubscriptionRunsTotal)
	})
}
