package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across the core. Module
// specific counters live here too so dashboards have a single namespace.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec

	EventsProcessed    *prometheus.CounterVec
	EventsDeduplicated prometheus.Counter
	ReputationDeltas   prometheus.Counter
	AllianceConflicts  prometheus.Counter
	PaymentsRecorded   prometheus.Counter
	AnomaliesObserved  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collabcore_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collabcore_events_processed_total",
			Help: "Billing events processed, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		EventsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collabcore_events_deduplicated_total",
			Help: "Redelivered events rejected by the event ledger.",
		}),
		ReputationDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collabcore_reputation_deltas_total",
			Help: "Reputation ledger entries appended.",
		}),
		AllianceConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collabcore_alliance_conflicts_total",
			Help: "Alliance transitions rejected by state or pair constraints.",
		}),
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collabcore_payments_recorded_total",
			Help: "Payment records created from confirmations.",
		}),
		AnomaliesObserved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collabcore_anomalies_total",
			Help: "Events referencing state this core cannot resolve.",
		}, []string{"kind"}),
	}
}

// ObserveRequest records one HTTP request duration.
func (m *Metrics) ObserveRequest(method, path string, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
