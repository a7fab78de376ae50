package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/upb/entitybus/models"
)

// Metrics holds the Prometheus metrics of the dispatch layer
type Metrics struct {
	Dispatches     *prometheus.CounterVec
	DispatchTime   *prometheus.HistogramVec
	SecurityEvents *prometheus.CounterVec
	Degraded       prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "entitybus_dispatch_total",
			Help: "Dispatched bus requests by entity, operation and response status",
		}, []string{"entity", "operation", "status"}),
		DispatchTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entitybus_dispatch_duration_seconds",
			Help:    "Time from decoding a request to assembling its response",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		SecurityEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "entitybus_security_events_total",
			Help: "Requests rejected for security reasons by status",
		}, []string{"status"}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "entitybus_degraded",
			Help: "1 while an external dependency failure is within the degradation window",
		}),
	}
}

// ObserveDispatch records one completed dispatch
func (m *Metrics) ObserveDispatch(entity, operation string, status models.Status, elapsed time.Duration) {
	m.Dispatches.WithLabelValues(entity, operation, status.String()).Inc()
	m.DispatchTime.WithLabelValues(entity, operation).Observe(elapsed.Seconds())
	if status.IsSecurityEvent() {
		m.SecurityEvents.WithLabelValues(status.String()).Inc()
	}
}
