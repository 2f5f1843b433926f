package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "translatar"

// Chunk outcomes
const (
	OutcomeTranslated = "translated"
	OutcomeSilent     = "silent"
	OutcomeFailed     = "failed"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	connectionsTotal    prometheus.Counter
	activeConnections   prometheus.Gauge
	chunks              *prometheus.CounterVec
	upstreamErrors      *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	authRejections      prometheus.Counter
	conversationsSwept  prometheus.Counter
	chunkDuration       prometheus.Histogram
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_connections_total",
			Help:      "Relay WebSocket connections accepted.",
		}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_active_connections",
			Help:      "Relay WebSocket connections currently open.",
		}),
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_processed_total",
			Help:      "Audio chunks processed by outcome.",
		}, []string{"outcome"}),
		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to upstream services.",
		}, []string{"service"}),
		persistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Translation records that could not be persisted.",
		}),
		authRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rejections_total",
			Help:      "Relay connections closed because authentication failed.",
		}),
		conversationsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_swept_total",
			Help:      "Stale conversations ended by the sweeper.",
		}),
		chunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Time spent in the per-chunk pipeline.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// ObserveChunk records the outcome and duration of one chunk pipeline
func (m *Metrics) ObserveChunk(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
	m.chunkDuration.Observe(d.Seconds())
}

func (m *Metrics) UpstreamError(service string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(service).Inc()
}

func (m *Metrics) PersistenceFailure() {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc()
}

func (m *Metrics) AuthRejected() {
	if m == nil {
		return
	}
	m.authRejections.Inc()
}

func (m *Metrics) ConversationsSwept(n int) {
	if m == nil {
		return
	}
	m.conversationsSwept.Add(float64(n))
}
