package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Queue metrics
	OperationsEnqueued *prometheus.CounterVec
	OperationsSwept    prometheus.Counter
	QueueDepth         prometheus.Gauge

	// Processor metrics
	DrainsTotal         prometheus.Counter
	DrainDuration       prometheus.Histogram
	OperationsProcessed *prometheus.CounterVec
	OperationRetries    *prometheus.CounterVec
	ManualRetries       *prometheus.CounterVec

	// Cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter

	// Connectivity metrics
	ConnectivityTransitions *prometheus.CounterVec

	// Provider metrics
	ProviderRequests    *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		OperationsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_enqueued_total",
				Help:      "Total number of operations enqueued by kind",
			},
			[]string{"kind"},
		),
		OperationsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_swept_total",
				Help:      "Total number of terminal operations removed by sweeps",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_pending_operations",
				Help:      "Number of operations currently pending",
			},
		),
		DrainsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_drains_total",
				Help:      "Total number of queue drain passes",
			},
		),
		DrainDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "queue_drain_duration_seconds",
				Help:      "Queue drain pass duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		OperationsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_processed_total",
				Help:      "Total number of operation processing attempts by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		OperationRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_retries_total",
				Help:      "Total number of automatic operation retries",
			},
			[]string{"kind"},
		),
		ManualRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_manual_retries_total",
				Help:      "Total number of caller-initiated retries of failed operations",
			},
			[]string{"kind"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses, including expiries",
			},
		),
		CacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of entries evicted lazily or by sweep",
			},
		),
		ConnectivityTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connectivity_transitions_total",
				Help:      "Total number of connectivity transitions by direction",
			},
			[]string{"direction"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of provider requests by provider and result",
			},
			[]string{"provider", "result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.OperationsEnqueued,
		m.OperationsSwept,
		m.QueueDepth,
		m.DrainsTotal,
		m.DrainDuration,
		m.OperationsProcessed,
		m.OperationRetries,
		m.ManualRetries,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.ConnectivityTransitions,
		m.ProviderRequests,
		m.CircuitBreakerState,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
