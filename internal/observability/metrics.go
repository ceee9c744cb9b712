package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_request_duration_seconds",
			Help:    "End to end query request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.5, 1, 2.5},
		},
		[]string{"mode", "source", "status"},
	)

	QueryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_requests_total",
			Help: "Total number of query requests",
		},
		[]string{"mode", "status"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_hits_total",
			Help: "Total number of Redis cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of Redis cache misses",
		},
	)

	SearchIndexDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_index_duration_seconds",
			Help:    "Search index backend query duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.5, 1},
		},
		[]string{"index", "status"},
	)

	CHQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ch_query_duration_seconds",
			Help:    "ClickHouse query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"query_type", "status"},
	)

	TickIngestLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tick_ingest_lag_seconds",
			Help: "Current tick ingestion pipeline lag in seconds",
		},
	)

	TickEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tick_events_total",
			Help: "Total number of tick events processed",
		},
		[]string{"operation", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SlowQueryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_query_total",
			Help: "Total number of slow queries",
		},
		[]string{"severity", "query_mode"},
	)

	FallbackCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_fallback_total",
			Help: "Total number of query fallback invocations",
		},
		[]string{"level"},
	)

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections to backend systems",
		},
		[]string{"backend"},
	)

	KafkaConsumerLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_group_lag",
			Help: "Kafka consumer group lag by topic/partition",
		},
		[]string{"topic", "partition"},
	)
)
