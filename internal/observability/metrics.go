// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Indexer metrics
	EventsProcessed        *prometheus.CounterVec
	EventsSkipped          *prometheus.CounterVec
	EventProcessingErrors  *prometheus.CounterVec
	ArtifactsIgnored       prometheus.Counter
	EventProcessingLatency *prometheus.HistogramVec
	RollupFailures         *prometheus.CounterVec

	// Ingestion metrics
	LogsFetched      prometheus.Counter
	LogsUndecodable  prometheus.Counter
	HighestBlockSeen prometheus.Gauge
	WatchedAddresses prometheus.Gauge
	MetadataCache    *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "streamswap"
	}

	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_processed_total",
			Help:      "Total number of events applied to the store by event type",
		}, []string{"event_type"}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_skipped_total",
			Help:      "Total number of redelivered events skipped by event type",
		}, []string{"event_type"}),
		EventProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by type",
		}, []string{"event_type", "error_type"}),
		ArtifactsIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "artifacts_ignored_total",
			Help:      "Total number of zero-address rate-out events ignored",
		}),
		EventProcessingLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "event_processing_latency_seconds",
			Help:      "Event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		RollupFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "failures_total",
			Help:      "Total number of failed rollup notifications by rollup kind",
		}, []string{"kind"}),

		LogsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "logs_fetched_total",
			Help:      "Total number of logs fetched from the node or a replay source",
		}),
		LogsUndecodable: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "logs_undecodable_total",
			Help:      "Total number of logs with an unknown event signature",
		}),
		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_block_seen",
			Help:      "Highest block number processed",
		}),
		WatchedAddresses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "watched_addresses",
			Help:      "Number of contract addresses whose logs are fetched",
		}),
		MetadataCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "metadata_cache_total",
			Help:      "Token metadata cache lookups by result",
		}, []string{"result"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed records an applied event and its handling latency.
func RecordEventProcessed(eventType string, seconds float64) {
	DefaultMetrics.EventsProcessed.WithLabelValues(eventType).Inc()
	DefaultMetrics.EventProcessingLatency.WithLabelValues(eventType).Observe(seconds)
}

// RecordEventSkipped increments the redelivered events counter.
func RecordEventSkipped(eventType string) {
	DefaultMetrics.EventsSkipped.WithLabelValues(eventType).Inc()
}

// RecordEventError records an event processing error.
func RecordEventError(eventType, errorType string) {
	DefaultMetrics.EventProcessingErrors.WithLabelValues(eventType, errorType).Inc()
}

// RecordArtifactIgnored increments the ignored zero-address event counter.
func RecordArtifactIgnored() {
	DefaultMetrics.ArtifactsIgnored.Inc()
}

// RecordRollupFailure increments the failed rollup notification counter.
func RecordRollupFailure(kind string) {
	DefaultMetrics.RollupFailures.WithLabelValues(kind).Inc()
}

// RecordLogsFetched adds to the fetched logs counter.
func RecordLogsFetched(n int) {
	DefaultMetrics.LogsFetched.Add(float64(n))
}

// RecordLogUndecodable increments the unknown log counter.
func RecordLogUndecodable() {
	DefaultMetrics.LogsUndecodable.Inc()
}

// UpdateHighestBlock updates the highest block seen gauge and the ingestion health timestamp.
func UpdateHighestBlock(block int64, unixNow int64) {
	DefaultMetrics.HighestBlockSeen.Set(float64(block))
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixNow))
}

// UpdateWatchedAddresses updates the watched address gauge.
func UpdateWatchedAddresses(n int) {
	DefaultMetrics.WatchedAddresses.Set(float64(n))
}

// RecordMetadataCache records a token metadata cache lookup ("hit", "miss", "error").
func RecordMetadataCache(result string) {
	DefaultMetrics.MetadataCache.WithLabelValues(result).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSMessageLatency records websocket message handling latency.
func RecordWSMessageLatency(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
