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
	// Lookup metrics
	LookupsTotal     *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec
	StatusMismatches prometheus.Counter
	CacheHits        prometheus.Counter
	LookupDuration   *prometheus.HistogramVec

	// Scan metrics
	SignaturesScanned prometheus.Counter
	HighestSlotSeen   prometheus.Gauge

	// Transport metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCErrors       *prometheus.CounterVec
	WSNotifications prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_tx_resolver"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "lookups_total",
			Help:      "Total number of transaction lookups by shape and outcome",
		}, []string{"encoding", "version_mode", "outcome"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "decode_errors_total",
			Help:      "Total number of rejected responses by error kind",
		}, []string{"kind"}),
		StatusMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "status_mismatches_total",
			Help:      "Responses whose deprecated status disagreed with err",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "cache_hits_total",
			Help:      "Lookups served from the transaction store",
		}),
		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "End-to-end lookup duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"encoding"}),

		SignaturesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "signatures_scanned_total",
			Help:      "Signatures returned by getSignaturesForAddress",
		}),
		HighestSlotSeen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_errors_total",
			Help:      "Failed Solana RPC calls by method",
		}, []string{"method"}),
		WSNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Log notifications received over WebSocket",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordLookup counts a finished lookup.
func RecordLookup(encoding, versionMode, outcome string, seconds float64) {
	DefaultMetrics.LookupsTotal.WithLabelValues(encoding, versionMode, outcome).Inc()
	DefaultMetrics.LookupDuration.WithLabelValues(encoding).Observe(seconds)
}

// RecordDecodeError counts a rejected response.
func RecordDecodeError(kind string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(kind).Inc()
}

// RecordStatusMismatch counts a tolerated status/err disagreement.
func RecordStatusMismatch() {
	DefaultMetrics.StatusMismatches.Inc()
}

// RecordCacheHit counts a lookup answered from storage.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordSignaturesScanned adds n scanned signatures.
func RecordSignaturesScanned(n int) {
	DefaultMetrics.SignaturesScanned.Add(float64(n))
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot uint64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCErrors.WithLabelValues(method).Inc()
	}
}

// RecordWSNotification counts a received log notification.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
