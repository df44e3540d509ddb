// Package metrics exposes the service's Prometheus collectors and the
// scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/marketdata/pkg/logger"
)

// Metrics is the collector set for the marketdata service.
type Metrics struct {
	// HTTP traffic.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration prometheus.Histogram

	// Kafka consumer throughput.
	ConsumerMessagesTotal *prometheus.CounterVec
	ConsumerErrorsTotal   prometheus.Counter
	ConsumerHandleTime    prometheus.Histogram

	// Broker bootstrap.
	BootstrapAttemptsTotal *prometheus.CounterVec
	BootstrapState         prometheus.Gauge

	// Cache effectiveness.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Storage latency.
	DBQueryDuration    prometheus.Histogram
	RedisOpDuration    prometheus.Histogram
	QuotesIngestedTotal prometheus.Counter
}

// New builds the collector set, namespaced per service.
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ConsumerMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "consumer_messages_total",
			Help:      "Total Kafka messages consumed by topic",
		}, []string{"topic"}),
		ConsumerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "consumer_errors_total",
			Help:      "Total Kafka message handling failures",
		}),
		ConsumerHandleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "consumer_handle_duration_seconds",
			Help:      "Message handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BootstrapAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "bootstrap_attempts_total",
			Help:      "Broker connect attempts by outcome",
		}, []string{"outcome"}),
		BootstrapState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "bootstrap_state",
			Help:      "Bootstrap state machine position (0 stabilizing, 1 connecting, 2 ready, 3 degraded, 4 aborted)",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "cache_hits_total",
			Help:      "Redis cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "cache_misses_total",
			Help:      "Redis cache misses",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RedisOpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "redis_op_duration_seconds",
			Help:      "Redis operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		QuotesIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketdata",
			Subsystem: serviceName,
			Name:      "quotes_ingested_total",
			Help:      "Quotes written through the ingest path",
		}),
	}
}

// Register adds all collectors to the default registry.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ConsumerMessagesTotal,
		m.ConsumerErrorsTotal,
		m.ConsumerHandleTime,
		m.BootstrapAttemptsTotal,
		m.BootstrapState,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBQueryDuration,
		m.RedisOpDuration,
		m.QuotesIngestedTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer serves the Prometheus scrape endpoint in the background.
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "Prometheus HTTP server stopped", "error", err)
		}
	}()
}
