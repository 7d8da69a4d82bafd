package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	dbQueryDuration  *prometheus.HistogramVec
	recomputations   *prometheus.HistogramVec
	memoHits         *prometheus.CounterVec
	bulkValidations  *prometheus.CounterVec
	bulkWrites       *prometheus.CounterVec
	listenerEvents   *prometheus.CounterVec
	activeWorkspaces prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	recomputations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregation_recompute_seconds",
		Help:    "Duration of derived view recomputations",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"view"})

	memoHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_memo_hits_total",
		Help: "Derived views served from the in-process memo",
	}, []string{"view"})

	bulkValidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_bulk_validations_total",
		Help: "Bulk validation invocations by scope and status",
	}, []string{"scope", "status"})

	bulkWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_validation_writes_total",
		Help: "Comment writes issued by bulk validation",
	}, []string{"kind"})

	listenerEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_listener_events_total",
		Help: "Record store listener events by collection and outcome",
	}, []string{"collection", "event"})

	activeWorkspaces := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_active_workspaces",
		Help: "Number of live per-user workspaces",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration,
		recomputations, memoHits, bulkValidations, bulkWrites, listenerEvents, activeWorkspaces,
		goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		dbQueryDuration:  dbQueryDuration,
		recomputations:   recomputations,
		memoHits:         memoHits,
		bulkValidations:  bulkValidations,
		bulkWrites:       bulkWrites,
		listenerEvents:   listenerEvents,
		activeWorkspaces: activeWorkspaces,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records audit database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveRecomputation records a derived view computation. Memo hits are
// counted instead of timed.
func (m *MetricsService) ObserveRecomputation(view string, memoHit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if memoHit {
		m.memoHits.WithLabelValues(view).Inc()
		return
	}
	m.recomputations.WithLabelValues(view).Observe(duration.Seconds())
}

// ObserveBulkValidation records one bulk validation invocation.
func (m *MetricsService) ObserveBulkValidation(scope, status string, created, updated int) {
	if m == nil {
		return
	}
	m.bulkValidations.WithLabelValues(scope, status).Inc()
	if created > 0 {
		m.bulkWrites.WithLabelValues("create").Add(float64(created))
	}
	if updated > 0 {
		m.bulkWrites.WithLabelValues("update").Add(float64(updated))
	}
}

// RecordListenerEvent counts listener snapshots, failures and restarts.
func (m *MetricsService) RecordListenerEvent(collection, event string) {
	if m == nil {
		return
	}
	m.listenerEvents.WithLabelValues(collection, event).Inc()
}

// SetActiveWorkspaces publishes the live workspace count.
func (m *MetricsService) SetActiveWorkspaces(n int) {
	if m == nil {
		return
	}
	m.activeWorkspaces.Set(float64(n))
}
