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

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the plan cache, and the scheduling engine runs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	runDuration     prometheus.Observer
	runsTotal       prometheus.Counter
	eventsPlaced    prometheus.Counter
	examsUnplaced   prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	placedTotal          uint64
	unplacedTotal        uint64
}

// MetricsSnapshot aggregates lightweight counters for API consumption.
type MetricsSnapshot struct {
	Requests       uint64  `json:"requests"`
	AvgRequestMs   float64 `json:"avg_request_ms"`
	CacheHitRatio  float64 `json:"cache_hit_ratio"`
	SchedulingRuns uint64  `json:"scheduling_runs"`
	EventsPlaced   uint64  `json:"events_placed"`
	ExamsUnplaced  uint64  `json:"exams_unplaced"`
	Goroutines     int     `json:"goroutines"`
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
		Name:    "plan_cache_latency_seconds",
		Help:    "Latency for plan cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plan_cache_hit_ratio",
		Help: "Ratio of plan cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plan_cache_hits_total",
		Help: "Total plan cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plan_cache_misses_total",
		Help: "Total plan cache misses",
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_run_duration_seconds",
		Help:    "Duration of full scheduling runs",
		Buckets: prometheus.DefBuckets,
	})

	runsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_runs_total",
		Help: "Total number of scheduling runs",
	})

	eventsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_events_placed_total",
		Help: "Total events committed by scheduling runs",
	})

	examsUnplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduling_exams_unplaced_total",
		Help: "Total exams scheduling runs failed to place",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio, cacheHits, cacheMisses, runDuration, runsTotal, eventsPlaced, examsUnplaced, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		runDuration:     runDuration,
		runsTotal:       runsTotal,
		eventsPlaced:    eventsPlaced,
		examsUnplaced:   examsUnplaced,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
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

// ObserveSchedulingRun records one full planning run.
func (m *MetricsService) ObserveSchedulingRun(duration time.Duration, placed, unplaced int) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	m.runsTotal.Inc()
	m.eventsPlaced.Add(float64(placed))
	m.examsUnplaced.Add(float64(unplaced))
	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.placedTotal, uint64(placed))
	atomic.AddUint64(&m.unplacedTotal, uint64(unplaced))
}

// Snapshot returns aggregated counters suitable for API consumption.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		Requests:       requests,
		AvgRequestMs:   avgRequestMs,
		CacheHitRatio:  cacheRatio,
		SchedulingRuns: atomic.LoadUint64(&m.runCount),
		EventsPlaced:   atomic.LoadUint64(&m.placedTotal),
		ExamsUnplaced:  atomic.LoadUint64(&m.unplacedTotal),
		Goroutines:     runtime.NumGoroutine(),
	}
}
