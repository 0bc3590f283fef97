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

// Generation modes reported on the marksheet counter.
const (
	GenerationModeSingle   = "single"
	GenerationModeMultiple = "multiple"
	GenerationModeBulk     = "bulk"
	GenerationModeBatch    = "batch"
)

// Score update paths and outcomes.
const (
	ScorePathSingle    = "single"
	ScorePathBatch     = "batch"
	ScoreOutcomeOK     = "ok"
	ScoreOutcomeFailed = "failed"
)

// MetricsSnapshot is a lightweight view of process counters.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	MarksheetsGenerated      uint64    `json:"marksheets_generated"`
	StagesConducted          uint64    `json:"stages_conducted"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and the assessment engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	marksheetsGenerated *prometheus.CounterVec
	stagesConducted     prometheus.Counter
	scoreUpdates        *prometheus.CounterVec
	recalculations      prometheus.Counter
	lockWait            prometheus.Observer

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	generatedCount       uint64
	conductedCount       uint64
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

	marksheetsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_marksheets_generated_total",
		Help: "Marksheets created, by generation mode",
	}, []string{"mode"})

	stagesConducted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assessment_stages_conducted_total",
		Help: "Stages appended to conducted assessment gates",
	})

	scoreUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_score_updates_total",
		Help: "Marksheet score updates, by path and outcome",
	}, []string{"path", "outcome"})

	recalculations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assessment_recalculations_total",
		Help: "Marksheet results recomputed by background recalculation",
	})

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assessment_lock_wait_seconds",
		Help:    "Time spent waiting for a per-GSA lock",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		marksheetsGenerated, stagesConducted, scoreUpdates, recalculations, lockWait, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		marksheetsGenerated: marksheetsGenerated,
		stagesConducted:     stagesConducted,
		scoreUpdates:        scoreUpdates,
		recalculations:      recalculations,
		lockWait:            lockWait,
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

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// AddMarksheetsGenerated counts newly created marksheets.
func (m *MetricsService) AddMarksheetsGenerated(mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.marksheetsGenerated.WithLabelValues(mode).Add(float64(n))
	atomic.AddUint64(&m.generatedCount, uint64(n))
}

// IncStageConducted counts a gate transition.
func (m *MetricsService) IncStageConducted() {
	if m == nil {
		return
	}
	m.stagesConducted.Inc()
	atomic.AddUint64(&m.conductedCount, 1)
}

// AddScoreUpdates counts marksheet writes.
func (m *MetricsService) AddScoreUpdates(path, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scoreUpdates.WithLabelValues(path, outcome).Add(float64(n))
}

// AddRecalculations counts marksheets recomputed by background jobs.
func (m *MetricsService) AddRecalculations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recalculations.Add(float64(n))
}

// ObserveLockWait records how long a caller waited for a per-GSA lock.
func (m *MetricsService) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
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
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		MarksheetsGenerated:      atomic.LoadUint64(&m.generatedCount),
		StagesConducted:          atomic.LoadUint64(&m.conductedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
