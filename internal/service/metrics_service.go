package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// Repair outcome labels.
const (
	RepairOutcomeRepaired  = "repaired"
	RepairOutcomeExhausted = "exhausted"
	RepairOutcomeBudget    = "budget_exceeded"
	RepairOutcomeError     = "error"
)

// MetricsService owns the Prometheus registry for HTTP, cache and solver
// instrumentation and keeps running totals for the JSON snapshot.
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

	constructions  prometheus.Counter
	unplaced       prometheus.Counter
	conflicts      prometheus.Histogram
	repairs        *prometheus.CounterVec
	repairSteps    prometheus.Histogram
	solverDuration *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	constructionCount    uint64
	unplacedCount        uint64
	repairOK             uint64
	repairFailed         uint64
	repairStepsTotal     uint64
}

// NewMetricsService registers the collectors on a private registry.
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
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

	constructions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_constructions_total",
		Help: "Schedules built by the constructor",
	})

	unplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_unplaced_sessions_total",
		Help: "Required sessions the constructor could not place",
	})

	conflicts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_detected_conflicts",
		Help:    "Conflicts found per detection run",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_repairs_total",
		Help: "Repair searches by outcome",
	}, []string{"outcome"})

	repairSteps := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_repair_steps",
		Help:    "Backtracking steps spent per repair",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	solverDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_phase_duration_seconds",
		Help:    "Wall time of construct, refine and repair phases",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		constructions, unplaced, conflicts, repairs, repairSteps, solverDuration,
		goroutines,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		constructions:   constructions,
		unplaced:        unplaced,
		conflicts:       conflicts,
		repairs:         repairs,
		repairSteps:     repairSteps,
		solverDuration:  solverDuration,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
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

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordConstruction counts one constructor run and its shortfall.
func (m *MetricsService) RecordConstruction(unplacedSessions int, duration time.Duration) {
	if m == nil {
		return
	}
	m.constructions.Inc()
	m.solverDuration.WithLabelValues("construct").Observe(duration.Seconds())
	atomic.AddUint64(&m.constructionCount, 1)
	if unplacedSessions > 0 {
		m.unplaced.Add(float64(unplacedSessions))
		atomic.AddUint64(&m.unplacedCount, uint64(unplacedSessions))
	}
}

// ObserveRefine records the duration of a refinement pass.
func (m *MetricsService) ObserveRefine(duration time.Duration) {
	if m == nil {
		return
	}
	m.solverDuration.WithLabelValues("refine").Observe(duration.Seconds())
}

// ObserveConflicts records the size of one detection result.
func (m *MetricsService) ObserveConflicts(count int) {
	if m == nil {
		return
	}
	m.conflicts.Observe(float64(count))
}

// RecordRepair records a repair search by outcome label.
func (m *MetricsService) RecordRepair(outcome string, steps int, duration time.Duration) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(outcome).Inc()
	m.repairSteps.Observe(float64(steps))
	m.solverDuration.WithLabelValues("repair").Observe(duration.Seconds())
	if outcome == RepairOutcomeRepaired {
		atomic.AddUint64(&m.repairOK, 1)
	} else {
		atomic.AddUint64(&m.repairFailed, 1)
	}
	if steps > 0 {
		atomic.AddUint64(&m.repairStepsTotal, uint64(steps))
	}
}

// Snapshot returns aggregated metrics for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	repairOK := atomic.LoadUint64(&m.repairOK)
	repairFailed := atomic.LoadUint64(&m.repairFailed)
	steps := atomic.LoadUint64(&m.repairStepsTotal)

	var cacheRatio float64
	if lookups := hits + misses; lookups > 0 {
		cacheRatio = float64(hits) / float64(lookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgSteps float64
	if repairs := repairOK + repairFailed; repairs > 0 {
		avgSteps = float64(steps) / float64(repairs)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		Constructions:            atomic.LoadUint64(&m.constructionCount),
		UnplacedSessions:         atomic.LoadUint64(&m.unplacedCount),
		RepairsSucceeded:         repairOK,
		RepairsFailed:            repairFailed,
		AverageRepairSteps:       avgSteps,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
