package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global collector instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the compilation pipeline
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Pipeline metrics
	CompilationRuns     *prometheus.CounterVec
	CompilationDuration *prometheus.HistogramVec
	ChaptersAssembled   prometheus.Counter
	VoidsDetected       prometheus.Counter
	AtomsDropped        prometheus.Counter

	// Narrator metrics
	NarratorCalls      *prometheus.CounterVec
	FallbacksUsed      prometheus.Counter
	BreakerTransitions *prometheus.CounterVec

	// Cache metrics
	GraphCacheHits   prometheus.Counter
	GraphCacheMisses prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	compilationRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compilation_runs_total",
			Help:      "Total number of biography compilation runs",
		},
		[]string{"version", "status"},
	)

	compilationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compilation_stage_duration_seconds",
			Help:      "Duration of each compilation stage in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	chaptersAssembled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_assembled_total",
			Help:      "Total number of chapters assembled",
		},
	)

	voidsDetected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voids_detected_total",
			Help:      "Total number of void periods detected",
		},
	)

	atomsDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "atoms_dropped_total",
			Help:      "Total number of atoms dropped by clustering",
		},
	)

	narratorCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrator_calls_total",
			Help:      "Total number of narrator invocations",
		},
		[]string{"status"},
	)

	fallbacksUsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrator_fallbacks_total",
			Help:      "Total number of chapters narrated by the template fallback",
		},
	)

	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrator_breaker_transitions_total",
			Help:      "Total number of narrator circuit breaker state transitions",
		},
		[]string{"state"},
	)

	graphCacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_cache_hits_total",
			Help:      "Total number of narrative graph cache hits",
		},
	)

	graphCacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_cache_misses_total",
			Help:      "Total number of narrative graph cache misses",
		},
	)

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"operation", "store", "status"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "store"},
	)

	registry.MustRegister(
		compilationRuns,
		compilationDuration,
		chaptersAssembled,
		voidsDetected,
		atomsDropped,
		narratorCalls,
		fallbacksUsed,
		breakerTransitions,
		graphCacheHits,
		graphCacheMisses,
		storeOperations,
		storeDuration,
	)

	globalCollector = &Collector{
		registry:            registry,
		CompilationRuns:     compilationRuns,
		CompilationDuration: compilationDuration,
		ChaptersAssembled:   chaptersAssembled,
		VoidsDetected:       voidsDetected,
		AtomsDropped:        atomsDropped,
		NarratorCalls:       narratorCalls,
		FallbacksUsed:       fallbacksUsed,
		BreakerTransitions:  breakerTransitions,
		GraphCacheHits:      graphCacheHits,
		GraphCacheMisses:    graphCacheMisses,
		StoreOperations:     storeOperations,
		StoreDuration:       storeDuration,
	}

	return globalCollector
}

// Registry exposes the collector's registry for scrape handlers
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records the duration of one pipeline stage
func (c *Collector) ObserveStage(stage string, start time.Time) {
	c.CompilationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordStoreOperation records one store call with its duration and outcome
func (c *Collector) RecordStoreOperation(operation, store string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.StoreOperations.WithLabelValues(operation, store, status).Inc()
	c.StoreDuration.WithLabelValues(operation, store).Observe(time.Since(start).Seconds())
}
