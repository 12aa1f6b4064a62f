package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intercepted requests by response source
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_requests_total",
			Help: "Total number of intercepted requests by response source",
		},
		[]string{"source"}, // cache, network, offline, bypass, pass
	)

	// L1/L2 specific hits
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Total number of cache hits by storage level",
		},
		[]string{"level"},
	)

	NetworkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_network_errors_total",
			Help: "Total number of failed network fetches",
		},
		[]string{"kind"}, // navigation, subresource, bypass, precache
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_errors_total",
			Help: "Total number of storage errors",
		},
		[]string{"level", "kind"},
	)

	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_cache_generation_evictions_total",
			Help: "Total number of superseded generations deleted",
		},
	)

	Installs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_installs_total",
			Help: "Total number of generation installs by result",
		},
		[]string{"result"},
	)

	PrecacheDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offline_cache_precache_duration_seconds",
			Help:    "Duration of generation pre-population",
			Buckets: prometheus.DefBuckets,
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offline_cache_request_duration_seconds",
			Help:    "Duration of intercepted requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ActiveGeneration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_active_generation",
			Help: "Set to 1 for the generation currently serving requests",
		},
		[]string{"generation"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_entries",
			Help: "Number of entries per storage level and generation",
		},
		[]string{"level", "generation"},
	)

	CacheCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_cache_capacity_bytes",
			Help: "L1 cache capacity in bytes",
		},
		[]string{"generation"},
	)
)

// RecordRequest records an intercepted request served from source
func RecordRequest(source string) {
	Requests.WithLabelValues(source).Inc()
}

// RecordCacheHit records a cache hit at the given level
func RecordCacheHit(level string) {
	CacheHits.WithLabelValues(level).Inc()
}

// RecordNetworkError records a failed network fetch
func RecordNetworkError(kind string) {
	NetworkErrors.WithLabelValues(kind).Inc()
}

// RecordCacheError records a storage error with level and kind
func RecordCacheError(level, kind string) {
	CacheErrors.WithLabelValues(level, kind).Inc()
}

// RecordEviction records a deleted generation
func RecordEviction() {
	Evictions.Inc()
}

// RecordInstall records an install outcome ("success" or "failure")
func RecordInstall(result string) {
	Installs.WithLabelValues(result).Inc()
}

// SetActiveGeneration marks generation as active, clearing previous
func SetActiveGeneration(previous, generation string) {
	if previous != "" && previous != generation {
		ActiveGeneration.DeleteLabelValues(previous)
		CacheEntries.DeleteLabelValues("l1", previous)
		CacheCapacity.DeleteLabelValues(previous)
	}
	ActiveGeneration.WithLabelValues(generation).Set(1)
}

// UpdateL1Stats updates entry count and capacity of an L1 generation store
func UpdateL1Stats(generation string, entries, capacity int64) {
	CacheEntries.WithLabelValues("l1", generation).Set(float64(entries))
	CacheCapacity.WithLabelValues(generation).Set(float64(capacity))
}

// TimePrecache returns a timer function for measuring pre-population
func TimePrecache() func() {
	timer := prometheus.NewTimer(PrecacheDuration)
	return func() {
		timer.ObserveDuration()
	}
}

// TimeRequest returns a function observing the request duration under the source it is given
func TimeRequest() func(source string) {
	start := time.Now()
	return func(source string) {
		RequestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
}
