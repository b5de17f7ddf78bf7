package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the mood stream pipeline.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           prometheus.Counter
	generationsTotal        prometheus.Counter
	generationFailuresTotal prometheus.Counter
	cacheHitsTotal          prometheus.Counter
	fallbackBatchesTotal    prometheus.Counter
	trackSubstitutionsTotal prometheus.Counter
	streamSegments          prometheus.Gauge
	errorsTotal             prometheus.Counter
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_requests_total",
		Help: "Total number of HTTP requests received",
	})
	generationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_generations_total",
		Help: "Total number of segment batch generations attempted",
	})
	generationFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_generation_failures_total",
		Help: "Total number of generation tiers that failed and fell through",
	})
	cacheHitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_cache_hits_total",
		Help: "Total number of generations served from the response cache",
	})
	fallbackBatchesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_fallback_batches_total",
		Help: "Total number of batches served from the built-in default set",
	})
	trackSubstitutionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_track_substitutions_total",
		Help: "Total number of music IDs replaced by the resolver fallback track",
	})
	streamSegments := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mood_stream_segments",
		Help: "Number of segments in the live stream",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mood_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		generationsTotal,
		generationFailuresTotal,
		cacheHitsTotal,
		fallbackBatchesTotal,
		trackSubstitutionsTotal,
		streamSegments,
		errorsTotal,
	)

	return &Metrics{
		registry:                registry,
		requestsTotal:           requestsTotal,
		generationsTotal:        generationsTotal,
		generationFailuresTotal: generationFailuresTotal,
		cacheHitsTotal:          cacheHitsTotal,
		fallbackBatchesTotal:    fallbackBatchesTotal,
		trackSubstitutionsTotal: trackSubstitutionsTotal,
		streamSegments:          streamSegments,
		errorsTotal:             errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncGenerations increments the generation attempt counter.
func (m *Metrics) IncGenerations() {
	m.generationsTotal.Inc()
}

// IncGenerationFailures increments the failed-tier counter.
func (m *Metrics) IncGenerationFailures() {
	m.generationFailuresTotal.Inc()
}

// IncCacheHits increments the cache hit counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHitsTotal.Inc()
}

// IncFallbackBatches increments the default-batch counter.
func (m *Metrics) IncFallbackBatches() {
	m.fallbackBatchesTotal.Inc()
}

// IncTrackSubstitutions increments the resolver fallback counter.
func (m *Metrics) IncTrackSubstitutions() {
	m.trackSubstitutionsTotal.Inc()
}

// SetStreamSegments sets the live stream length gauge.
func (m *Metrics) SetStreamSegments(n int) {
	m.streamSegments.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. stream length).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
