// Package metrics exposes Prometheus collectors for reference resolution and assistant turns.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/memohai/storefront/internal/reference"
)

const namespace = "storefront"

// Turn outcomes.
const (
	OutcomeOK                 = "ok"
	OutcomeGenerationFailed   = "generation_failed"
	OutcomeCatalogUnavailable = "catalog_unavailable"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	resolutions   prometheus.Counter
	referencedIDs prometheus.Histogram
	fallbackOnly  prometheus.Counter
	turns         *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
}

// MustNew builds the collectors and registers them on reg (the default registerer when nil).
// Collectors already registered under the same name are reused.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		resolutions: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "resolutions_total",
			Help:      "Model replies resolved against a catalog snapshot.",
		})),
		referencedIDs: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "referenced_ids",
			Help:      "Catalog items referenced per resolved reply.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		})),
		fallbackOnly: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "fallback_only_ids_total",
			Help:      "Referenced items found only by the normalized-name fallback.",
		})),
		turns: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Assistant chat turns by outcome.",
		}, []string{"outcome"})),
		llmLatency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of text-generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"status"})),
		cacheLookups: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Catalog snapshot cache lookups by result.",
		}, []string{"result"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveResolution records one resolver run.
func (m *Metrics) ObserveResolution(res reference.Result) {
	if m == nil {
		return
	}
	m.resolutions.Inc()
	m.referencedIDs.Observe(float64(len(res.ReferencedIDs)))
	m.fallbackOnly.Add(float64(len(res.FallbackOnly)))
}

// ObserveTurn counts a finished chat turn.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records a text-generation call.
func (m *Metrics) ObserveGeneration(took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmLatency.WithLabelValues(status).Observe(took.Seconds())
}

// ObserveCacheLookup counts a catalog cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
