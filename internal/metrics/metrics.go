// Package metrics exposes Prometheus collectors for the shortener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shorturl"

// Registration outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeRace     = "race"
	OutcomeError    = "error"
)

// Lookup results.
const (
	LookupHit      = "hit"
	LookupCacheHit = "cache_hit"
	LookupMiss     = "miss"
	LookupError    = "error"
)

// Metrics owns its registry, so several instances can live in one process.
type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	validations   *prometheus.CounterVec
	dnsDuration   *prometheus.HistogramVec
	storageUp     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registrations = m.registerCounter("registrations_total",
		"URL registrations by outcome.", []string{"outcome"})
	m.lookups = m.registerCounter("lookups_total",
		"Short id lookups by result.", []string{"result"})
	m.validations = m.registerCounter("validation_failures_total",
		"Rejected URLs by reason.", []string{"reason"})
	m.dnsDuration = m.registerHistogram("dns_lookup_duration_seconds",
		"Host resolution latency.", []string{"result"}, prometheus.DefBuckets)

	m.storageUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "storage_up",
		Help:      "1 if the last storage probe succeeded.",
	})
	m.registry.MustRegister(m.storageUp)
	m.registry.MustRegister(collectors.NewGoCollector())

	return m
}

func (m *Metrics) registerCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)

	m.registry.MustRegister(counter)
	return counter
}

func (m *Metrics) registerHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)

	m.registry.MustRegister(histogram)
	return histogram
}

// Registration counts a registerOrGet outcome.
func (m *Metrics) Registration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// Lookup counts a lookup by short id.
func (m *Metrics) Lookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

// ValidationFailure counts a rejected URL.
func (m *Metrics) ValidationFailure(reason string) {
	m.validations.WithLabelValues(reason).Inc()
}

// ObserveDNS records how long a host lookup took.
func (m *Metrics) ObserveDNS(d time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	m.dnsDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) SetStorageUp(up bool) {
	if up {
		m.storageUp.Set(1)
		return
	}
	m.storageUp.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
