// Package prometheus implements lazycache.MetricsCollector on the native
// Prometheus client, for applications that expose client_golang registries
// rather than an OpenTelemetry pipeline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/agilira/lazycache"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "lazycache"

// Collector implements lazycache.MetricsCollector with Prometheus counters
// and histograms. Latencies are exported in seconds.
type Collector struct {
	getLatency      prom.Histogram
	populateLatency *prom.HistogramVec
	hits            prom.Counter
	misses          prom.Counter
	populations     *prom.CounterVec
	coalesced       prom.Counter
	retries         prom.Counter
	removals        prom.Counter
	expirations     prom.Counter
}

type options struct {
	namespace   string
	constLabels prom.Labels
	buckets     []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace overrides DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels attaches labels to every metric, e.g. to tell cache
// instances apart.
func WithConstLabels(labels prom.Labels) Option {
	return func(o *options) {
		o.constLabels = labels
	}
}

// WithBuckets overrides the latency histogram buckets (seconds).
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewCollector(reg prom.Registerer, opts ...Option) (*Collector, error) {
	o := options{
		namespace: DefaultNamespace,
		buckets:   prom.ExponentialBuckets(1e-7, 10, 9), // 100ns .. 10s
	}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	counter := func(name, help string) prom.Counter {
		return prom.NewCounter(prom.CounterOpts{
			Namespace: o.namespace, Name: name, Help: help, ConstLabels: o.constLabels,
		})
	}

	c := &Collector{
		getLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "get_duration_seconds",
			Help:        "Latency of Get operations.",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}),
		populateLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "populate_duration_seconds",
			Help:        "Latency of population rounds, retries included.",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}, []string{"outcome"}),
		hits:   counter("get_hits_total", "Total number of cache hits."),
		misses: counter("get_misses_total", "Total number of cache misses."),
		populations: prom.NewCounterVec(prom.CounterOpts{
			Namespace:   o.namespace,
			Name:        "populations_total",
			Help:        "Total number of population rounds by outcome.",
			ConstLabels: o.constLabels,
		}, []string{"outcome"}),
		coalesced:   counter("coalesced_total", "Total number of callers that joined a running round."),
		retries:     counter("retries_total", "Total number of retried producer attempts."),
		removals:    counter("removals_total", "Total number of explicit removals."),
		expirations: counter("expirations_total", "Total number of expired entries removed."),
	}

	for _, m := range []prom.Collector{
		c.getLatency, c.populateLatency, c.hits, c.misses, c.populations,
		c.coalesced, c.retries, c.removals, c.expirations,
	} {
		if err := reg.Register(m); err != nil {
			return nil, lazycache.NewErrInternal("prometheus.Register", err)
		}
	}

	return c, nil
}

func seconds(latencyNs int64) float64 {
	return time.Duration(latencyNs).Seconds()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordGet records a Get operation.
func (c *Collector) RecordGet(latencyNs int64, hit bool) {
	c.getLatency.Observe(seconds(latencyNs))
	if hit {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
}

// RecordPopulate records the end of a population round.
func (c *Collector) RecordPopulate(latencyNs int64, success bool) {
	label := outcome(success)
	c.populateLatency.WithLabelValues(label).Observe(seconds(latencyNs))
	c.populations.WithLabelValues(label).Inc()
}

// RecordCoalesced records a caller that joined a running round.
func (c *Collector) RecordCoalesced() { c.coalesced.Inc() }

// RecordRetry records a retried producer attempt.
func (c *Collector) RecordRetry() { c.retries.Inc() }

// RecordRemove records an explicit removal.
func (c *Collector) RecordRemove() { c.removals.Inc() }

// RecordExpiration records an expired entry being removed.
func (c *Collector) RecordExpiration() { c.expirations.Inc() }

var _ lazycache.MetricsCollector = (*Collector)(nil)
