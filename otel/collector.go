// collector.go: OpenTelemetry implementation of lazycache.MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/agilira/lazycache"
)

// DefaultMeterName is the meter used unless WithMeterName overrides it.
const DefaultMeterName = "github.com/agilira/lazycache"

// outcomeKey labels population rounds with their result.
const outcomeKey = attribute.Key("outcome")

// OTelMetricsCollector implements lazycache.MetricsCollector using OpenTelemetry.
//
// Thread-safety: Safe for concurrent use by multiple goroutines.
// The underlying OTEL instruments are thread-safe and lock-free.
type OTelMetricsCollector struct {
	getLatency      metric.Int64Histogram // Get operation latency histogram
	populateLatency metric.Int64Histogram // Population round latency histogram
	hits            metric.Int64Counter
	misses          metric.Int64Counter
	populations     metric.Int64Counter // labelled by outcome
	coalesced       metric.Int64Counter
	retries         metric.Int64Counter
	removals        metric.Int64Counter
	expirations     metric.Int64Counter

	success metric.MeasurementOption
	failure metric.MeasurementOption
}

// Options for configuring OTelMetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: DefaultMeterName
	MeterName string
}

// Option is a functional option for configuring OTelMetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name.
// This is useful for distinguishing metrics from multiple cache instances.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewOTelMetricsCollector creates a new OpenTelemetry metrics collector.
//
// Returns:
//   - *OTelMetricsCollector: The collector instance
//   - error: LAZYCACHE_INVALID_CONFIG if provider is nil, or OTEL instrument creation errors
//
// Example:
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	collector, err := NewOTelMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewOTelMetricsCollector(provider metric.MeterProvider, opts ...Option) (*OTelMetricsCollector, error) {
	if provider == nil {
		return nil, lazycache.NewErrInvalidConfig("meter_provider", nil)
	}

	options := Options{
		MeterName: DefaultMeterName,
	}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)

	c := &OTelMetricsCollector{
		success: metric.WithAttributeSet(attribute.NewSet(outcomeKey.String("success"))),
		failure: metric.WithAttributeSet(attribute.NewSet(outcomeKey.String("failure"))),
	}

	var err error
	if c.getLatency, err = meter.Int64Histogram(
		"lazycache_get_latency_ns",
		metric.WithDescription("Latency of Get operations in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}

	if c.populateLatency, err = meter.Int64Histogram(
		"lazycache_populate_latency_ns",
		metric.WithDescription("Latency of population rounds, retries included, in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&c.hits, "lazycache_get_hits_total", "Total number of cache hits"},
		{&c.misses, "lazycache_get_misses_total", "Total number of cache misses"},
		{&c.populations, "lazycache_populations_total", "Total number of population rounds by outcome"},
		{&c.coalesced, "lazycache_coalesced_total", "Total number of callers that joined a running round"},
		{&c.retries, "lazycache_retries_total", "Total number of retried producer attempts"},
		{&c.removals, "lazycache_removals_total", "Total number of explicit removals"},
		{&c.expirations, "lazycache_expirations_total", "Total number of expired entries removed"},
	}
	for _, ctr := range counters {
		if *ctr.dst, err = meter.Int64Counter(ctr.name, metric.WithDescription(ctr.desc)); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordGet records a Get operation.
func (c *OTelMetricsCollector) RecordGet(latencyNs int64, hit bool) {
	ctx := context.Background()
	c.getLatency.Record(ctx, latencyNs)
	if hit {
		c.hits.Add(ctx, 1)
	} else {
		c.misses.Add(ctx, 1)
	}
}

// RecordPopulate records the end of a population round.
func (c *OTelMetricsCollector) RecordPopulate(latencyNs int64, success bool) {
	ctx := context.Background()
	outcome := c.failure
	if success {
		outcome = c.success
	}
	c.populateLatency.Record(ctx, latencyNs, outcome)
	c.populations.Add(ctx, 1, outcome)
}

// RecordCoalesced records a caller that joined a running round.
func (c *OTelMetricsCollector) RecordCoalesced() {
	c.coalesced.Add(context.Background(), 1)
}

// RecordRetry records a retried producer attempt.
func (c *OTelMetricsCollector) RecordRetry() {
	c.retries.Add(context.Background(), 1)
}

// RecordRemove records an explicit removal.
func (c *OTelMetricsCollector) RecordRemove() {
	c.removals.Add(context.Background(), 1)
}

// RecordExpiration records an expired entry being removed.
func (c *OTelMetricsCollector) RecordExpiration() {
	c.expirations.Add(context.Background(), 1)
}

// Compile-time interface check
var _ lazycache.MetricsCollector = (*OTelMetricsCollector)(nil)
