// Package otel provides OpenTelemetry integration for lazycache metrics.
//
// # Overview
//
// This package implements the lazycache.MetricsCollector interface using
// OpenTelemetry. Population spans are produced by the core package through
// Config.TracerProvider; this package only covers metrics.
//
// # Quick Start
//
//	import (
//	    "github.com/agilira/lazycache"
//	    lazyotel "github.com/agilira/lazycache/otel"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	provider := metric.NewMeterProvider(metric.WithReader(reader))
//	defer provider.Shutdown(context.Background())
//
//	metricsCollector, err := lazyotel.NewOTelMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cache := lazycache.NewCache(lazycache.Config{
//	    MetricsCollector: metricsCollector,
//	})
//
// # Metrics Exposed
//
// Histograms:
//   - lazycache_get_latency_ns: Get() latency in nanoseconds
//   - lazycache_populate_latency_ns: population round latency, retries included,
//     labelled outcome=success|failure
//
// Counters:
//   - lazycache_get_hits_total, lazycache_get_misses_total
//   - lazycache_populations_total (outcome=success|failure)
//   - lazycache_coalesced_total: callers that joined a running round
//   - lazycache_retries_total: retried producer attempts
//   - lazycache_removals_total, lazycache_expirations_total
//
// # Prometheus Queries
//
// Producer calls saved by single-flight:
//
//	rate(lazycache_coalesced_total[5m])
//
// Population failure ratio:
//
//	rate(lazycache_populations_total{outcome="failure"}[5m]) /
//	rate(lazycache_populations_total[5m])
//
// Calculate hit ratio:
//
//	rate(lazycache_get_hits_total[5m]) /
//	(rate(lazycache_get_hits_total[5m]) + rate(lazycache_get_misses_total[5m]))
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package otel
