// interfaces.go: public interfaces for lazycache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"context"

	"github.com/agilira/lazycache/retry"
)

// Producer computes the value for a missing key.
type Producer func() (interface{}, error)

// ContextProducer computes the value for a missing key and honours ctx.
// ctx belongs to the caller that owns the population round.
type ContextProducer func(ctx context.Context) (interface{}, error)

// Cache is a process-local, lazily populated cache.
// All methods must be safe for concurrent use.
type Cache interface {
	// Get retrieves a live value without ever invoking a producer.
	// Returns nil and false if the key is absent or expired.
	// A hit on a sliding entry refreshes its window.
	Get(key string) (value interface{}, found bool)

	// Lookup is like Get but reports a miss as a LAZYCACHE_KEY_NOT_FOUND error.
	Lookup(key string) (interface{}, error)

	// GetOrAdd returns the live value for key, or runs producer to create it.
	// Concurrent callers for the same missing key share one population round;
	// the producer runs under the cache's retry policy.
	// Failures are never cached.
	GetOrAdd(key string, producer Producer, policy ExpirationPolicy) (interface{}, error)

	// GetOrAddWithContext is like GetOrAdd but stops waiting when ctx ends.
	// A cancelled waiter does not affect the round or the other waiters.
	GetOrAddWithContext(ctx context.Context, key string, producer ContextProducer, policy ExpirationPolicy) (interface{}, error)

	// Set stores value under key, replacing any entry and discarding the
	// result of any round in flight for key.
	Set(key string, value interface{}, policy ExpirationPolicy) error

	// Remove deletes key. A round in flight for key will not write its
	// result back. Returns true if a live entry was removed.
	Remove(key string) bool

	// Has reports whether key holds a live entry. It does not touch sliding entries.
	Has(key string) bool

	// Len returns the number of stored entries, including expired entries
	// not yet swept.
	Len() int

	// Clear removes all entries and discards every round in flight.
	Clear()

	// Sweep removes every expired entry and returns how many were removed.
	Sweep() int

	// Configure replaces the retry policy used by subsequent rounds.
	Configure(policy retry.Policy) error

	// RetryPolicy returns the retry policy currently in effect.
	RetryPolicy() retry.Policy

	// SetDefaultExpiration replaces the policy used when callers pass the
	// zero ExpirationPolicy.
	SetDefaultExpiration(policy ExpirationPolicy) error

	// DefaultExpiration returns the policy applied to the zero ExpirationPolicy.
	DefaultExpiration() ExpirationPolicy

	// Stats returns cache statistics.
	Stats() CacheStats

	// Close stops the background sweeper and clears the cache.
	Close() error
}

// CacheStats provides statistics about cache behaviour.
type CacheStats struct {
	// Hits is the number of reads served from a live entry
	Hits uint64

	// Misses is the number of reads that found nothing live
	Misses uint64

	// Populations is the number of population rounds started
	Populations uint64

	// Coalesced is the number of callers that joined a round owned by another caller
	Coalesced uint64

	// Retries is the number of retry notifications emitted
	Retries uint64

	// Failures is the number of rounds that ended in error
	Failures uint64

	// Discarded is the number of successful rounds whose result was not
	// written back because the key was removed or overwritten meanwhile
	Discarded uint64

	// Expirations is the number of entries removed because they expired
	Expirations uint64

	// Removals is the number of explicit removals of live entries
	Removals uint64

	// Size is the current number of stored entries
	Size int
}

// HitRatio returns the cache hit ratio as a percentage (0-100).
// Returns 0.0 if no reads have been performed yet.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Logger defines a minimal structured logging interface.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil checks.
type NoOpLogger struct{}

// Debug does nothing (no-op implementation).
func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}

// Info does nothing (no-op implementation).
func (NoOpLogger) Info(msg string, keyvals ...interface{}) {}

// Warn does nothing (no-op implementation).
func (NoOpLogger) Warn(msg string, keyvals ...interface{}) {}

// Error does nothing (no-op implementation).
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// Clock supplies the current time for expiration checks.
// Inject a manual implementation for deterministic tests.
type Clock interface {
	// Now returns the current time in nanoseconds since epoch.
	Now() int64
}

// MetricsCollector receives cache events for export to a monitoring system.
// All methods must be safe for concurrent use and must not block.
type MetricsCollector interface {
	// RecordGet records a read with its latency and hit/miss result.
	RecordGet(latencyNs int64, hit bool)

	// RecordPopulate records the end of a population round owned by this
	// process, with the producer latency and whether it succeeded.
	RecordPopulate(latencyNs int64, success bool)

	// RecordCoalesced records a caller that joined an existing round.
	RecordCoalesced()

	// RecordRetry records a failed attempt that is followed by another one.
	RecordRetry()

	// RecordRemove records an explicit removal.
	RecordRemove()

	// RecordExpiration records an entry removed because it expired.
	RecordExpiration()
}

// NoOpMetricsCollector is a metrics collector that does nothing.
type NoOpMetricsCollector struct{}

// RecordGet does nothing.
func (NoOpMetricsCollector) RecordGet(latencyNs int64, hit bool) {}

// RecordPopulate does nothing.
func (NoOpMetricsCollector) RecordPopulate(latencyNs int64, success bool) {}

// RecordCoalesced does nothing.
func (NoOpMetricsCollector) RecordCoalesced() {}

// RecordRetry does nothing.
func (NoOpMetricsCollector) RecordRetry() {}

// RecordRemove does nothing.
func (NoOpMetricsCollector) RecordRemove() {}

// RecordExpiration does nothing.
func (NoOpMetricsCollector) RecordExpiration() {}
