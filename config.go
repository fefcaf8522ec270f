// config.go: configuration for lazycache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"time"

	"github.com/agilira/go-timecache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/agilira/lazycache/retry"
)

// Config holds configuration parameters for the cache.
type Config struct {
	// ShardCount is the number of independently locked store shards.
	// Rounded up to a power of 2. Default: DefaultShardCount.
	ShardCount int

	// RetryPolicy wraps every producer invocation.
	// Default: 3 immediate attempts (retry.DefaultPolicy).
	RetryPolicy retry.Policy

	// DefaultExpiration applies when a caller passes the zero ExpirationPolicy.
	// Default: Never().
	DefaultExpiration ExpirationPolicy

	// PopulateTimeout bounds a whole population round, retries included.
	// Rounds are detached from caller contexts, so this is the only deadline
	// a producer sees; when it fires every waiter receives
	// LAZYCACHE_PRODUCER_TIMEOUT. If 0, rounds are unbounded.
	PopulateTimeout time.Duration

	// CleanupInterval enables a background sweep of expired entries.
	// If 0, expired entries are only removed when read or on Sweep().
	CleanupInterval time.Duration

	// Logger is used for debugging and monitoring.
	// If nil, NoOpLogger is used.
	Logger Logger

	// Clock provides current time for expiration checks.
	// If nil, a go-timecache backed clock is used.
	Clock Clock

	// MetricsCollector receives operation metrics.
	// If nil, NoOpMetricsCollector is used.
	MetricsCollector MetricsCollector

	// TracerProvider supplies the tracer used to create one span per
	// population round. If nil, otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// OnRetry is called after each failed attempt that will be retried.
	// It must be fast and non-blocking; panics are swallowed.
	OnRetry func(key string, attempt, maxAttempts int, err error)

	// OnExpire is called when an expired entry is removed.
	// It must be fast and non-blocking; panics are swallowed.
	OnExpire func(key string, value interface{})

	// OnRemove is called when Remove deletes a live entry.
	// It must be fast and non-blocking; panics are swallowed.
	OnRemove func(key string, value interface{})
}

// Validate normalises configuration parameters and applies defaults.
// Returns nil (no actual validation errors, only normalization).
//
// This method is automatically called by NewCache and NewGenericCache.
//
// Default values applied:
//   - ShardCount: DefaultShardCount if <= 0, else next power of 2
//   - RetryPolicy: DefaultMaxAttempts attempts if MaxAttempts < 1; no backoff if the backoff is invalid
//   - DefaultExpiration: Never() if unset or invalid
//   - PopulateTimeout, CleanupInterval: 0 if negative
//   - CleanupInterval: at least 10ms when enabled
//   - Logger: NoOpLogger{} if nil
//   - Clock: go-timecache clock if nil
//   - MetricsCollector: NoOpMetricsCollector{} if nil
//   - TracerProvider: otel.GetTracerProvider() if nil
func (c *Config) Validate() error {
	if c.ShardCount <= 0 {
		c.ShardCount = DefaultShardCount
	} else {
		c.ShardCount = nextPowerOf2(c.ShardCount)
	}

	if c.RetryPolicy.MaxAttempts < 1 {
		c.RetryPolicy.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryPolicy.Validate() != nil {
		c.RetryPolicy.Backoff = retry.None()
	}

	if c.DefaultExpiration.kind == expireDefault || c.DefaultExpiration.validate() != nil {
		c.DefaultExpiration = Never()
	}

	if c.PopulateTimeout < 0 {
		c.PopulateTimeout = 0
	}

	if c.CleanupInterval < 0 {
		c.CleanupInterval = 0
	} else if c.CleanupInterval > 0 && c.CleanupInterval < minCleanupInterval {
		c.CleanupInterval = minCleanupInterval
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}

	if c.Clock == nil {
		c.Clock = &systemClock{}
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}

	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShardCount:        DefaultShardCount,
		RetryPolicy:       retry.DefaultPolicy(),
		DefaultExpiration: Never(),
		Logger:            NoOpLogger{},
		Clock:             &systemClock{},
		MetricsCollector:  NoOpMetricsCollector{},
	}
}

// systemClock is the default clock using go-timecache.
// It avoids a time.Now() syscall on every read of the hot path.
type systemClock struct{}

func (*systemClock) Now() int64 {
	return timecache.CachedTimeNano()
}
