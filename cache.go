// cache.go: lazily populated cache built on the sharded entry store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/agilira/lazycache/retry"
)

// lazyCache implements Cache.
type lazyCache struct {
	// Configuration (immutable after creation)
	clock           Clock
	logger          Logger
	metrics         MetricsCollector
	tracer          trace.Tracer
	populateTimeout time.Duration
	onRetry         func(key string, attempt, maxAttempts int, err error)
	onExpire        func(key string, value interface{})
	onRemove        func(key string, value interface{})

	// Runtime-replaceable policies
	retryPolicy       atomic.Pointer[retry.Policy]
	defaultExpiration atomic.Pointer[ExpirationPolicy]

	store *store
	group singleflight.Group

	// Background sweeper ownership
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	// Statistics counters
	hits        atomic.Uint64
	misses      atomic.Uint64
	populations atomic.Uint64
	coalesced   atomic.Uint64
	retries     atomic.Uint64
	failures    atomic.Uint64
	discarded   atomic.Uint64
	expirations atomic.Uint64
	removals    atomic.Uint64
}

// NewCache creates a new cache. The configuration is normalised with
// Config.Validate. When CleanupInterval > 0 a background sweeper is started;
// call Close to stop it.
func NewCache(config Config) Cache {
	_ = config.Validate()

	ctx, cancel := context.WithCancel(context.Background())

	c := &lazyCache{
		clock:           config.Clock,
		logger:          config.Logger,
		metrics:         config.MetricsCollector,
		tracer:          config.TracerProvider.Tracer(tracerName),
		populateTimeout: config.PopulateTimeout,
		onRetry:         config.OnRetry,
		onExpire:        config.OnExpire,
		onRemove:        config.OnRemove,
		store:           newStore(config.ShardCount),
		ctx:             ctx,
		cancel:          cancel,
	}

	policy := config.RetryPolicy
	c.retryPolicy.Store(&policy)
	defaultExpiration := config.DefaultExpiration
	c.defaultExpiration.Store(&defaultExpiration)

	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(config.CleanupInterval)
	}

	return c
}

// Get retrieves a live value. Expired entries found here are removed.
func (c *lazyCache) Get(key string) (interface{}, bool) {
	start := time.Now()
	value, found := c.lookup(key)
	c.metrics.RecordGet(time.Since(start).Nanoseconds(), found)
	return value, found
}

func (c *lazyCache) lookup(key string) (interface{}, bool) {
	sh := c.store.shardFor(key)
	e := sh.get(key)
	if e == nil {
		c.misses.Add(1)
		return nil, false
	}

	now := c.clock.Now()
	if isExpired(e, now) {
		// Lazy eviction: only the reader that wins the removal reports it
		if sh.removeIf(key, e) {
			c.expired(e)
		}
		c.misses.Add(1)
		return nil, false
	}

	if e.kind == expireSliding {
		e.touch(now)
	}
	c.hits.Add(1)
	return e.value, true
}

// Lookup retrieves a live value or returns LAZYCACHE_KEY_NOT_FOUND.
func (c *lazyCache) Lookup(key string) (interface{}, error) {
	if key == "" {
		return nil, NewErrEmptyKey("Lookup")
	}
	if value, found := c.Get(key); found {
		return value, nil
	}
	return nil, NewErrKeyNotFound(key)
}

// Set stores value under key and revokes any round in flight for key.
func (c *lazyCache) Set(key string, value interface{}, policy ExpirationPolicy) error {
	if key == "" {
		return NewErrEmptyKey("Set")
	}
	if c.closed.Load() {
		return NewErrCacheClosed("Set")
	}
	if err := policy.validate(); err != nil {
		return err
	}

	sh := c.store.shardFor(key)
	sh.put(newEntry(key, value, c.resolve(policy), c.clock.Now()))
	c.group.Forget(key)
	return nil
}

// Remove deletes key. A round in flight for key loses its right to commit,
// and later callers start a fresh round instead of joining it.
func (c *lazyCache) Remove(key string) bool {
	if key == "" {
		return false
	}

	e := c.store.shardFor(key).remove(key)
	c.group.Forget(key)
	if e == nil {
		return false
	}

	if isExpired(e, c.clock.Now()) {
		c.expired(e)
		return false
	}

	c.removals.Add(1)
	c.metrics.RecordRemove()
	if c.onRemove != nil {
		safeCall(func() { c.onRemove(key, e.value) })
	}
	return true
}

// Has reports whether key is live without touching it.
func (c *lazyCache) Has(key string) bool {
	e := c.store.shardFor(key).get(key)
	return e != nil && !isExpired(e, c.clock.Now())
}

// Len returns the number of stored entries.
func (c *lazyCache) Len() int {
	return c.store.len()
}

// Clear removes all entries, revokes rounds in flight and resets statistics.
func (c *lazyCache) Clear() {
	for _, key := range c.store.clear() {
		c.group.Forget(key)
	}

	c.hits.Store(0)
	c.misses.Store(0)
	c.populations.Store(0)
	c.coalesced.Store(0)
	c.retries.Store(0)
	c.failures.Store(0)
	c.discarded.Store(0)
	c.expirations.Store(0)
	c.removals.Store(0)
}

// Configure replaces the retry policy. Rounds already running keep the
// policy they started with.
func (c *lazyCache) Configure(policy retry.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	c.retryPolicy.Store(&policy)
	c.logger.Info("retry policy updated",
		"max_attempts", policy.MaxAttempts,
		"backoff", policy.Backoff.Kind.String(),
		"delay", policy.Backoff.Delay,
		"max_delay", policy.Backoff.MaxDelay)
	return nil
}

// RetryPolicy returns the retry policy currently in effect.
func (c *lazyCache) RetryPolicy() retry.Policy {
	return *c.retryPolicy.Load()
}

// SetDefaultExpiration replaces the policy applied to the zero ExpirationPolicy.
func (c *lazyCache) SetDefaultExpiration(policy ExpirationPolicy) error {
	if policy.IsDefault() {
		return NewErrInvalidPolicy(policy.String(), "cache default must be a concrete policy")
	}
	if err := policy.validate(); err != nil {
		return err
	}
	c.defaultExpiration.Store(&policy)
	c.logger.Info("default expiration updated", "policy", policy.String())
	return nil
}

// DefaultExpiration returns the policy applied to the zero ExpirationPolicy.
func (c *lazyCache) DefaultExpiration() ExpirationPolicy {
	return *c.defaultExpiration.Load()
}

// resolve maps the zero policy to the cache default.
func (c *lazyCache) resolve(policy ExpirationPolicy) ExpirationPolicy {
	if policy.IsDefault() {
		return *c.defaultExpiration.Load()
	}
	return policy
}

// Stats returns cache statistics.
func (c *lazyCache) Stats() CacheStats {
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Populations: c.populations.Load(),
		Coalesced:   c.coalesced.Load(),
		Retries:     c.retries.Load(),
		Failures:    c.failures.Load(),
		Discarded:   c.discarded.Load(),
		Expirations: c.expirations.Load(),
		Removals:    c.removals.Load(),
		Size:        c.store.len(),
	}
}

// Close stops the background sweeper and clears the cache.
// It is safe to call Close more than once.
func (c *lazyCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	c.Clear()
	return nil
}

// expired reports an entry removed because it expired.
func (c *lazyCache) expired(e *entry) {
	c.expirations.Add(1)
	c.metrics.RecordExpiration()
	if c.onExpire != nil {
		safeCall(func() { c.onExpire(e.key, e.value) })
	}
}

// safeCall runs a user callback, discarding any panic.
func safeCall(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
