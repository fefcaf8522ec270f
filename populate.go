// populate.go: GetOrAdd with single-flight population and retries
//
// Concurrent misses for the same key share one population round: the first
// caller starts it, later callers join it, and all of them observe the same
// outcome. The round runs the producer under the cache's retry policy and
// commits the value unless the key was removed or overwritten meanwhile.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package lazycache

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/agilira/lazycache/retry"
)

// GetOrAdd returns the live value for key, or produces and stores it.
//
// Returns:
//   - value: The cached or produced value
//   - error: LAZYCACHE_EMPTY_KEY, LAZYCACHE_INVALID_PRODUCER, LAZYCACHE_INVALID_POLICY,
//     LAZYCACHE_RETRIES_EXHAUSTED wrapping the last LAZYCACHE_PRODUCER_FAILED,
//     or LAZYCACHE_PRODUCER_TIMEOUT when Config.PopulateTimeout is exceeded
//
// Example:
//
//	value, err := cache.GetOrAdd("user:123", func() (interface{}, error) {
//	    return fetchUserFromDB(123)
//	}, lazycache.Sliding(10*time.Minute))
func (c *lazyCache) GetOrAdd(key string, producer Producer, policy ExpirationPolicy) (interface{}, error) {
	var p ContextProducer
	if producer != nil {
		p = func(context.Context) (interface{}, error) { return producer() }
	}
	return c.getOrAdd(context.Background(), "GetOrAdd", key, p, policy)
}

// GetOrAddWithContext is like GetOrAdd but returns LAZYCACHE_CANCELLED as soon
// as ctx ends. The round itself is detached from ctx: it keeps running for the
// other callers and still commits its value. Only Config.PopulateTimeout can
// abort it.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	value, err := cache.GetOrAddWithContext(ctx, "user:123", func(ctx context.Context) (interface{}, error) {
//	    return fetchUserFromDBWithContext(ctx, 123)
//	}, lazycache.ExpiresIn(time.Hour))
func (c *lazyCache) GetOrAddWithContext(ctx context.Context, key string, producer ContextProducer, policy ExpirationPolicy) (interface{}, error) {
	return c.getOrAdd(ctx, "GetOrAddWithContext", key, producer, policy)
}

func (c *lazyCache) getOrAdd(ctx context.Context, op, key string, producer ContextProducer, policy ExpirationPolicy) (interface{}, error) {
	if key == "" {
		return nil, NewErrEmptyKey(op)
	}
	if c.closed.Load() {
		return nil, NewErrCacheClosed(op)
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}

	// Fast path: a live entry never reaches the producer
	if value, found := c.Get(key); found {
		return value, nil
	}

	if producer == nil {
		return nil, NewErrInvalidProducer(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewErrCancelled(key, err)
	}

	var owner atomic.Bool
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// The round starts here: a Remove, Set or Clear from this point on
		// revokes it. A round that committed after our miss is reused.
		sh := c.store.shardFor(key)
		e, tok := sh.open(key, c.clock.Now())
		if e != nil {
			return e.value, nil
		}
		owner.Store(true)
		return c.populate(ctx, sh, tok, key, producer, policy)
	})

	select {
	case res := <-ch:
		if !owner.Load() {
			c.coalesced.Add(1)
			c.metrics.RecordCoalesced()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		// Leave the round running; it belongs to every caller of this key
		return nil, NewErrCancelled(key, ctx.Err())
	}
}

// populate runs one population round on behalf of every caller of key.
// tok must already be registered on sh.
func (c *lazyCache) populate(callerCtx context.Context, sh *shard, tok *commitToken, key string, producer ContextProducer, policy ExpirationPolicy) (interface{}, error) {
	ctx := context.WithoutCancel(callerCtx)
	if c.populateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.populateTimeout)
		defer cancel()
	}

	ctx, span := c.startPopulateSpan(ctx, key)
	defer span.End()

	c.populations.Add(1)

	attempts := 0
	start := time.Now()
	value, err := retry.Execute(ctx, c.RetryPolicy(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return c.invoke(ctx, key, producer)
	}, retry.WithNotifier(func(attempt, maxAttempts int, err error) {
		c.retried(span, key, attempt, maxAttempts, err)
	}))
	latency := time.Since(start).Nanoseconds()

	if err != nil {
		sh.release(key, tok)
		if ctx.Err() != nil {
			err = NewErrProducerTimeout(key, c.populateTimeout.String(), err)
		}
		c.failures.Add(1)
		c.metrics.RecordPopulate(latency, false)
		c.logger.Error("population failed", "key", key, "attempts", attempts, "error", err)
		endPopulateSpan(span, attempts, false, err)
		return nil, err
	}

	c.metrics.RecordPopulate(latency, true)
	committed := sh.commit(tok, newEntry(key, value, c.resolve(policy), c.clock.Now()))
	if !committed {
		c.discarded.Add(1)
		c.logger.Debug("discarding produced value, key was removed or overwritten", "key", key)
	}
	endPopulateSpan(span, attempts, committed, nil)
	return value, nil
}

// invoke runs a single producer attempt, turning panics into errors so a
// misbehaving producer cannot take down the process.
func (c *lazyCache) invoke(ctx context.Context, key string, producer ContextProducer) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = NewErrProducerFailed(key, NewErrPanicRecovered("GetOrAdd:"+key, r))
		}
	}()

	value, err = producer(ctx)
	if err != nil {
		return nil, NewErrProducerFailed(key, err)
	}
	return value, nil
}

// retried reports a failed attempt that will be followed by another one.
func (c *lazyCache) retried(span trace.Span, key string, attempt, maxAttempts int, err error) {
	c.retries.Add(1)
	c.metrics.RecordRetry()
	c.logger.Warn("producer failed, retrying",
		"key", key,
		"attempt", attempt,
		"max_attempts", maxAttempts,
		"error", err)
	recordRetryEvent(span, attempt, maxAttempts, err)
	if c.onRetry != nil {
		safeCall(func() { c.onRetry(key, attempt, maxAttempts, err) })
	}
}
