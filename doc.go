// Package lazycache provides a thread-safe, in-memory cache whose entries are
// produced on demand by caller-supplied functions.
//
// # Overview
//
// A lookup either returns a live cached value or runs a producer, stores
// what it returns and hands it to every caller that asked for the key in the
// meantime. lazycache focuses on:
//   - Single-flight population: N concurrent misses for a key run the producer once
//   - Bounded retries: every producer call runs under a retry policy
//   - Per-entry expiration: absolute, relative, sliding or never
//   - Type Safety: Generic API with compile-time type checking
//   - Observability: structured logging, OpenTelemetry spans and metrics, Prometheus
//
// # Quick Start
//
//	import "github.com/agilira/lazycache"
//
//	type User struct {
//	    ID   int
//	    Name string
//	}
//
//	func main() {
//	    cache := lazycache.NewGenericCache[int, User](lazycache.Config{
//	        DefaultExpiration: lazycache.Sliding(10 * time.Minute),
//	    })
//	    defer cache.Close()
//
//	    user, err := cache.GetOrAdd(123, func() (User, error) {
//	        return fetchUserFromDB(123)
//	    }, lazycache.ExpirationPolicy{}) // zero policy: use the cache default
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(user.Name)
//	}
//
// # Population Rounds
//
// The first caller that misses a key starts a population round; callers that
// miss the same key while it runs join it instead of starting their own. A
// round calls the producer up to RetryPolicy.MaxAttempts times and ends with
// either a value, which is stored and returned to every waiter, or an error,
// which is returned to every waiter and never stored.
//
// Rounds are detached from caller contexts. GetOrAddWithContext returns
// LAZYCACHE_CANCELLED as soon as the caller's context ends, but the round
// keeps running for the remaining waiters and still stores its value.
// Config.PopulateTimeout is the only deadline that can abort a round.
//
// A round starts when it registers itself on the key's shard, before any
// timeout or span is set up. Registration re-checks the store under the same
// lock, so a caller that missed just as another round committed gets the
// committed value instead of running the producer again; it is counted as
// coalesced.
//
// Remove, Set and Clear revoke any round in flight for the affected keys: a
// revoked round still answers its waiters but does not write its value back,
// and later callers start a fresh round. A Remove that lands before a round
// has registered does not affect it.
//
// # Retries
//
// The retry policy is replaceable at runtime with Configure:
//
//	err := cache.Configure(retry.Policy{
//	    MaxAttempts: 5,
//	    Backoff:     retry.Exponential(10*time.Millisecond, time.Second).WithJitter(0.2),
//	    RetryIf: func(err error) bool {
//	        return !errors.Is(err, sql.ErrNoRows)
//	    },
//	})
//
// Config.OnRetry observes every failed attempt that will be retried. When all
// attempts fail the caller receives LAZYCACHE_RETRIES_EXHAUSTED wrapping the
// last failure; errors.Is reaches the producer's own error.
//
// # Expiration
//
// Each entry carries its own policy:
//
//	lazycache.Never()                    // lives until removed
//	lazycache.Absolute(deadline)         // expires at a wall-clock instant
//	lazycache.ExpiresIn(time.Hour)       // expires a fixed duration after it was stored
//	lazycache.Sliding(10 * time.Minute)  // expires after a period without reads
//	lazycache.ExpirationPolicy{}         // the cache default
//
// Expired entries are never returned. They are removed lazily when read, by
// Sweep, and by a background sweeper when Config.CleanupInterval is set.
// ParseExpiration reads the textual form used by configuration files, e.g.
// "never", "absolute-in:30s", "sliding:5m".
//
// # Decorators
//
// Cached and Memoize turn plain functions into cached ones:
//
//	getUser := lazycache.Memoize(cache, func(id int) string {
//	    return lazycache.Key("user", id)
//	}, lazycache.Sliding(10*time.Second), fetchUser)
//	user, err := getUser(42)
//
// # Observability
//
// Stats returns counters for hits, misses, rounds, coalesced callers,
// retries, failures, discarded rounds, expirations and removals.
//
// Config.MetricsCollector receives per-operation measurements. Two
// implementations ship with the module:
//   - github.com/agilira/lazycache/otel: OpenTelemetry metric instruments
//   - github.com/agilira/lazycache/prometheus: native Prometheus collectors
//
// Config.TracerProvider produces one span per population round, with an
// event for each retried attempt.
//
// # Hot Reload
//
// HotConfig watches a configuration file with github.com/agilira/argus and
// applies the retry policy and default expiration it contains to a running
// cache.
//
// # Error Handling
//
// All errors are structured github.com/agilira/go-errors values:
//   - LAZYCACHE_EMPTY_KEY: Empty key provided
//   - LAZYCACHE_INVALID_PRODUCER: Producer function is nil
//   - LAZYCACHE_INVALID_POLICY: Unusable expiration policy
//   - LAZYCACHE_INVALID_RETRY_POLICY: Unusable retry policy
//   - LAZYCACHE_PRODUCER_FAILED: A producer attempt failed or panicked
//   - LAZYCACHE_RETRIES_EXHAUSTED: Every permitted attempt failed
//   - LAZYCACHE_PRODUCER_TIMEOUT: The round exceeded Config.PopulateTimeout
//   - LAZYCACHE_CANCELLED: The caller's context ended while waiting
//   - LAZYCACHE_KEY_NOT_FOUND: Lookup on a missing key
//   - LAZYCACHE_CACHE_CLOSED: Write on a closed cache
//
// Use the Is* helpers (IsRetriesExhausted, IsTimeout, IsCancelled, ...) to
// test for a code anywhere in the wrap chain.
//
// # Packages
//
//   - github.com/agilira/lazycache: Core cache implementation
//   - github.com/agilira/lazycache/retry: Generic retry executor
//   - github.com/agilira/lazycache/otel: OpenTelemetry metrics collector
//   - github.com/agilira/lazycache/prometheus: Prometheus metrics collector
//   - github.com/agilira/lazycache/cmd/lazycache: Demonstration CLI
package lazycache
