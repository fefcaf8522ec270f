// populate_test.go: tests for GetOrAdd, single-flight and retries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agilira/lazycache/retry"
)

// TestGetOrAdd_CacheHit verifies that GetOrAdd returns cached value without calling producer
func TestGetOrAdd_CacheHit(t *testing.T) {
	cache := newTestCache(t, nil)
	_ = cache.Set("key1", "cached_value", Never())

	called := false
	value, err := cache.GetOrAdd("key1", func() (interface{}, error) {
		called = true
		return "produced_value", nil
	}, Never())

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if value != "cached_value" {
		t.Errorf("Expected 'cached_value', got: %v", value)
	}
	if called {
		t.Error("Producer should not be called on cache hit")
	}
}

// TestGetOrAdd_CacheMiss verifies the producer result is returned and stored
func TestGetOrAdd_CacheMiss(t *testing.T) {
	cache := newTestCache(t, nil)

	value, err := cache.GetOrAdd("key1", func() (interface{}, error) {
		return "produced_value", nil
	}, Never())
	if err != nil || value != "produced_value" {
		t.Fatalf("Expected 'produced_value', got: %v, %v", value, err)
	}

	cached, found := cache.Get("key1")
	if !found || cached != "produced_value" {
		t.Errorf("Value should be cached after production, got: %v, %v", cached, found)
	}
	if cache.Stats().Populations != 1 {
		t.Errorf("Expected 1 population, got: %d", cache.Stats().Populations)
	}
}

// TestGetOrAdd_InvalidInput tests argument validation
func TestGetOrAdd_InvalidInput(t *testing.T) {
	cache := newTestCache(t, nil)
	ok := func() (interface{}, error) { return 1, nil }

	if _, err := cache.GetOrAdd("", ok, Never()); !IsEmptyKey(err) {
		t.Errorf("Expected empty key error, got: %v", err)
	}
	if _, err := cache.GetOrAdd("k", nil, Never()); GetErrorCode(err) != ErrCodeInvalidProducer {
		t.Errorf("Expected invalid producer error, got: %v", err)
	}
	if _, err := cache.GetOrAdd("k", ok, ExpiresIn(-time.Second)); !IsConfigError(err) {
		t.Errorf("Expected invalid policy error, got: %v", err)
	}
	if _, err := cache.GetOrAddWithContext(context.Background(), "k", nil, Never()); GetErrorCode(err) != ErrCodeInvalidProducer {
		t.Errorf("Expected invalid producer error, got: %v", err)
	}
}

// TestGetOrAdd_SingleFlight is the stampede test: concurrent callers for one
// missing key share one producer invocation and all see its value.
func TestGetOrAdd_SingleFlight(t *testing.T) {
	cache := newTestCache(t, nil)

	const numGoroutines = 100
	var calls int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond) // Keep the round open while callers arrive
		return "produced_value", nil
	}

	results := make([]interface{}, numGoroutines)
	errs := make([]error, numGoroutines)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx], errs[idx] = cache.GetOrAdd("key", producer, Never())
		}(i)
	}
	close(start)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected producer to run once, ran %d times", n)
	}
	for i := 0; i < numGoroutines; i++ {
		if errs[i] != nil || results[i] != "produced_value" {
			t.Errorf("Caller %d got: %v, %v", i, results[i], errs[i])
		}
	}

	stats := cache.Stats()
	if stats.Populations != 1 {
		t.Errorf("Expected 1 population, got: %d", stats.Populations)
	}
	if stats.Coalesced == 0 {
		t.Error("Expected coalesced callers")
	}
}

// TestGetOrAdd_SingleFlightInstantProducer repeats the stampede with a
// producer that returns immediately, so late callers miss the cache while the
// round is already committing.
func TestGetOrAdd_SingleFlightInstantProducer(t *testing.T) {
	cache := newTestCache(t, nil)

	const rounds = 200
	const callers = 64

	for round := 0; round < rounds; round++ {
		key := "instant:" + strconv.Itoa(round)
		var calls int32
		producer := func() (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return round, nil
		}

		var wg sync.WaitGroup
		start := make(chan struct{})
		var failed atomic.Int32
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func() {
				defer wg.Done()
				<-start
				v, err := cache.GetOrAdd(key, producer, Never())
				if err != nil || v != round {
					failed.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Fatalf("Round %d: expected producer to run once, ran %d times", round, n)
		}
		if n := failed.Load(); n != 0 {
			t.Fatalf("Round %d: %d callers got a wrong value or an error", round, n)
		}
	}

	if got := cache.Stats().Populations; got != rounds {
		t.Errorf("Expected %d populations, got: %d", rounds, got)
	}
}

// TestGetOrAdd_DistinctKeysRunIndependently tests that single-flight is per key
func TestGetOrAdd_DistinctKeysRunIndependently(t *testing.T) {
	cache := newTestCache(t, nil)
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = cache.GetOrAdd(key, func() (interface{}, error) {
				started.Done()
				<-release
				return key, nil
			}, Never())
		}(key)
	}

	// Both producers must be running at the same time
	started.Wait()
	close(release)
	wg.Wait()

	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries, got: %d", cache.Len())
	}
}

// TestGetOrAdd_RetryBound: fail, fail, succeed yields the value after two
// retry notifications.
func TestGetOrAdd_RetryBound(t *testing.T) {
	type notification struct {
		key              string
		attempt, maximum int
	}
	var mu sync.Mutex
	var notes []notification

	cache := NewCache(Config{
		OnRetry: func(key string, attempt, maxAttempts int, err error) {
			mu.Lock()
			notes = append(notes, notification{key, attempt, maxAttempts})
			mu.Unlock()
		},
	})
	defer func() { _ = cache.Close() }()

	calls := 0
	value, err := cache.GetOrAdd("flaky", func() (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, Never())

	if err != nil || value != "ok" {
		t.Fatalf("Expected 'ok', got: %v, %v", value, err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 producer calls, got: %d", calls)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []notification{{"flaky", 1, 3}, {"flaky", 2, 3}}
	if len(notes) != len(want) {
		t.Fatalf("Expected %d notifications, got: %v", len(want), notes)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("Notification %d: expected %+v, got %+v", i, want[i], notes[i])
		}
	}
	if cache.Stats().Retries != 2 {
		t.Errorf("Expected 2 retries, got: %d", cache.Stats().Retries)
	}
}

// TestGetOrAdd_RetriesExhausted: an always-failing producer runs exactly
// MaxAttempts times, nothing is cached and the next call starts over.
func TestGetOrAdd_RetriesExhausted(t *testing.T) {
	cache := newTestCache(t, nil)

	cause := errors.New("database unavailable")
	calls := 0
	producer := func() (interface{}, error) {
		calls++
		return nil, cause
	}

	value, err := cache.GetOrAdd("key", producer, Never())
	if value != nil {
		t.Errorf("Expected nil value on error, got: %v", value)
	}
	if !IsRetriesExhausted(err) {
		t.Fatalf("Expected retries exhausted, got: %v", err)
	}
	if !IsProducerError(err) {
		t.Errorf("Expected producer error in chain, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause in chain, got: %v", err)
	}
	if GetErrorContext(err)["attempts"] != 3 {
		t.Errorf("Expected attempts=3 in context, got: %v", GetErrorContext(err))
	}
	if calls != 3 {
		t.Errorf("Expected 3 producer calls, got: %d", calls)
	}
	if cache.Has("key") || cache.Len() != 0 {
		t.Error("Failures must not be cached")
	}

	_, _ = cache.GetOrAdd("key", producer, Never())
	if calls != 6 {
		t.Errorf("Expected a fresh round after failure, got %d calls", calls)
	}
	if cache.Stats().Failures != 2 {
		t.Errorf("Expected 2 failed rounds, got: %d", cache.Stats().Failures)
	}
}

// TestGetOrAdd_FailureFanOut tests that every waiter sees the round's error
func TestGetOrAdd_FailureFanOut(t *testing.T) {
	cache := newTestCache(t, nil)
	if err := cache.Configure(retry.Policy{MaxAttempts: 1}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	var calls int32
	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return nil, errors.New("boom")
	}

	const numGoroutines = 20
	var wg sync.WaitGroup
	var failures int32
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrAdd("key", producer, Never()); IsRetriesExhausted(err) {
				atomic.AddInt32(&failures, 1)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("Expected 1 producer call, got: %d", calls)
	}
	if failures != numGoroutines {
		t.Errorf("Expected %d failed callers, got: %d", numGoroutines, failures)
	}
}

// TestGetOrAdd_RetryIf tests that non-retryable errors end the round at once
func TestGetOrAdd_RetryIf(t *testing.T) {
	cache := newTestCache(t, nil)
	permanent := errors.New("not found upstream")
	_ = cache.Configure(retry.Policy{
		MaxAttempts: 5,
		RetryIf: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	})

	calls := 0
	_, err := cache.GetOrAdd("key", func() (interface{}, error) {
		calls++
		return nil, permanent
	}, Never())

	if calls != 1 {
		t.Errorf("Expected 1 call, got: %d", calls)
	}
	if IsRetriesExhausted(err) || !IsProducerError(err) {
		t.Errorf("Expected a bare producer error, got: %v", err)
	}
}

// TestGetOrAdd_PanicRecovered tests that a panicking producer becomes an error
func TestGetOrAdd_PanicRecovered(t *testing.T) {
	cache := newTestCache(t, nil)

	_, err := cache.GetOrAdd("key", func() (interface{}, error) {
		panic("producer exploded")
	}, Never())

	if !IsPanicRecovered(err) {
		t.Fatalf("Expected panic recovered error, got: %v", err)
	}
	if !IsRetriesExhausted(err) {
		t.Errorf("Expected every attempt to be spent, got: %v", err)
	}
	if cache.Has("key") {
		t.Error("Nothing should be cached after a panic")
	}
}

// TestGetOrAdd_RemovalRace: a value produced after Remove reaches its
// callers but is not written back.
func TestGetOrAdd_RemovalRace(t *testing.T) {
	cache := newTestCache(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan interface{})
	go func() {
		value, _ := cache.GetOrAdd("key", func() (interface{}, error) {
			close(started)
			<-release
			return "stale", nil
		}, Never())
		done <- value
	}()

	<-started
	cache.Remove("key")
	close(release)

	if value := <-done; value != "stale" {
		t.Errorf("Caller should still receive the produced value, got: %v", value)
	}
	if _, found := cache.Get("key"); found {
		t.Error("Value produced across a Remove must not be stored")
	}
	if cache.Stats().Discarded != 1 {
		t.Errorf("Expected 1 discarded round, got: %d", cache.Stats().Discarded)
	}
}

// TestGetOrAdd_RemoveStartsFreshRound: callers arriving after Remove do not
// join the revoked round.
func TestGetOrAdd_RemoveStartsFreshRound(t *testing.T) {
	cache := newTestCache(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	oldDone := make(chan struct{})
	go func() {
		defer close(oldDone)
		_, _ = cache.GetOrAdd("key", func() (interface{}, error) {
			close(started)
			<-release
			return "old", nil
		}, Never())
	}()

	<-started
	cache.Remove("key")

	value, err := cache.GetOrAdd("key", func() (interface{}, error) {
		return "new", nil
	}, Never())
	if err != nil || value != "new" {
		t.Fatalf("Expected a fresh round to produce 'new', got: %v, %v", value, err)
	}

	close(release)
	<-oldDone

	if cached, _ := cache.Get("key"); cached != "new" {
		t.Errorf("Revoked round overwrote the fresh value: %v", cached)
	}
}

// TestGetOrAdd_SetDuringFlight tests that Set wins over a running round
func TestGetOrAdd_SetDuringFlight(t *testing.T) {
	cache := newTestCache(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetOrAdd("key", func() (interface{}, error) {
			close(started)
			<-release
			return "produced", nil
		}, Never())
	}()

	<-started
	_ = cache.Set("key", "explicit", Never())
	close(release)
	<-done

	if value, _ := cache.Get("key"); value != "explicit" {
		t.Errorf("Expected Set to win, got: %v", value)
	}
}

// TestGetOrAdd_ClearDuringFlight tests that Clear revokes running rounds
func TestGetOrAdd_ClearDuringFlight(t *testing.T) {
	cache := newTestCache(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetOrAdd("key", func() (interface{}, error) {
			close(started)
			<-release
			return "produced", nil
		}, Never())
	}()

	<-started
	cache.Clear()
	close(release)
	<-done

	if cache.Has("key") {
		t.Error("Round running across Clear must not be stored")
	}
}

// TestGetOrAddWithContext_WaiterCancellation: a waiter giving up does not
// affect the round or the other waiters.
func TestGetOrAddWithContext_WaiterCancellation(t *testing.T) {
	cache := newTestCache(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	producer := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "value", ctx.Err()
	}

	ownerCtx, cancelOwner := context.WithCancel(context.Background())
	ownerErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrAddWithContext(ownerCtx, "key", producer, Never())
		ownerErr <- err
	}()
	<-started

	waiterDone := make(chan interface{}, 1)
	go func() {
		v, _ := cache.GetOrAddWithContext(context.Background(), "key", producer, Never())
		waiterDone <- v
	}()

	cancelOwner()
	err := <-ownerErr
	if !IsCancelled(err) {
		t.Fatalf("Expected cancelled error, got: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got: %v", err)
	}

	close(release)
	if v := <-waiterDone; v != "value" {
		t.Errorf("Other waiter should get the value, got: %v", v)
	}
	if _, found := cache.Get("key"); !found {
		t.Error("Round should commit even though its first caller left")
	}
	if calls != 1 {
		t.Errorf("Expected 1 producer call, got: %d", calls)
	}
}

// TestGetOrAddWithContext_AlreadyCancelled tests that a dead context never starts a round
func TestGetOrAddWithContext_AlreadyCancelled(t *testing.T) {
	cache := newTestCache(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cache.GetOrAddWithContext(ctx, "key", func(context.Context) (interface{}, error) {
		called = true
		return 1, nil
	}, Never())

	if !IsCancelled(err) {
		t.Errorf("Expected cancelled error, got: %v", err)
	}
	if called {
		t.Error("Producer should not run for a cancelled caller")
	}
}

// TestGetOrAddWithContext_CachedValueIgnoresContext tests the hit path with a dead context
func TestGetOrAddWithContext_CachedValueIgnoresContext(t *testing.T) {
	cache := newTestCache(t, nil)
	_ = cache.Set("key", "cached", Never())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value, err := cache.GetOrAddWithContext(ctx, "key", func(context.Context) (interface{}, error) {
		return "produced", nil
	}, Never())
	if err != nil || value != "cached" {
		t.Errorf("Expected cached value, got: %v, %v", value, err)
	}
}

// TestGetOrAdd_PopulateTimeout: the round deadline fans out to every waiter.
func TestGetOrAdd_PopulateTimeout(t *testing.T) {
	cache := NewCache(Config{PopulateTimeout: 50 * time.Millisecond})
	defer func() { _ = cache.Close() }()

	var calls int32
	producer := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	const numGoroutines = 5
	var wg sync.WaitGroup
	errs := make([]error, numGoroutines)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = cache.GetOrAddWithContext(context.Background(), "slow", producer, Never())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !IsTimeout(err) {
			t.Errorf("Caller %d: expected timeout, got: %v", i, err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Caller %d: expected DeadlineExceeded in chain, got: %v", i, err)
		}
	}
	// No retry after the round deadline
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected 1 producer call, got: %d", n)
	}
	if cache.Has("slow") {
		t.Error("Timed out round must not be stored")
	}
}

// TestConfigure tests runtime replacement of the retry policy
func TestConfigure(t *testing.T) {
	cache := newTestCache(t, nil)

	if err := cache.Configure(retry.Policy{MaxAttempts: 0}); !IsConfigError(err) {
		t.Errorf("Expected invalid retry policy error, got: %v", err)
	}
	if cache.RetryPolicy().MaxAttempts != DefaultMaxAttempts {
		t.Error("Rejected policy must not replace the current one")
	}

	if err := cache.Configure(retry.Policy{MaxAttempts: 5}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	calls := 0
	_, _ = cache.GetOrAdd("key", func() (interface{}, error) {
		calls++
		return nil, errors.New("fail")
	}, Never())
	if calls != 5 {
		t.Errorf("Expected 5 attempts under the new policy, got: %d", calls)
	}
}
