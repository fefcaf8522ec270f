// service.go: demo data service fronted by a lazycache instance
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agilira/lazycache"
)

// Fetcher loads the record for id from the slow backing store.
type Fetcher func(ctx context.Context, id int) (string, error)

// fetchFromDatabase stands in for an expensive lookup.
func fetchFromDatabase(_ context.Context, id int) (string, error) {
	return fmt.Sprintf("Data for Id %d", id), nil
}

// slowFetcher delays every fetch by latency, or until ctx ends.
func slowFetcher(latency time.Duration, next Fetcher) Fetcher {
	if latency <= 0 {
		return next
	}
	return func(ctx context.Context, id int) (string, error) {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
		return next(ctx, id)
	}
}

// failingFetcher fails the first failures calls, then delegates to next.
func failingFetcher(failures int, next Fetcher) Fetcher {
	var calls atomic.Int64
	return func(ctx context.Context, id int) (string, error) {
		if n := calls.Add(1); n <= int64(failures) {
			return "", fmt.Errorf("backend unavailable (call %d)", n)
		}
		return next(ctx, id)
	}
}

// DataService serves records through the cache. Keys are explicit and built
// with lazycache.Key, one namespace per access pattern.
type DataService struct {
	cache lazycache.Cache
	fetch Fetcher
	calls atomic.Int64

	memoized func(int) (string, error)
}

// NewDataService creates a service reading through cache.
func NewDataService(cache lazycache.Cache, fetch Fetcher) *DataService {
	s := &DataService{cache: cache, fetch: fetch}
	s.memoized = lazycache.Memoize(cache, func(id int) string {
		return lazycache.Key("memo", id)
	}, lazycache.ExpirationPolicy{}, func(id int) (string, error) {
		return s.produce(context.Background(), id)
	})
	return s
}

func (s *DataService) produce(ctx context.Context, id int) (string, error) {
	s.calls.Add(1)
	return s.fetch(ctx, id)
}

func (s *DataService) get(ctx context.Context, key string, id int, policy lazycache.ExpirationPolicy) (string, error) {
	v, err := s.cache.GetOrAddWithContext(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.produce(ctx, id)
	}, policy)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetData returns the record for id under the cache default expiration.
func (s *DataService) GetData(ctx context.Context, id int) (string, error) {
	return s.get(ctx, lazycache.Key("data", id), id, lazycache.ExpirationPolicy{})
}

// GetDataWithExpiration caches the record for ttl, read or not.
func (s *DataService) GetDataWithExpiration(ctx context.Context, id int, ttl time.Duration) (string, error) {
	return s.get(ctx, lazycache.Key("absolute", id), id, lazycache.ExpiresIn(ttl))
}

// GetDataWithSlidingExpiration caches the record until it goes unread for window.
func (s *DataService) GetDataWithSlidingExpiration(ctx context.Context, id int, window time.Duration) (string, error) {
	return s.get(ctx, lazycache.Key("sliding", id), id, lazycache.Sliding(window))
}

// GetDataMemoized returns the record through a memoized function.
func (s *DataService) GetDataMemoized(id int) (string, error) {
	return s.memoized(id)
}

// Calls returns how many times the backing store was hit.
func (s *DataService) Calls() int64 {
	return s.calls.Load()
}
