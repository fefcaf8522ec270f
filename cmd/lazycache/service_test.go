// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilira/lazycache"
)

func newTestService(t *testing.T, fetch Fetcher) (*DataService, lazycache.Cache) {
	t.Helper()
	cache := lazycache.NewCache(lazycache.DefaultConfig())
	t.Cleanup(func() { _ = cache.Close() })
	return NewDataService(cache, fetch), cache
}

func TestDataService_GetData(t *testing.T) {
	svc, cache := newTestService(t, fetchFromDatabase)

	v, err := svc.GetData(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Data for Id 42", v)

	_, err = svc.GetData(context.Background(), 42)
	require.NoError(t, err)
	assert.EqualValues(t, 1, svc.Calls())
	assert.True(t, cache.Has("data:42"))
}

func TestDataService_KeysAreNamespaced(t *testing.T) {
	svc, cache := newTestService(t, fetchFromDatabase)
	ctx := context.Background()

	_, err := svc.GetData(ctx, 1)
	require.NoError(t, err)
	_, err = svc.GetDataWithExpiration(ctx, 1, time.Minute)
	require.NoError(t, err)
	_, err = svc.GetDataWithSlidingExpiration(ctx, 1, time.Minute)
	require.NoError(t, err)
	_, err = svc.GetDataMemoized(1)
	require.NoError(t, err)

	assert.EqualValues(t, 4, svc.Calls())
	assert.Equal(t, 4, cache.Len())
}

func TestDataService_ConcurrentColdReads(t *testing.T) {
	svc, _ := newTestService(t, slowFetcher(50*time.Millisecond, fetchFromDatabase))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.GetData(context.Background(), 9)
			assert.NoError(t, err)
			assert.Equal(t, "Data for Id 9", v)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, svc.Calls())
}

func TestFailingFetcher(t *testing.T) {
	fetch := failingFetcher(2, fetchFromDatabase)
	ctx := context.Background()

	_, err := fetch(ctx, 1)
	assert.Error(t, err)
	_, err = fetch(ctx, 1)
	assert.Error(t, err)
	v, err := fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Data for Id 1", v)
}

func TestSlowFetcher_HonoursContext(t *testing.T) {
	fetch := slowFetcher(time.Second, fetchFromDatabase)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fetch(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
