// config_test.go: tests for configuration normalisation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"testing"
	"time"

	"github.com/agilira/lazycache/retry"
)

// TestConfigValidate_Defaults tests that the zero Config becomes usable
func TestConfigValidate_Defaults(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate should never fail, got: %v", err)
	}

	if cfg.ShardCount != DefaultShardCount {
		t.Errorf("Expected ShardCount %d, got: %d", DefaultShardCount, cfg.ShardCount)
	}
	if cfg.RetryPolicy.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Expected MaxAttempts %d, got: %d", DefaultMaxAttempts, cfg.RetryPolicy.MaxAttempts)
	}
	if cfg.DefaultExpiration != Never() {
		t.Errorf("Expected default expiration never, got: %s", cfg.DefaultExpiration)
	}
	if cfg.Logger == nil || cfg.Clock == nil || cfg.MetricsCollector == nil || cfg.TracerProvider == nil {
		t.Error("Expected every dependency to be filled in")
	}
	if cfg.PopulateTimeout != 0 || cfg.CleanupInterval != 0 {
		t.Error("Expected timeouts to stay disabled")
	}
}

// TestConfigValidate_Normalisation tests out-of-range values
func TestConfigValidate_Normalisation(t *testing.T) {
	cfg := Config{
		ShardCount:        10,
		RetryPolicy:       retry.Policy{MaxAttempts: 4, Backoff: retry.Backoff{Kind: retry.BackoffFixed, Delay: -time.Second}},
		DefaultExpiration: Sliding(-time.Second),
		PopulateTimeout:   -time.Second,
		CleanupInterval:   time.Millisecond,
	}
	_ = cfg.Validate()

	if cfg.ShardCount != 16 {
		t.Errorf("Expected ShardCount rounded to 16, got: %d", cfg.ShardCount)
	}
	if cfg.RetryPolicy.MaxAttempts != 4 {
		t.Errorf("Expected MaxAttempts preserved, got: %d", cfg.RetryPolicy.MaxAttempts)
	}
	if cfg.RetryPolicy.Backoff.Kind != retry.BackoffNone {
		t.Errorf("Expected invalid backoff dropped, got: %s", cfg.RetryPolicy.Backoff.Kind)
	}
	if cfg.DefaultExpiration != Never() {
		t.Errorf("Expected invalid default expiration replaced, got: %s", cfg.DefaultExpiration)
	}
	if cfg.PopulateTimeout != 0 {
		t.Errorf("Expected negative timeout cleared, got: %v", cfg.PopulateTimeout)
	}
	if cfg.CleanupInterval != minCleanupInterval {
		t.Errorf("Expected cleanup interval raised to %v, got: %v", minCleanupInterval, cfg.CleanupInterval)
	}
}

// TestDefaultConfig tests the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ShardCount != DefaultShardCount {
		t.Errorf("Expected ShardCount %d, got: %d", DefaultShardCount, cfg.ShardCount)
	}
	if err := cfg.RetryPolicy.Validate(); err != nil {
		t.Errorf("Default retry policy should be valid, got: %v", err)
	}

	cache := NewCache(cfg)
	defer func() { _ = cache.Close() }()
	if cache.DefaultExpiration() != Never() {
		t.Errorf("Expected never, got: %s", cache.DefaultExpiration())
	}
}

// TestSystemClock tests that the cached clock tracks wall time
func TestSystemClock(t *testing.T) {
	clock := &systemClock{}
	now := time.Now().UnixNano()
	if diff := clock.Now() - now; diff > int64(time.Second) || diff < -int64(time.Second) {
		t.Errorf("System clock drifted by %v", time.Duration(diff))
	}
}
