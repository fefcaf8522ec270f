// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"strings"
	"sync"
	"time"

	"github.com/agilira/argus"

	"github.com/agilira/lazycache/retry"
)

// maxReloadAttempts bounds cache.retry.max_attempts in configuration files.
const maxReloadAttempts = 100

// HotSettings are the cache settings that can change at runtime.
type HotSettings struct {
	RetryPolicy       retry.Policy
	DefaultExpiration ExpirationPolicy
}

// HotConfig provides dynamic configuration reload capabilities using Argus.
// It watches a configuration file and applies the retry policy and the
// default expiration to the cache whenever the file changes.
type HotConfig struct {
	cache    Cache
	watcher  *argus.Watcher
	logger   Logger
	baseline HotSettings

	mu       sync.RWMutex
	settings HotSettings

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldSettings, newSettings HotSettings)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldSettings, newSettings HotSettings)

	// Logger for hot reload operations.
	// If nil, NoOpLogger is used.
	Logger Logger
}

// NewHotConfig creates a new hot-reloadable configuration for a cache.
// Call Start to begin watching.
//
// Example configuration file (YAML):
//
//	cache:
//	  default_expiration: "sliding:10s"
//	  retry:
//	    max_attempts: 3
//	    backoff: exponential
//	    delay: 50ms
//	    max_delay: 1s
//	    jitter: 0.1
//
// Supported configuration keys:
//   - cache.default_expiration (string): never | absolute-in:<d> | sliding:<d>
//   - cache.retry.max_attempts (int): 1-100
//   - cache.retry.backoff (string): none | fixed | exponential
//   - cache.retry.delay (duration string): fixed delay or exponential base
//   - cache.retry.max_delay (duration string): exponential cap
//   - cache.retry.jitter (float): 0.0-1.0
//
// Keys missing from the file fall back to the settings the cache had when
// NewHotConfig was called. Invalid values are logged and ignored.
func NewHotConfig(cache Cache, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, NewErrInvalidConfig("config_path", opts.ConfigPath)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	baseline := HotSettings{
		RetryPolicy:       cache.RetryPolicy(),
		DefaultExpiration: cache.DefaultExpiration(),
	}

	hc := &HotConfig{
		cache:    cache,
		logger:   opts.Logger,
		baseline: baseline,
		settings: baseline,
		OnReload: opts.OnReload,
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	// Check if already running to avoid ARGUS_WATCHER_BUSY error
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// Settings returns the settings most recently applied (thread-safe).
func (hc *HotConfig) Settings() HotSettings {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.settings
}

// handleConfigChange is called by Argus when configuration changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldSettings := hc.settings
	newSettings := hc.parseSettings(configData)
	applied := hc.applyChanges(newSettings)
	hc.settings = applied
	hc.mu.Unlock()

	if hc.OnReload != nil {
		safeCall(func() { hc.OnReload(oldSettings, applied) })
	}
}

// parseIntInRange extracts an integer within the specified range [min, max].
// Supports int, int64 and float64 (YAML/JSON may vary).
func parseIntInRange(value interface{}, min, max int) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= min && v <= max {
			return v, true
		}
	case int64:
		if v >= int64(min) && v <= int64(max) {
			return int(v), true
		}
	case float64:
		if v >= float64(min) && v <= float64(max) {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a non-negative time.Duration from a string value.
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(str)); err == nil && d >= 0 {
			return d, true
		}
	}
	return 0, false
}

// parseFloatInRange extracts a float64 within the specified range [min, max].
func parseFloatInRange(value interface{}, min, max float64) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, false
	}
	if f >= min && f <= max {
		return f, true
	}
	return 0, false
}

// parseSettings extracts the hot settings from Argus config data.
func (hc *HotConfig) parseSettings(data map[string]interface{}) HotSettings {
	settings := hc.baseline

	// Extract cache section - Argus might nest it or provide it directly
	cacheSection, ok := data["cache"].(map[string]interface{})
	if !ok {
		_, hasRetry := data["retry"]
		_, hasExpiration := data["default_expiration"]
		if !hasRetry && !hasExpiration {
			return settings
		}
		cacheSection = data
	}

	if raw, ok := cacheSection["default_expiration"]; ok {
		s, _ := raw.(string)
		policy, err := ParseExpiration(s)
		if err != nil || policy.IsDefault() {
			hc.logger.Warn("ignoring invalid default_expiration", "value", raw)
		} else {
			settings.DefaultExpiration = policy
		}
	}

	retrySection, ok := cacheSection["retry"].(map[string]interface{})
	if !ok {
		return settings
	}

	policy := settings.RetryPolicy
	if raw, ok := retrySection["max_attempts"]; ok {
		if n, ok := parseIntInRange(raw, 1, maxReloadAttempts); ok {
			policy.MaxAttempts = n
		} else {
			hc.logger.Warn("ignoring invalid retry.max_attempts", "value", raw)
		}
	}
	if raw, ok := retrySection["backoff"]; ok {
		s, _ := raw.(string)
		if kind, ok := retry.ParseBackoffKind(s); ok {
			policy.Backoff.Kind = kind
		} else {
			hc.logger.Warn("ignoring invalid retry.backoff", "value", raw)
		}
	}
	if d, ok := parseDuration(retrySection["delay"]); ok {
		policy.Backoff.Delay = d
	}
	if d, ok := parseDuration(retrySection["max_delay"]); ok {
		policy.Backoff.MaxDelay = d
	}
	if j, ok := parseFloatInRange(retrySection["jitter"], 0, 1); ok {
		policy.Backoff.Jitter = j
	}

	if err := policy.Validate(); err != nil {
		hc.logger.Warn("ignoring invalid retry policy", "error", err)
	} else {
		settings.RetryPolicy = policy
	}

	return settings
}

// applyChanges pushes settings into the running cache and returns what
// actually took effect.
func (hc *HotConfig) applyChanges(settings HotSettings) HotSettings {
	if err := hc.cache.Configure(settings.RetryPolicy); err != nil {
		hc.logger.Error("failed to apply retry policy", "error", err)
		settings.RetryPolicy = hc.cache.RetryPolicy()
	}
	if err := hc.cache.SetDefaultExpiration(settings.DefaultExpiration); err != nil {
		hc.logger.Error("failed to apply default expiration", "error", err)
		settings.DefaultExpiration = hc.cache.DefaultExpiration()
	}
	return settings
}
