// cache_generic.go: type-safe generic cache API
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"fmt"
	"strconv"

	"github.com/agilira/lazycache/retry"
)

// GenericCache provides a type-safe cache interface using Go generics.
// K must be comparable (can be used as map key).
// V can be any type.
//
// Example:
//
//	cache := lazycache.NewGenericCache[string, User](lazycache.Config{
//	    DefaultExpiration: lazycache.Sliding(10 * time.Minute),
//	})
//	user, err := cache.GetOrAdd("user:123", func() (User, error) {
//	    return fetchUser(123)
//	}, lazycache.ExpirationPolicy{})
type GenericCache[K comparable, V any] struct {
	inner Cache // Wraps existing cache implementation
}

// NewGenericCache creates a new type-safe generic cache.
func NewGenericCache[K comparable, V any](cfg Config) *GenericCache[K, V] {
	return &GenericCache[K, V]{
		inner: NewCache(cfg),
	}
}

// Set stores a key-value pair in the cache.
func (c *GenericCache[K, V]) Set(key K, value V, policy ExpirationPolicy) error {
	return c.inner.Set(keyToString(key), value, policy)
}

// Get retrieves a value from the cache.
//
// Returns:
//   - value: The stored value (zero value if not found)
//   - found: true if key exists and is not expired
func (c *GenericCache[K, V]) Get(key K) (value V, found bool) {
	val, found := c.inner.Get(keyToString(key))
	if !found {
		var zero V
		return zero, false
	}

	typedValue, ok := asType[V](val)
	if !ok {
		// Another writer shared the underlying cache with a different type
		var zero V
		return zero, false
	}

	return typedValue, true
}

// Remove deletes a key from the cache. See Cache.Remove.
func (c *GenericCache[K, V]) Remove(key K) bool {
	return c.inner.Remove(keyToString(key))
}

// Has checks if a key exists in the cache without retrieving it.
func (c *GenericCache[K, V]) Has(key K) bool {
	return c.inner.Has(keyToString(key))
}

// keyToString converts a key of any comparable type to string efficiently.
// Uses type switch to avoid allocations for common types (string, int, uint).
// Falls back to fmt.Sprintf for other types.
func keyToString[K comparable](key K) string {
	switch v := any(key).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		// Allocates; only used for uncommon key types
		return fmt.Sprintf("%v", key)
	}
}

// asType converts a stored value to V. A cached nil converts to the zero V.
func asType[V any](val interface{}) (V, bool) {
	if val == nil {
		var zero V
		return zero, true
	}
	v, ok := val.(V)
	return v, ok
}

// Len returns the number of stored entries.
func (c *GenericCache[K, V]) Len() int {
	return c.inner.Len()
}

// Clear removes all entries from the cache and resets statistics.
func (c *GenericCache[K, V]) Clear() {
	c.inner.Clear()
}

// Sweep removes every expired entry. See Cache.Sweep.
func (c *GenericCache[K, V]) Sweep() int {
	return c.inner.Sweep()
}

// Configure replaces the retry policy. See Cache.Configure.
func (c *GenericCache[K, V]) Configure(policy retry.Policy) error {
	return c.inner.Configure(policy)
}

// Stats returns current cache statistics.
func (c *GenericCache[K, V]) Stats() CacheStats {
	return c.inner.Stats()
}

// Unwrap returns the untyped cache backing c, for wiring into HotConfig or
// the decorators.
func (c *GenericCache[K, V]) Unwrap() Cache {
	return c.inner
}

// Close cleans up cache resources and stops background goroutines.
// After calling Close, the cache should not be used.
func (c *GenericCache[K, V]) Close() error {
	return c.inner.Close()
}
