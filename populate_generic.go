// populate_generic.go: type-safe GetOrAdd with generics
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package lazycache

import "context"

// GetOrAdd is the generic version of Cache.GetOrAdd.
//
// Returns:
//   - value: The cached or produced value (zero value on error)
//   - error: Producer error or validation error
//
// Example:
//
//	cache := NewGenericCache[int, string](Config{})
//	value, err := cache.GetOrAdd(42, func() (string, error) {
//	    return fetchFromDB(42)
//	}, ExpiresIn(10*time.Second))
func (c *GenericCache[K, V]) GetOrAdd(key K, producer func() (V, error), policy ExpirationPolicy) (V, error) {
	var zero V

	var wrapped Producer
	if producer != nil {
		wrapped = func() (interface{}, error) {
			return producer()
		}
	}

	result, err := c.inner.GetOrAdd(keyToString(key), wrapped, policy)
	if err != nil {
		return zero, err
	}

	value, ok := asType[V](result)
	if !ok {
		return zero, NewErrInternal("GetOrAdd", nil)
	}
	return value, nil
}

// GetOrAddWithContext is the generic version of Cache.GetOrAddWithContext.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	value, err := cache.GetOrAddWithContext(ctx, 42, func(ctx context.Context) (string, error) {
//	    return fetchFromDBWithContext(ctx, 42)
//	}, Sliding(time.Minute))
func (c *GenericCache[K, V]) GetOrAddWithContext(ctx context.Context, key K, producer func(context.Context) (V, error), policy ExpirationPolicy) (V, error) {
	var zero V

	var wrapped ContextProducer
	if producer != nil {
		wrapped = func(ctx context.Context) (interface{}, error) {
			return producer(ctx)
		}
	}

	result, err := c.inner.GetOrAddWithContext(ctx, keyToString(key), wrapped, policy)
	if err != nil {
		return zero, err
	}

	value, ok := asType[V](result)
	if !ok {
		return zero, NewErrInternal("GetOrAddWithContext", nil)
	}
	return value, nil
}
