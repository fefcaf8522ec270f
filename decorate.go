// decorate.go: cached function wrappers
//
// Cached and Memoize give a plain function call site the GetOrAdd behaviour
// of a cache without any ambient state: the cache instance, the key and the
// expiration policy are all explicit.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"strings"
)

// keySeparator joins the parts built by Key.
const keySeparator = ":"

// Cached returns a function that serves key from c, running producer to fill it.
//
// Example:
//
//	getConfig := lazycache.Cached(cache, "config", lazycache.ExpiresIn(time.Minute), loadConfig)
//	cfg, err := getConfig()
func Cached[V any](c Cache, key string, policy ExpirationPolicy, producer func() (V, error)) func() (V, error) {
	return func() (V, error) {
		var zero V
		if producer == nil {
			return zero, NewErrInvalidProducer(key)
		}
		result, err := c.GetOrAdd(key, func() (interface{}, error) {
			return producer()
		}, policy)
		if err != nil {
			return zero, err
		}
		value, ok := asType[V](result)
		if !ok {
			return zero, NewErrInternal("Cached", nil)
		}
		return value, nil
	}
}

// Memoize returns a cached version of fn. keyFn maps each argument to its
// cache key; distinct arguments must map to distinct keys.
//
// Example:
//
//	getUser := lazycache.Memoize(cache, func(id int) string {
//	    return lazycache.Key("user", id)
//	}, lazycache.Sliding(10*time.Second), fetchUser)
//	user, err := getUser(42)
func Memoize[A any, V any](c Cache, keyFn func(A) string, policy ExpirationPolicy, fn func(A) (V, error)) func(A) (V, error) {
	return func(arg A) (V, error) {
		key := keyFn(arg)
		return Cached(c, key, policy, func() (V, error) {
			return fn(arg)
		})()
	}
}

// Key builds a deterministic cache key from a namespace and its parts,
// e.g. Key("user", 42, "profile") is "user:42:profile".
func Key(namespace string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		b.WriteString(keySeparator)
		b.WriteString(keyToString(part))
	}
	return b.String()
}
