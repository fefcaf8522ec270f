// Package retry provides a generic bounded-attempt retry executor with
// optional fixed or exponential backoff. It knows nothing about caching:
// any fallible operation can be wrapped.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package retry

import (
	"context"
	"time"
)

// DefaultMaxAttempts is used by DefaultPolicy.
const DefaultMaxAttempts = 3

// Policy controls the behaviour of [Execute].
type Policy struct {
	// MaxAttempts is the maximum number of times the operation is called
	// (including the first attempt). Values < 1 are treated as 1 by Execute
	// and rejected by Validate.
	MaxAttempts int

	// Backoff is the pause inserted between attempts. Zero value: none.
	Backoff Backoff

	// RetryIf decides whether a failure is worth another attempt.
	// Nil retries every error.
	RetryIf func(error) bool
}

// DefaultPolicy returns three immediate attempts, retrying every error.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Backoff: None()}
}

// Validate reports whether the policy can be executed as configured.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return NewErrInvalidPolicy("max_attempts", p.MaxAttempts, "must be at least 1")
	}
	if p.Backoff.Delay < 0 {
		return NewErrInvalidPolicy("delay", p.Backoff.Delay, "must be non-negative")
	}
	if p.Backoff.MaxDelay < 0 {
		return NewErrInvalidPolicy("max_delay", p.Backoff.MaxDelay, "must be non-negative")
	}
	if p.Backoff.Jitter < 0 || p.Backoff.Jitter > 1 {
		return NewErrInvalidPolicy("jitter", p.Backoff.Jitter, "must be between 0.0 and 1.0")
	}
	if p.Backoff.Kind == BackoffExponential && p.Backoff.MaxDelay > 0 && p.Backoff.MaxDelay < p.Backoff.Delay {
		return NewErrInvalidPolicy("max_delay", p.Backoff.MaxDelay, "must not be lower than delay")
	}
	switch p.Backoff.Kind {
	case BackoffNone, BackoffFixed, BackoffExponential:
	default:
		return NewErrInvalidPolicy("backoff", int(p.Backoff.Kind), "unknown backoff kind")
	}
	return nil
}

// Notifier observes every failed attempt that is followed by another one.
// attempt is 1-based. It must not block; panics are swallowed.
type Notifier func(attempt, maxAttempts int, err error)

// Option configures a single Execute call.
type Option func(*options)

type options struct {
	notify Notifier
}

// WithNotifier registers a retry notification callback.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notify = n
	}
}

// Execute calls op up to p.MaxAttempts times and returns the first success.
//
// After each failed attempt except the last the notifier is invoked and the
// backoff delay applied. When every attempt fails the last error is returned
// wrapped as LAZYCACHE_RETRIES_EXHAUSTED. Errors rejected by p.RetryIf, and
// failures observed after ctx ended, are returned unchanged.
//
// Attempts run sequentially on the calling goroutine.
func Execute[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	attempts := max(p.MaxAttempts, 1)
	var lastErr error

	for i := range attempts {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// The caller gave up: another attempt would only repeat the failure.
		if ctx.Err() != nil {
			return zero, err
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}

		notify(o.notify, i+1, attempts, err)

		if d := p.Backoff.delay(i); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, NewErrRetriesExhausted(attempts, lastErr)
}

// notify invokes n, discarding any panic so diagnostics never break the loop.
func notify(n Notifier, attempt, total int, err error) {
	if n == nil {
		return
	}
	defer func() { _ = recover() }()
	n(attempt, total, err)
}
