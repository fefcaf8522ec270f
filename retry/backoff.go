// backoff.go: delay strategies applied between retry attempts
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// BackoffKind selects how the delay between two attempts is computed.
type BackoffKind int

const (
	// BackoffNone retries immediately.
	BackoffNone BackoffKind = iota

	// BackoffFixed waits Delay between attempts.
	BackoffFixed

	// BackoffExponential waits Delay * 2^n, capped at MaxDelay.
	BackoffExponential
)

// String returns the configuration name of the kind.
func (k BackoffKind) String() string {
	switch k {
	case BackoffFixed:
		return "fixed"
	case BackoffExponential:
		return "exponential"
	default:
		return "none"
	}
}

// ParseBackoffKind maps "none", "fixed" and "exponential" (case-insensitive)
// to a BackoffKind. The empty string maps to BackoffNone.
func ParseBackoffKind(s string) (BackoffKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BackoffNone, true
	case "fixed":
		return BackoffFixed, true
	case "exponential", "exp":
		return BackoffExponential, true
	}
	return BackoffNone, false
}

// Backoff describes the pause inserted between two attempts.
// The zero value is BackoffNone.
type Backoff struct {
	// Kind selects the strategy.
	Kind BackoffKind

	// Delay is the fixed delay, or the base delay for exponential backoff.
	Delay time.Duration

	// MaxDelay caps exponential backoff. Zero means uncapped.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64
}

// None returns a backoff that retries immediately.
func None() Backoff {
	return Backoff{Kind: BackoffNone}
}

// Fixed returns a backoff that waits d between attempts.
func Fixed(d time.Duration) Backoff {
	return Backoff{Kind: BackoffFixed, Delay: d}
}

// Exponential returns a backoff that waits base, 2*base, 4*base, ... capped at max.
func Exponential(base, max time.Duration) Backoff {
	return Backoff{Kind: BackoffExponential, Delay: base, MaxDelay: max}
}

// WithJitter returns a copy of b with the given jitter fraction.
func (b Backoff) WithJitter(fraction float64) Backoff {
	b.Jitter = fraction
	return b
}

// delay returns the pause after the given failed attempt (0-indexed).
func (b Backoff) delay(attempt int) time.Duration {
	var d float64
	switch b.Kind {
	case BackoffFixed:
		d = float64(b.Delay)
	case BackoffExponential:
		d = float64(b.Delay) * math.Pow(2, float64(attempt))
		if max := float64(b.MaxDelay); max > 0 && d > max {
			d = max
		}
		if d > math.MaxInt64/2 {
			d = math.MaxInt64 / 2
		}
	default:
		return 0
	}
	if b.Jitter > 0 {
		// jitter adds up to ±Jitter fraction of the delay.
		d += d * b.Jitter * (rand.Float64()*2 - 1) // #nosec G404 - jitter does not need a CSPRNG
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
