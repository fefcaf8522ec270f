// expiration.go: per-entry expiration policies and their evaluation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"strings"
	"time"
)

type expirationKind uint8

const (
	expireDefault expirationKind = iota
	expireNever
	expireAbsolute
	expireRelative
	expireSliding
)

// ExpirationPolicy decides how long a committed value stays live.
//
// The zero value means "use the cache default" (Config.DefaultExpiration).
// Build policies with Never, Absolute, ExpiresIn or Sliding.
type ExpirationPolicy struct {
	kind     expirationKind
	deadline int64         // unix nanoseconds, Absolute only
	ttl      time.Duration // ExpiresIn duration or Sliding window
}

// Never keeps the entry until it is removed.
func Never() ExpirationPolicy {
	return ExpirationPolicy{kind: expireNever}
}

// Absolute expires the entry at deadline, regardless of access.
func Absolute(deadline time.Time) ExpirationPolicy {
	return ExpirationPolicy{kind: expireAbsolute, deadline: deadline.UnixNano()}
}

// ExpiresIn expires the entry ttl after it is committed, regardless of access.
func ExpiresIn(ttl time.Duration) ExpirationPolicy {
	return ExpirationPolicy{kind: expireRelative, ttl: ttl}
}

// Sliding expires the entry once it has not been read for window.
// Every successful read restarts the window.
func Sliding(window time.Duration) ExpirationPolicy {
	return ExpirationPolicy{kind: expireSliding, ttl: window}
}

// IsDefault reports whether p defers to the cache default.
func (p ExpirationPolicy) IsDefault() bool {
	return p.kind == expireDefault
}

// IsSliding reports whether p is a sliding window.
func (p ExpirationPolicy) IsSliding() bool {
	return p.kind == expireSliding
}

// Duration returns the ExpiresIn ttl or the Sliding window, 0 otherwise.
func (p ExpirationPolicy) Duration() time.Duration {
	return p.ttl
}

// Deadline returns the Absolute deadline, or the zero time.
func (p ExpirationPolicy) Deadline() time.Time {
	if p.kind != expireAbsolute {
		return time.Time{}
	}
	return time.Unix(0, p.deadline)
}

// String renders p in the form accepted by ParseExpiration.
func (p ExpirationPolicy) String() string {
	switch p.kind {
	case expireNever:
		return "never"
	case expireAbsolute:
		return "absolute:" + time.Unix(0, p.deadline).UTC().Format(time.RFC3339Nano)
	case expireRelative:
		return "absolute-in:" + p.ttl.String()
	case expireSliding:
		return "sliding:" + p.ttl.String()
	default:
		return "default"
	}
}

func (p ExpirationPolicy) validate() error {
	switch p.kind {
	case expireDefault, expireNever:
		return nil
	case expireAbsolute:
		if p.deadline <= 0 {
			return NewErrInvalidPolicy(p.String(), "deadline must be set")
		}
	case expireRelative, expireSliding:
		if p.ttl <= 0 {
			return NewErrInvalidPolicy(p.String(), "duration must be positive")
		}
	default:
		return NewErrInvalidPolicy(p.String(), "unknown expiration kind")
	}
	return nil
}

// ParseExpiration parses "never", "default", "absolute-in:<duration>",
// "absolute:<RFC3339 time>" and "sliding:<duration>".
func ParseExpiration(s string) (ExpirationPolicy, error) {
	s = strings.TrimSpace(s)
	name, arg, _ := strings.Cut(s, ":")
	switch strings.ToLower(name) {
	case "", "default":
		return ExpirationPolicy{}, nil
	case "never":
		return Never(), nil
	case "absolute-in", "ttl":
		d, err := time.ParseDuration(arg)
		if err != nil {
			return ExpirationPolicy{}, NewErrInvalidPolicy(s, err.Error())
		}
		p := ExpiresIn(d)
		return p, p.validate()
	case "absolute":
		t, err := time.Parse(time.RFC3339Nano, arg)
		if err != nil {
			return ExpirationPolicy{}, NewErrInvalidPolicy(s, err.Error())
		}
		p := Absolute(t)
		return p, p.validate()
	case "sliding":
		d, err := time.ParseDuration(arg)
		if err != nil {
			return ExpirationPolicy{}, NewErrInvalidPolicy(s, err.Error())
		}
		p := Sliding(d)
		return p, p.validate()
	}
	return ExpirationPolicy{}, NewErrInvalidPolicy(s, "unknown expiration mode")
}

// isExpired evaluates e against now. It never mutates e; touching sliding
// entries is the store's job.
func isExpired(e *entry, now int64) bool {
	switch e.kind {
	case expireAbsolute, expireRelative:
		return now >= e.deadline
	case expireSliding:
		return now-e.lastAccess.Load() >= e.window
	default:
		return false
	}
}
