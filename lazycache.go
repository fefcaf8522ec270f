// lazycache.go: version and default constants
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import "time"

const (
	// Version of the lazycache library
	Version = "v0.1.0-dev"

	// DefaultMaxAttempts is the default number of producer invocations per population round
	DefaultMaxAttempts = 3

	// DefaultShardCount is the default number of store shards (power of 2)
	DefaultShardCount = 32

	// minCleanupInterval bounds the background sweeper frequency
	minCleanupInterval = 10 * time.Millisecond
)
