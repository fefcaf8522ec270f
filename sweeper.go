// sweeper.go: eager removal of expired entries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import "time"

// Sweep removes every expired entry now and returns how many were removed.
// Reads already evict lazily; Sweep reclaims memory held by keys nobody reads.
func (c *lazyCache) Sweep() int {
	removed := c.store.sweep(c.clock.Now())
	for _, e := range removed {
		c.expired(e)
	}
	if len(removed) > 0 {
		c.logger.Debug("swept expired entries", "count", len(removed))
	}
	return len(removed)
}

// sweepLoop runs Sweep every interval until the cache is closed.
func (c *lazyCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
