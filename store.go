// store.go: sharded entry store with per-key commit tokens
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"math"
	"sync"
	"sync/atomic"
)

// entry is a committed (Ready) value. Only lastAccess changes after commit.
type entry struct {
	key       string
	value     interface{}
	kind      expirationKind
	deadline  int64 // absolute expiry in nanoseconds (Absolute / ExpiresIn)
	window    int64 // sliding window in nanoseconds
	createdAt int64

	lastAccess atomic.Int64
}

// newEntry resolves policy against now. policy must not be the default policy.
func newEntry(key string, value interface{}, policy ExpirationPolicy, now int64) *entry {
	e := &entry{
		key:       key,
		value:     value,
		kind:      policy.kind,
		createdAt: now,
	}
	switch policy.kind {
	case expireAbsolute:
		e.deadline = policy.deadline
	case expireRelative:
		e.deadline = addSaturating(now, int64(policy.ttl))
	case expireSliding:
		e.window = int64(policy.ttl)
	}
	e.lastAccess.Store(now)
	return e
}

// addSaturating returns now+ttl, capped at math.MaxInt64.
func addSaturating(now, ttl int64) int64 {
	if ttl > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + ttl
}

// touch moves lastAccess forward to now; it never moves it backwards.
func (e *entry) touch(now int64) {
	for {
		last := e.lastAccess.Load()
		if now <= last || e.lastAccess.CompareAndSwap(last, now) {
			return
		}
	}
}

// commitToken identifies one population round. A round may write its result
// back only while its token is still registered for the key.
type commitToken struct{}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
	pending map[string]*commitToken
}

// store maps keys to entries across independently locked shards.
type store struct {
	shards []shard
	mask   uint64
}

// newStore creates a store with n shards. n must be a power of 2.
func newStore(n int) *store {
	s := &store{
		shards: make([]shard, n),
		mask:   uint64(n - 1), // #nosec G115 - n is a validated power of 2
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
		s.shards[i].pending = make(map[string]*commitToken)
	}
	return s
}

func (s *store) shardFor(key string) *shard {
	return &s.shards[stringHash(key)&s.mask]
}

// get returns the stored entry, expired or not.
func (sh *shard) get(key string) *entry {
	sh.mu.RLock()
	e := sh.entries[key]
	sh.mu.RUnlock()
	return e
}

// removeIf deletes key only if it still maps to e.
func (sh *shard) removeIf(key string, e *entry) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.entries[key] != e {
		return false
	}
	delete(sh.entries, key)
	return true
}

// put stores e and revokes any round in flight for its key.
func (sh *shard) put(e *entry) {
	sh.mu.Lock()
	sh.entries[e.key] = e
	delete(sh.pending, e.key)
	sh.mu.Unlock()
}

// remove deletes key and revokes any round in flight for it.
// Returns the removed entry, if any.
func (sh *shard) remove(key string) *entry {
	sh.mu.Lock()
	e := sh.entries[key]
	delete(sh.entries, key)
	delete(sh.pending, key)
	sh.mu.Unlock()
	return e
}

// open starts a population round for key unless a live entry is already
// stored. The check and the registration happen under one lock, so a round
// that committed just before open is seen here instead of being produced again.
func (sh *shard) open(key string, now int64) (*entry, *commitToken) {
	sh.mu.Lock()
	if e := sh.entries[key]; e != nil && !isExpired(e, now) {
		sh.mu.Unlock()
		if e.kind == expireSliding {
			e.touch(now)
		}
		return e, nil
	}
	tok := &commitToken{}
	sh.pending[key] = tok
	sh.mu.Unlock()
	return nil, tok
}

// commit writes e if tok is still the registered round for e.key.
func (sh *shard) commit(tok *commitToken, e *entry) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.pending[e.key] != tok {
		return false
	}
	delete(sh.pending, e.key)
	sh.entries[e.key] = e
	return true
}

// release closes a failed round without writing anything.
func (sh *shard) release(key string, tok *commitToken) {
	sh.mu.Lock()
	if sh.pending[key] == tok {
		delete(sh.pending, key)
	}
	sh.mu.Unlock()
}

// len returns the number of stored entries.
func (s *store) len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// clear drops every entry and revokes every round in flight.
// Returns the keys whose rounds were revoked.
func (s *store) clear() []string {
	var revoked []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key := range sh.pending {
			revoked = append(revoked, key)
		}
		sh.entries = make(map[string]*entry)
		sh.pending = make(map[string]*commitToken)
		sh.mu.Unlock()
	}
	return revoked
}

// sweep removes every entry expired at now and returns them.
// Shards are locked one at a time.
func (s *store) sweep(now int64) []*entry {
	var removed []*entry
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, e := range sh.entries {
			if isExpired(e, now) {
				delete(sh.entries, key)
				removed = append(removed, e)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
