// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the Data Store: a
// content-addressed local cache of signed publications, queried by name
// with the substrate's exact-match and "CanBePrefix" selector semantics.
// The default implementation is an in-memory, name-indexed map, the same
// role bee's pkg/localstore plays for chunks but without its disk-backed
// shard/GC machinery (explicitly permits but does not mandate
// eviction).
package store

import (
	"sort"
	"sync"

	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/svsname"
)

// Store is the default in-memory Data Store.
type Store struct {
	mu      sync.RWMutex
	byName  map[string]netsvs.Data
	byKeyNm map[string]svsname.Name // preserves original Name for prefix scans
	maxLen  int      // 0 = unbounded
	order   []string // insertion order, for a simple FIFO eviction policy
	metrics metrics
}

// Option configures a Store at construction.
type Option func(*Store)

// WithMaxEntries caps the store at n entries, evicting the oldest
// insertion once the cap is exceeded. A cap of 0 (the default) means
// unbounded; permits but does not mandate eviction.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxLen = n }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		byName:  make(map[string]netsvs.Data),
		byKeyNm: make(map[string]svsname.Name),
		metrics: newMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Insert admits d into the store, keyed by its exact name.
func (s *Store) Insert(d netsvs.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := d.Name.ByKey()
	if _, exists := s.byName[k]; !exists {
		s.order = append(s.order, k)
	}
	s.byName[k] = d
	s.byKeyNm[k] = d.Name
	s.metrics.Inserts.Inc()
	s.evictLocked()
	s.metrics.Entries.Set(float64(len(s.byName)))
}

func (s *Store) evictLocked() {
	if s.maxLen <= 0 {
		return
	}
	for len(s.order) > s.maxLen {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byName, oldest)
		delete(s.byKeyNm, oldest)
		s.metrics.Evictions.Inc()
	}
}

// Find looks up a Data by exact name, or, when canBePrefix is true, by
// the lexicographically-smallest stored name that the given name
// prefixes (matching the substrate's CanBePrefix selector, used to
// locate segmented replies whose full name includes a version/segment
// suffix the requester does not know in advance).
func (s *Store) Find(name svsname.Name, canBePrefix bool) (netsvs.Data, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.byName[name.ByKey()]; ok {
		return d, true
	}
	if !canBePrefix {
		return netsvs.Data{}, false
	}

	var candidates []svsname.Name
	for _, n := range s.byKeyNm {
		if name.IsPrefixOf(n) {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return netsvs.Data{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Compare(candidates[j]) < 0 })
	return s.byName[candidates[0].ByKey()], true
}

// FindAllWithPrefix returns every stored Data whose name is prefixed by
// prefix, ordered by name. Used by the segment fetcher to assemble all
// segments of one publication.
func (s *Store) FindAllWithPrefix(prefix svsname.Name) []netsvs.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []svsname.Name
	for _, n := range s.byKeyNm {
		if prefix.IsPrefixOf(n) {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Compare(names[j]) < 0 })

	out := make([]netsvs.Data, 0, len(names))
	for _, n := range names {
		out = append(out, s.byName[n.ByKey()])
	}
	return out
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}
