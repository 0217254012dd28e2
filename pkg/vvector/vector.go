// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vvector implements the version vector: a mapping from
// producer-id to highest-known sequence number, with a monotonic
// last-local-update timestamp per key and a deterministic wire codec.
package vvector

import (
	"sort"
	"sync"
	"time"

	"github.com/svsproto/svs/pkg/svsname"
)

// MissingRange is a contiguous span of sequence numbers from one
// producer that the local peer has just learned about.
type MissingRange struct {
	ID  svsname.Name
	Low uint64
	Hi  uint64
}

// MergeResult is the outcome of merging a remote vector into a local one.
type MergeResult struct {
	MyNew    bool
	OtherNew bool
	Missing  []MissingRange
}

type entry struct {
	seq        uint64
	lastUpdate time.Time
}

// Vector is a version vector. The zero value is not usable; use New.
// All methods are safe for concurrent use: entries are guarded by a
// single mutex.
type Vector struct {
	mu      sync.Mutex
	entries map[string]*entry
	keys    map[string]svsname.Name
	now     func() time.Time
}

// New returns an empty version vector.
func New() *Vector {
	return &Vector{
		entries: make(map[string]*entry),
		keys:    make(map[string]svsname.Name),
		now:     time.Now,
	}
}

// SetTimeFunc overrides the monotonic clock source, for deterministic tests.
func (v *Vector) SetTimeFunc(f func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = f
}

// Get returns the known sequence number for id, or 0 if unknown.
func (v *Vector) Get(id svsname.Name) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.entries[id.ByKey()]; ok {
		return e.seq
	}
	return 0
}

// Has reports whether id has ever appeared in the vector.
func (v *Vector) Has(id svsname.Name) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.entries[id.ByKey()]
	return ok
}

// Set clamps seq to be monotonic: a no-op when seq <= the current value,
// otherwise it advances the entry and refreshes last-update.
func (v *Vector) Set(id svsname.Name, seq uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(id, seq)
}

func (v *Vector) setLocked(id svsname.Name, seq uint64) {
	k := id.ByKey()
	e, ok := v.entries[k]
	if !ok {
		e = &entry{}
		v.entries[k] = e
		v.keys[k] = id
	}
	if seq > e.seq {
		e.seq = seq
		e.lastUpdate = v.now()
	}
}

// LastUpdate returns the last-local-update instant for id, or the zero
// time if id is unknown.
func (v *Vector) LastUpdate(id svsname.Name) time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.entries[id.ByKey()]; ok {
		return e.lastUpdate
	}
	return time.Time{}
}

// Entry pairs a producer-id with its sequence number, for iteration.
type Entry struct {
	ID  svsname.Name
	Seq uint64
}

// Snapshot returns all entries in deterministic, key-ascending order.
func (v *Vector) Snapshot() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, 0, len(v.entries))
	for k, e := range v.entries {
		out = append(out, Entry{ID: v.keys[k], Seq: e.seq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// Clone returns a deep, independent copy of v.
func (v *Vector) Clone() *Vector {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := New()
	out.now = v.now
	for k, e := range v.entries {
		out.entries[k] = &entry{seq: e.seq, lastUpdate: e.lastUpdate}
		out.keys[k] = v.keys[k]
	}
	return out
}

// Merge folds other into v following the merge algorithm, including the
// grace window (S_max = 500ms) that suppresses spurious "I am newer"
// signaling for entries just advanced locally.
//
// Merge is commutative and idempotent with respect to the resulting
// vector: V.Merge(A).Merge(B).vector == V.Merge(B).Merge(A).vector,
// and merging the same vector twice in a row yields no additional
// Missing entries on the second call.
func (v *Vector) Merge(other *Vector) MergeResult {
	return v.MergeWithGrace(other, 500*time.Millisecond)
}

// MergeWithGrace is Merge with an explicit grace window, used by the
// sync engine (which owns S_max) and by tests that need a deterministic
// window.
func (v *Vector) MergeWithGrace(other *Vector, grace time.Duration) MergeResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	res := MergeResult{}
	now := v.now()
	otherSnapshot := other.Snapshot()
	for _, oe := range otherSnapshot {
		k := oe.ID.ByKey()
		cur := uint64(0)
		if e, ok := v.entries[k]; ok {
			cur = e.seq
		}
		if cur < oe.Seq {
			res.OtherNew = true
			res.Missing = append(res.Missing, MissingRange{ID: oe.ID, Low: cur + 1, Hi: oe.Seq})
			v.setLocked(oe.ID, oe.Seq)
		}
	}

	for k, e := range v.entries {
		if now.Sub(e.lastUpdate) < grace {
			continue
		}
		if other.Get(v.keys[k]) < e.seq {
			res.MyNew = true
			break
		}
	}

	return res
}
