// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapping implements the Mapping Provider: the
// binding between (producer-id, seq) and an application-visible
// publication name, its wire codec, and the notification piggyback list
// used to ship fresh mappings inside outgoing sync interests.
package mapping

import (
	"sync"

	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/tlv"
)

// BlockType identifies an opaque extra block carried alongside a mapping
// entry. It is the TLV type number of the block, so extra blocks round
// trip through the wire codec without translation. TimestampMicros is
// the only well-known block.
type BlockType = tlv.Type

const BlockTimestampMicros BlockType = tlv.TypeTimestampMicros

// Block is one opaque typed binary blob attached to a mapping entry.
type Block struct {
	Type  BlockType
	Value []byte
}

// Entry binds one (producer-id, seq) pair to its application name and
// any extra blocks (e.g. a publication timestamp).
type Entry struct {
	ID    svsname.Name
	Seq   uint64
	Name  svsname.Name
	Extra []Block
}

// TimestampMicros extracts the well-known timestamp block, if present.
func (e Entry) TimestampMicros() (uint64, bool) {
	for _, b := range e.Extra {
		if b.Type == BlockTimestampMicros && len(b.Value) == 8 {
			var v uint64
			for _, x := range b.Value {
				v = v<<8 | uint64(x)
			}
			return v, true
		}
	}
	return 0, false
}

// Store is the local mapping table: everything this node knows about
// (producer, seq) -> name bindings, whether learned by local publish,
// piggyback, or the query protocol.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry // key: id.ByKey() + "|" + 8-byte big-endian seq
}

// NewStore returns an empty mapping store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

func key(id svsname.Name, seq uint64) string {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(seq >> (56 - 8*i))
	}
	return id.ByKey() + "|" + string(b[:])
}

// Insert remembers (id, seq) -> (name, extra). Re-inserting the same key
// overwrites the previous binding (mappings are immutable in practice
// since a producer never reassigns a sequence number, but Insert does
// not itself enforce that).
func (s *Store) Insert(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(e.ID, e.Seq)] = e
}

// Lookup returns the mapping for (id, seq), if known.
func (s *Store) Lookup(id svsname.Name, seq uint64) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key(id, seq)]
	return e, ok
}

// ContiguousPrefix returns, starting at low, the longest run of
// contiguous known sequence numbers up to and including high. Producers
// answering a query reply with this when they are missing entries in
// the requested range.
func (s *Store) ContiguousPrefix(id svsname.Name, low, high uint64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for seq := low; seq <= high; seq++ {
		e, ok := s.entries[key(id, seq)]
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

// QueryCap is the pragmatic per-query bound: requesters should cap a
// single query to 11 entries and chain queries to cover larger ranges.
const QueryCap = 11
