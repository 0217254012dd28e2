// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapping

import (
	"sync"

	"github.com/svsproto/svs/pkg/svsname"
)

// PendingList accumulates freshly-published local entries so the sync
// engine's get_extra hook can ship them inside the next outgoing sync
// interest. Piggybacking is best-effort: peers that miss the sync
// interest fall back to the query protocol.
type PendingList struct {
	mu      sync.Mutex
	localID svsname.Name
	pending []Entry
}

// NewPendingList returns a pending list scoped to the local producer-id.
func NewPendingList(localID svsname.Name) *PendingList {
	return &PendingList{localID: localID}
}

// Add records a freshly-published entry for piggyback on the next sync
// interest.
func (p *PendingList) Add(e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, e)
}

// Drain returns the accumulated entries encoded as a MappingData block
// and clears the pending list, or returns nil if there is nothing to
// piggyback. Called from the sync engine's get_extra hook immediately
// before a sync interest is sent.
func (p *PendingList) Drain() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	out := Encode(p.localID, p.pending)
	p.pending = nil
	return out
}

// Absorb decodes a piggybacked MappingData block received inside a peer's
// sync interest (the recv_extra hook) and installs its entries into store.
func Absorb(store *Store, block []byte) error {
	if len(block) == 0 {
		return nil
	}
	_, entries, err := Decode(block)
	if err != nil {
		return err
	}
	for _, e := range entries {
		store.Insert(e)
	}
	return nil
}
