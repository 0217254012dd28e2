// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nettest provides a recording Face for unit tests, in the
// spirit of bee's pkg/p2p/streamtest: it wraps a netsvs.Bus and keeps a
// log of every Interest sent so tests can assert on sync/fetch traffic
// without a real substrate.
package nettest

import (
	"context"
	"sync"

	"github.com/svsproto/svs/pkg/netsvs"
)

// Recorder wraps a Bus and records every Interest passed to Multicast
// or Express.
type Recorder struct {
	*netsvs.Bus

	mu        sync.Mutex
	multicast []netsvs.Interest
	expressed []netsvs.Interest
}

// New returns a fresh recording Face backed by an in-memory Bus.
func New() *Recorder {
	return &Recorder{Bus: netsvs.NewBus()}
}

func (r *Recorder) Multicast(ctx context.Context, i netsvs.Interest) error {
	r.mu.Lock()
	r.multicast = append(r.multicast, i)
	r.mu.Unlock()
	return r.Bus.Multicast(ctx, i)
}

func (r *Recorder) Express(ctx context.Context, i netsvs.Interest, onData func(netsvs.Data), onNack func(error), onTimeout func()) (netsvs.CancelFunc, error) {
	r.mu.Lock()
	r.expressed = append(r.expressed, i)
	r.mu.Unlock()
	return r.Bus.Express(ctx, i, onData, onNack, onTimeout)
}

// Multicasts returns a snapshot of every Interest sent via Multicast.
func (r *Recorder) Multicasts() []netsvs.Interest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]netsvs.Interest, len(r.multicast))
	copy(out, r.multicast)
	return out
}

// Expressed returns a snapshot of every Interest sent via Express.
func (r *Recorder) Expressed() []netsvs.Interest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]netsvs.Interest, len(r.expressed))
	copy(out, r.expressed)
	return out
}
