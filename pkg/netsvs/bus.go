// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netsvs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/svsproto/svs/pkg/svsname"
)

// Bus is an in-memory, in-process Face suitable for tests and the
// cmd/svsnode demonstrator: every registered prefix handler on the Bus
// sees every Interest whose name it prefixes, and the first reply from
// any handler the Interest reached satisfies a pending Express; the
// replied Data's name is not checked against the Interest's. It plays
// the same role as
// bee's pkg/p2p/mock.Streamer, adapted from point-to-point streams to
// broadcast pub/sub.
type Bus struct {
	mu   sync.Mutex
	regs map[string]*registration
	seq  uint64
}

type registration struct {
	prefix  svsname.Name
	handler InterestHandler
}

// NewBus returns an empty, unconnected Bus.
func NewBus() *Bus {
	return &Bus{regs: make(map[string]*registration)}
}

func (b *Bus) RegisterPrefix(prefix svsname.Name, handler InterestHandler) (CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New().String()
	b.regs[id] = &registration{prefix: prefix, handler: handler}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.regs, id)
	}, nil
}

func (b *Bus) matching(name svsname.Name) []*registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*registration
	for _, r := range b.regs {
		if r.prefix.IsPrefixOf(name) {
			out = append(out, r)
		}
	}
	return out
}

func (b *Bus) Multicast(ctx context.Context, i Interest) error {
	for _, r := range b.matching(i.Name) {
		go r.handler(ctx, i, func(Data) error { return nil })
	}
	return nil
}

func (b *Bus) Express(ctx context.Context, i Interest, onData func(Data), onNack func(error), onTimeout func()) (CancelFunc, error) {
	regs := b.matching(i.Name)

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() { close(done) })
	}

	lifetime := i.Lifetime
	if lifetime <= 0 {
		lifetime = 2 * time.Second
	}
	timer := time.AfterFunc(lifetime, func() {
		fired := false
		once.Do(func() {
			close(done)
			fired = true
		})
		if fired && onTimeout != nil {
			onTimeout()
		}
	})

	if len(regs) == 0 {
		return cancel, nil
	}

	reply := func(d Data) error {
		select {
		case <-done:
			return nil
		default:
		}
		fired := false
		once.Do(func() {
			timer.Stop()
			close(done)
			fired = true
		})
		if fired && onData != nil {
			onData(d)
		}
		return nil
	}

	for _, r := range regs {
		go r.handler(ctx, i, reply)
	}

	return cancel, nil
}
