// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pubsub implements the Pub/Sub Facade: the
// application-facing surface built atop the Sync Engine and SVSync
// base. It maps application names to (producer, sequence) pairs via
// the Mapping Provider, segments oversized payloads, dispatches newly
// learned sequences to subscribers, and reassembles segmented blobs.
// Grounded on bee's pkg/pss (topic-addressed pub/sub atop content
// addressing) for the subscription/dispatch shape and on
// pkg/retrieval for the fetch-then-deliver flow.
package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/mapping"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/security"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/svsync"
	"github.com/svsproto/svs/pkg/syncengine"
)

const loggerName = "pubsub"

// MaxData is the largest payload publish will store as a single Data;
// larger payloads are segmented.
const MaxData = 8000

// FetchRetries is the retry budget sync-driven fetches get from the
// pub/sub facade.
const FetchRetries = 12

// DefaultFreshness approximates an effectively-forever freshness
// window while honoring the netsvs.Data.FreshnessMs field's
// uint32-millisecond representation.
const DefaultFreshness = ^uint32(0)

// Handle identifies an active subscription for Unsubscribe.
type Handle string

type subKind int

const (
	kindPrefix subKind = iota
	kindProducer
)

type subscription struct {
	kind     subKind
	prefix   svsname.Name
	cb       func(netsvs.Data)
	packet   bool
	prefetch bool
}

type fetchTarget struct {
	nid svsname.Name
	seq uint64
}

func (t fetchTarget) key() string { return t.nid.ByKey() + fmt.Sprintf("|%d", t.seq) }

// PubSub is the Pub/Sub Facade for one sync group.
type PubSub struct {
	engine  *syncengine.Engine
	sv      *svsync.SVSync
	mapStr  *mapping.Store
	pending *mapping.PendingList
	face    netsvs.Face

	syncPrefix svsname.Name
	localID    svsname.Name
	dataSec    security.DataSecurity
	maxPubAge  time.Duration // 0 disables the filter

	logger  log.Logger
	metrics metrics

	mu       sync.Mutex
	subs     map[Handle]*subscription
	fetchMap map[string][]*subscription
	fetching map[string]bool

	cancelMapping netsvs.CancelFunc
}

// Options configures optional PubSub behavior.
type Options struct {
	// MaxPubAge, if non-zero, drops prefix-subscription dispatch for
	// mappings whose TimestampMicros block is older than this.
	MaxPubAge time.Duration
}

// New constructs a PubSub wired to engine/sv/mapping store/face, wires
// itself as the Engine's on_update callback and get_extra/recv_extra
// piggyback hooks, and installs the mapping query handler on the local
// node id.
func New(engine *syncengine.Engine, sv *svsync.SVSync, mapStr *mapping.Store, face netsvs.Face, syncPrefix, localID svsname.Name, dataSec security.DataSecurity, logger log.Logger, opts Options) (*PubSub, error) {
	p := &PubSub{
		engine:     engine,
		sv:         sv,
		mapStr:     mapStr,
		pending:    mapping.NewPendingList(localID),
		face:       face,
		syncPrefix: syncPrefix,
		localID:    localID,
		dataSec:    dataSec,
		maxPubAge:  opts.MaxPubAge,
		logger:     logger.WithName(loggerName).Register(),
		metrics:    newMetrics(),
		subs:       make(map[Handle]*subscription),
		fetchMap:   make(map[string][]*subscription),
		fetching:   make(map[string]bool),
	}

	// Registered on localID: query names are <nid>/<sync_prefix>/MAPPING/
	// <low>/<high>, and this instance answers only for its own node id.
	cancel, err := mapping.RegisterQueryHandler(face, localID, localID, mapStr)
	if err != nil {
		return nil, netsvs.ErrPrefixRegistrationFailed
	}
	p.cancelMapping = cancel

	engine.SetOnUpdate(p.onSyncUpdate)
	engine.SetGetExtra(p.pending.Drain)
	engine.SetRecvExtra(func(block []byte) { _ = mapping.Absorb(p.mapStr, block) })

	return p, nil
}

// Publish emits bytes under name for producer nid (the local node if
// zero), segmenting it if it exceeds MaxData.
func (p *PubSub) Publish(ctx context.Context, name svsname.Name, bytes []byte, nid svsname.Name, freshnessMs uint32, extra []mapping.Block) (uint64, error) {
	if freshnessMs == 0 {
		freshnessMs = DefaultFreshness
	}

	p.metrics.Published.Inc()
	if len(bytes) <= MaxData {
		sig, err := p.dataSec.Signer.Sign(bytes)
		if err != nil {
			return 0, fmt.Errorf("sign publication: %w", err)
		}
		seq, err := p.sv.PublishPacket(ctx, netsvs.Data{
			Content:     bytes,
			FreshnessMs: freshnessMs,
			Signature:   sig,
		}, nid)
		if err != nil {
			return 0, err
		}
		p.recordMapping(nid, seq, name, extra)
		return seq, nil
	}

	p.metrics.Segmented.Inc()
	n := (len(bytes) + MaxData - 1) / MaxData
	id := p.resolve(nid)
	finalBlock := svsname.Component(fmt.Sprintf("seg=%d", n-1))

	// Sequence allocation and every segment insert happen inside
	// WithNextSeq's lock, shared with svsync's own Publish/PublishPacket,
	// so a concurrent small (packet) publish for the same producer can
	// never allocate the same sequence.
	seq, err := p.sv.WithNextSeq(ctx, id, func(seq uint64) error {
		for i := 0; i < n; i++ {
			start := i * MaxData
			end := start + MaxData
			if end > len(bytes) {
				end = len(bytes)
			}
			// This implementation folds the outer fetch envelope and the
			// inner segment Data into a single netsvs.Data rather than
			// nesting a second encoded Data inside Content, since
			// Name/ContentType/FinalBlockID/Signature already carry
			// everything onSyncData and the segment fetcher need.
			if err := p.sv.InsertDataSegment(bytes[start:end], freshnessMs, id, seq, i, finalBlock, netsvs.ContentTypeEncapsulated); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.recordMapping(id, seq, name, extra)
	return seq, nil
}

func (p *PubSub) recordMapping(nid svsname.Name, seq uint64, name svsname.Name, extra []mapping.Block) {
	id := p.resolve(nid)
	e := mapping.Entry{
		ID:   id,
		Seq:  seq,
		Name: name,
		Extra: append(append([]mapping.Block{}, extra...), mapping.Block{
			Type:  mapping.BlockTimestampMicros,
			Value: encodeTimestampMicros(nowMicros()),
		}),
	}
	p.mapStr.Insert(e)
	p.pending.Add(e)
}

func (p *PubSub) resolve(nid svsname.Name) svsname.Name {
	if nid.Len() == 0 {
		return p.localID
	}
	return nid
}

// Subscribe fires cb on any publication whose application name is
// prefixed by prefix. Requires the mapping protocol.
func (p *PubSub) Subscribe(prefix svsname.Name, cb func(netsvs.Data), packet bool) Handle {
	h := Handle(uuid.NewString())
	p.mu.Lock()
	p.subs[h] = &subscription{kind: kindPrefix, prefix: prefix, cb: cb, packet: packet}
	p.mu.Unlock()
	return h
}

// SubscribeToProducer fires cb on any sequence from a producer whose id
// is prefixed by nidPrefix. Does not require the mapping protocol.
func (p *PubSub) SubscribeToProducer(nidPrefix svsname.Name, cb func(netsvs.Data), prefetch, packet bool) Handle {
	h := Handle(uuid.NewString())
	p.mu.Lock()
	p.subs[h] = &subscription{kind: kindProducer, prefix: nidPrefix, cb: cb, packet: packet, prefetch: prefetch}
	p.mu.Unlock()
	return h
}

// Unsubscribe removes a subscription.
func (p *PubSub) Unsubscribe(h Handle) {
	p.mu.Lock()
	delete(p.subs, h)
	p.mu.Unlock()
}

// Core returns the underlying Sync Engine, for advanced callers that
// need direct access (metrics, manual Reset) beyond the publish/
// subscribe surface.
func (p *PubSub) Core() *syncengine.Engine { return p.engine }

// Close releases the mapping query registration.
func (p *PubSub) Close() error {
	if p.cancelMapping != nil {
		p.cancelMapping()
	}
	return nil
}

func nowMicros() uint64 { return uint64(time.Now().UnixMicro()) }

func encodeTimestampMicros(v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b[:]
}
