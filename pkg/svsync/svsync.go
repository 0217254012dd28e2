// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package svsync implements the SVSync base: it wraps
// the Sync Engine and the Data Store, deriving data names from a
// configurable naming scheme, signing and storing local publications,
// and serving data interests out of the local store. Grounded on bee's
// pkg/retrieval.Interface (fetch-by-address) and pkg/pullsync.Syncer's
// registration-at-construction pattern.
package svsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/svsproto/svs/pkg/fetcher"
	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/security"
	"github.com/svsproto/svs/pkg/store"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/syncengine"
	"github.com/svsproto/svs/pkg/tlv"
)

const loggerName = "svsync"

// NamingScheme selects how SVSync derives a publication's wire name
// from a producer id and sequence number.
type NamingScheme int

const (
	// PerProducer yields <nid>/<sync_prefix>/<seq>: each producer's
	// prefix doubles as its data prefix, so data interests target the
	// producer directly.
	PerProducer NamingScheme = iota
	// SharedPrefix yields <sync_prefix>/d/<nid>/<seq>: every producer
	// shares one data prefix, useful where multicast caching across
	// producers is desired.
	SharedPrefix
)

// DefaultFetchLifetime is the interest lifetime Fetch uses when the
// caller does not override it.
const DefaultFetchLifetime = 2 * time.Second

// ShouldCacheFunc decides whether a Data validated by Fetch is worth
// retaining in the local store. The default (nil) never caches; a
// shared-prefix deployment wanting multicast-style caching may supply
// a func that always returns true.
type ShouldCacheFunc func(netsvs.Data) bool

// SVSync wraps a Sync Engine and Data Store behind a publish/fetch
// surface.
type SVSync struct {
	engine  *syncengine.Engine
	store   *store.Store
	face    netsvs.Face
	fetcher *fetcher.Fetcher

	scheme     NamingScheme
	syncPrefix svsname.Name
	nodeID     svsname.Name

	dataSec     security.DataSecurity
	shouldCache ShouldCacheFunc

	seqMu sync.Mutex // guards sequence allocation across Publish/PublishPacket/WithNextSeq

	logger    log.Logger
	cancelReg netsvs.CancelFunc
}

// Options configures optional SVSync behavior.
type Options struct {
	ShouldCache ShouldCacheFunc
}

// New constructs an SVSync bound to engine/store/face/fetcher, and
// registers a data interest handler on the appropriate prefix for
// scheme.
func New(engine *syncengine.Engine, st *store.Store, face netsvs.Face, f *fetcher.Fetcher, scheme NamingScheme, syncPrefix, nodeID svsname.Name, dataSec security.DataSecurity, logger log.Logger, opts Options) (*SVSync, error) {
	s := &SVSync{
		engine:      engine,
		store:       st,
		face:        face,
		fetcher:     f,
		scheme:      scheme,
		syncPrefix:  syncPrefix,
		nodeID:      nodeID,
		dataSec:     dataSec,
		shouldCache: opts.ShouldCache,
		logger:      logger.WithName(loggerName).Register(),
	}

	cancel, err := face.RegisterPrefix(s.dataPrefix(), s.handleDataInterest)
	if err != nil {
		return nil, netsvs.ErrPrefixRegistrationFailed
	}
	s.cancelReg = cancel
	return s, nil
}

// dataPrefix is the prefix SVSync registers its data interest handler
// on: under PerProducer the producer's own id doubles as its data
// prefix, so this instance, which publishes only as the local node,
// answers only for s.nodeID; under SharedPrefix every producer shares
// <sync_prefix>/d.
func (s *SVSync) dataPrefix() svsname.Name {
	if s.scheme == SharedPrefix {
		return s.syncPrefix.AppendString("d")
	}
	return s.nodeID
}

// DataName derives the wire name of producer nid's seq-th publication.
func (s *SVSync) DataName(nid svsname.Name, seq uint64) svsname.Name {
	seqStr := fmt.Sprintf("%d", seq)
	if s.scheme == SharedPrefix {
		return s.syncPrefix.AppendString("d").Append(nid.Components()...).AppendString(seqStr)
	}
	return nid.Append(s.syncPrefix.Components()...).AppendString(seqStr)
}

func (s *SVSync) resolve(nid svsname.Name) svsname.Name {
	if nid.Len() == 0 {
		return s.nodeID
	}
	return nid
}

// WithNextSeq allocates the next sequence number for nid, lets fn store
// whatever Data that sequence names, then advances the Sync Engine's
// vector — all under one lock, so concurrent Publish/PublishPacket/
// WithNextSeq calls for the same producer can never allocate the same
// sequence or clobber one another's store insert. fn's returned error
// aborts the allocation before the vector is advanced.
func (s *SVSync) WithNextSeq(ctx context.Context, nid svsname.Name, fn func(seq uint64) error) (uint64, error) {
	id := s.resolve(nid)
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	seq := s.engine.Seq(id) + 1
	if err := fn(seq); err != nil {
		return 0, err
	}
	s.engine.UpdateSeq(ctx, seq, id)
	return seq, nil
}

// Publish wraps bytes in a Content TLV, signs the wrapped content,
// stores it under the next sequence number for nid, and advances the
// Sync Engine's vector.
func (s *SVSync) Publish(ctx context.Context, bytes []byte, freshnessMs uint32, nid svsname.Name) (uint64, error) {
	id := s.resolve(nid)
	var enc tlv.Encoder
	enc.WriteBlock(tlv.TypeContent, bytes)
	content := enc.Bytes()
	sig, err := s.dataSec.Signer.Sign(content)
	if err != nil {
		return 0, fmt.Errorf("sign publication: %w", err)
	}

	return s.WithNextSeq(ctx, id, func(seq uint64) error {
		s.store.Insert(netsvs.Data{
			Name:        s.DataName(id, seq),
			Content:     content,
			FreshnessMs: freshnessMs,
			Signature:   sig,
		})
		return nil
	})
}

// PublishPacket stores an already-signed Data as the next sequence
// number for nid, re-keying it under the derived data name. The
// packet's content type is marked Encapsulated, since its content is
// itself a full signed Data rather than raw bytes.
func (s *SVSync) PublishPacket(ctx context.Context, d netsvs.Data, nid svsname.Name) (uint64, error) {
	id := s.resolve(nid)
	return s.WithNextSeq(ctx, id, func(seq uint64) error {
		d.Name = s.DataName(id, seq)
		d.ContentType = netsvs.ContentTypeEncapsulated
		s.store.Insert(d)
		return nil
	})
}

// InsertDataSegment stores one segment of a larger segmented
// publication: the name is the publication's data name extended by
// /v=0/seg=<segmentNo>, and finalBlock names the component of the last
// segment so receivers know when assembly is complete.
func (s *SVSync) InsertDataSegment(content []byte, freshnessMs uint32, nid svsname.Name, seq uint64, segmentNo int, finalBlock svsname.Component, contentType netsvs.ContentType) error {
	id := s.resolve(nid)
	segComp := svsname.Component(fmt.Sprintf("seg=%d", segmentNo))
	name := s.DataName(id, seq).AppendString("v=0").Append(segComp)

	sig, err := s.dataSec.Signer.Sign(content)
	if err != nil {
		return fmt.Errorf("sign segment: %w", err)
	}

	fb := finalBlock
	d := netsvs.Data{
		Name:         name,
		Content:      content,
		FreshnessMs:  freshnessMs,
		Signature:    sig,
		ContentType:  contentType,
		FinalBlockID: &fb,
	}
	s.store.Insert(d)
	return nil
}

// Fetch issues an interest for nid's seq-th publication through the
// Fetcher, validating with dataSec.Validator and caching the result if
// shouldCache accepts it. CanBePrefix is set since a segmented
// publication has no Data stored at the exact base name, only at
// <base>/v=0/seg=0,..
func (s *SVSync) Fetch(ctx context.Context, nid svsname.Name, seq uint64, onValidated func(netsvs.Data), nRetries int) {
	s.FetchName(ctx, s.DataName(s.resolve(nid), seq), onValidated, nRetries)
}

// FetchName is Fetch with an already-derived wire name, used to
// retrieve individual segments of a segmented publication, whose names
// extend the base data name by /v=0/seg=<n> rather than naming a
// (nid, seq) pair directly. Validation-failure retries are not
// requested here (a budget of 0): SVSync has no separate application
// hook for a validation failure, so a fetch that keeps failing
// validation is reported as a plain miss rather than retried under a
// fresh nonce.
func (s *SVSync) FetchName(ctx context.Context, name svsname.Name, onValidated func(netsvs.Data), nRetries int) {
	s.fetcher.Express(ctx, netsvs.Interest{
		Name:        name,
		CanBePrefix: true,
		Lifetime:    DefaultFetchLifetime,
	}, func(d netsvs.Data) {
		if s.dataSec.Validator != nil {
			if err := s.dataSec.Validator.Validate(d.Content, d.Signature); err != nil {
				return
			}
		}
		if s.shouldCache != nil && s.shouldCache(d) {
			s.store.Insert(d)
		}
		if onValidated != nil {
			onValidated(d)
		}
	}, func(error) {}, func() {}, nRetries, nil, 0)
}

// Store returns the underlying Data Store, for callers such as the
// pub/sub facade's segment assembler that need to check for
// already-cached segments before fetching over the network.
func (s *SVSync) Store() *store.Store { return s.store }

// handleDataInterest answers an incoming data interest from the local
// store when found, and ignores it otherwise: peers will retry
// elsewhere.
func (s *SVSync) handleDataInterest(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
	d, ok := s.store.Find(i.Name, i.CanBePrefix)
	if !ok {
		return
	}
	if err := reply(d); err != nil {
		s.logger.Debug("reply to data interest", "error", err)
	}
}

// Close releases the data prefix registration.
func (s *SVSync) Close() error {
	if s.cancelReg != nil {
		s.cancelReg()
	}
	return nil
}
