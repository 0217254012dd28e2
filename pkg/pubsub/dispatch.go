// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svsproto/svs/pkg/fetcher"
	"github.com/svsproto/svs/pkg/mapping"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/svsync"
	"github.com/svsproto/svs/pkg/vvector"
)

// onSyncUpdate is the Sync Engine's on_update callback: for each newly
// learned range it resolves producer and prefix subscriptions to
// concrete (nid, seq) targets and feeds the fetch loop.
func (p *PubSub) onSyncUpdate(missing []vvector.MissingRange) {
	ctx := context.Background()
	for _, rng := range missing {
		p.dispatchProducerSubs(rng)
		p.dispatchPrefixSubs(ctx, rng)
	}
}

// dispatchProducerSubs implements step 1: enqueue every sequence in
// [low, high] (and, for prefetching subscribers, high+1) for any
// producer subscription whose prefix matches nid.
func (p *PubSub) dispatchProducerSubs(rng vvector.MissingRange) {
	p.mu.Lock()
	var matches []*subscription
	for _, s := range p.subs {
		if s.kind == kindProducer && s.prefix.IsPrefixOf(rng.ID) {
			matches = append(matches, s)
		}
	}
	p.mu.Unlock()
	if len(matches) == 0 {
		return
	}
	for seq := rng.Low; seq <= rng.Hi; seq++ {
		p.enqueueFetch(fetchTarget{nid: rng.ID, seq: seq}, matches)
	}
	for _, s := range matches {
		if s.prefetch {
			p.enqueueFetch(fetchTarget{nid: rng.ID, seq: rng.Hi + 1}, []*subscription{s})
		}
	}
}

// dispatchPrefixSubs implements step 2: resolve each new sequence to an
// application name via the mapping store (possibly just installed via
// piggyback), falling back to the query protocol in windows of at most
// mapping.QueryCap for anything unresolved.
func (p *PubSub) dispatchPrefixSubs(ctx context.Context, rng vvector.MissingRange) {
	p.mu.Lock()
	var prefixSubs []*subscription
	for _, s := range p.subs {
		if s.kind == kindPrefix {
			prefixSubs = append(prefixSubs, s)
		}
	}
	p.mu.Unlock()
	if len(prefixSubs) == 0 {
		return
	}

	var unresolvedLow uint64
	haveUnresolved := false

	flushUnresolved := func(high uint64) {
		if !haveUnresolved {
			return
		}
		haveUnresolved = false
		p.metrics.MappingQueries.Inc()
		mapping.ChainedQuery(ctx, p.face, p.syncPrefix, rng.ID, unresolvedLow, high, func(entries []mapping.Entry) {
			for _, e := range entries {
				p.mapStr.Insert(e)
				p.dispatchResolvedMapping(e, prefixSubs)
			}
		}, func(err error) {
			p.logger.Debug("mapping query failed", "error", err)
		})
	}

	for seq := rng.Low; seq <= rng.Hi; seq++ {
		e, ok := p.mapStr.Lookup(rng.ID, seq)
		if !ok {
			if !haveUnresolved {
				haveUnresolved = true
				unresolvedLow = seq
			}
			if seq-unresolvedLow+1 >= mapping.QueryCap {
				flushUnresolved(seq)
			}
			continue
		}
		flushUnresolved(seq - 1)
		p.dispatchResolvedMapping(e, prefixSubs)
	}
	flushUnresolved(rng.Hi)
}

func (p *PubSub) dispatchResolvedMapping(e mapping.Entry, prefixSubs []*subscription) {
	if p.maxPubAge > 0 {
		if ts, ok := e.TimestampMicros(); ok {
			age := time.Duration(nowMicros()-ts) * time.Microsecond
			if age > p.maxPubAge {
				return
			}
		}
	}
	var matches []*subscription
	for _, s := range prefixSubs {
		if s.prefix.IsPrefixOf(e.Name) {
			matches = append(matches, s)
		}
	}
	if len(matches) > 0 {
		p.enqueueFetch(fetchTarget{nid: e.ID, seq: e.Seq}, matches)
	}
}

// enqueueFetch implements step 3: accumulate subscriber targets keyed
// by (nid, seq) and, for each distinct key not already fetching, issue
// a fetch.
func (p *PubSub) enqueueFetch(t fetchTarget, subs []*subscription) {
	k := t.key()
	p.mu.Lock()
	p.fetchMap[k] = append(p.fetchMap[k], subs...)
	alreadyFetching := p.fetching[k]
	if !alreadyFetching {
		p.fetching[k] = true
	}
	p.mu.Unlock()
	if alreadyFetching {
		return
	}
	p.sv.Fetch(context.Background(), t.nid, t.seq, func(d netsvs.Data) { p.onSyncData(t, d) }, FetchRetries)
}

// onSyncData implements delivery on first Data received for (nid,
// seq): unwrap the encapsulation, validate the inner Data, and deliver
// to every accumulated subscriber before erasing the fetch bookkeeping
// for this key. An unsegmented publication is delivered as-is to both
// packet and blob subscribers; a segmented one is handed to
// assembleSegments, which fetches every remaining segment and delivers
// each one individually to packet subscribers and the concatenated
// payload once to blob subscribers.
func (p *PubSub) onSyncData(t fetchTarget, outer netsvs.Data) {
	defer p.finishFetch(t)

	if outer.ContentType != netsvs.ContentTypeEncapsulated {
		return
	}

	inner := outer // the encapsulated Data IS the application-visible publication
	if p.dataSec.Validator != nil {
		if err := p.dataSec.Validator.Validate(inner.Content, inner.Signature); err != nil {
			p.logger.Debug("encapsulated data validation failed", "error", err)
			return
		}
	}

	p.mu.Lock()
	subs := append([]*subscription{}, p.fetchMap[t.key()]...)
	p.mu.Unlock()

	var packetSubs, blobSubs []*subscription
	for _, s := range subs {
		if s.packet {
			packetSubs = append(packetSubs, s)
		} else {
			blobSubs = append(blobSubs, s)
		}
	}
	if len(packetSubs) == 0 && len(blobSubs) == 0 {
		return
	}

	if !inner.HasFinalBlockID() {
		for _, s := range packetSubs {
			p.metrics.Delivered.Inc()
			s.cb(inner)
		}
		for _, s := range blobSubs {
			p.metrics.Delivered.Inc()
			s.cb(inner)
		}
		return
	}

	p.assembleSegments(t, inner, packetSubs, blobSubs)
}

func (p *PubSub) finishFetch(t fetchTarget) {
	p.mu.Lock()
	delete(p.fetchMap, t.key())
	delete(p.fetching, t.key())
	p.mu.Unlock()
}

// assembleSegments retrieves every segment of a segmented publication —
// first from the local store (this node may already hold segments it
// produced itself or assembled for an earlier subscriber), then over
// the network for whatever is still missing, bounding concurrent
// segment fetches to the fetcher's in-flight window. packetSubs each
// receive every segment's Data individually, in segment order; blobSubs
// receive the concatenated payload once. Any validation failure or
// fetch timeout aborts delivery for this publication.
func (p *PubSub) assembleSegments(t fetchTarget, first netsvs.Data, packetSubs, blobSubs []*subscription) {
	base := segmentBaseName(first.Name)
	total := segmentIndex(*first.FinalBlockID) + 1

	segments := make([]netsvs.Data, total)
	have := make([]bool, total)
	firstIdx := segmentIndex(first.Name.At(first.Name.Len() - 1))
	segments[firstIdx] = first
	have[firstIdx] = true

	if st := p.sv.Store(); st != nil {
		for _, d := range st.FindAllWithPrefix(base.AppendString("v=0")) {
			idx := segmentIndex(d.Name.At(d.Name.Len() - 1))
			if idx >= 0 && idx < total && !have[idx] {
				segments[idx] = d
				have[idx] = true
			}
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(fetcher.InFlightWindow)

	segmentTimeout := svsync.DefaultFetchLifetime * time.Duration(FetchRetries+1)
	for i := 0; i < total; i++ {
		if have[i] {
			continue
		}
		i := i
		g.Go(func() error { return p.fetchSegment(base, i, segments, segmentTimeout) })
	}

	if err := g.Wait(); err != nil {
		p.metrics.AssemblyAborted.Inc()
		p.logger.Debug("segment assembly aborted", "error", err)
		return
	}
	p.metrics.BlobsAssembled.Inc()

	for _, s := range packetSubs {
		for _, seg := range segments {
			p.metrics.Delivered.Inc()
			s.cb(seg)
		}
	}
	if len(blobSubs) > 0 {
		p.deliverBlob(segments, blobSubs, first)
	}
}

func (p *PubSub) fetchSegment(base svsname.Name, i int, segments []netsvs.Data, timeout time.Duration) error {
	segName := base.AppendString("v=0", "seg="+itoa(i))
	result := make(chan error, 1)

	p.sv.FetchName(context.Background(), segName, func(d netsvs.Data) {
		if p.dataSec.Validator != nil {
			if err := p.dataSec.Validator.Validate(d.Content, d.Signature); err != nil {
				result <- err
				return
			}
		}
		segments[i] = d
		result <- nil
	}, FetchRetries)

	select {
	case err := <-result:
		return err
	case <-time.After(timeout):
		return netsvs.ErrTimeout
	}
}

func (p *PubSub) deliverBlob(segments []netsvs.Data, blobSubs []*subscription, first netsvs.Data) {
	var total int
	for _, s := range segments {
		total += len(s.Content)
	}
	blob := make([]byte, 0, total)
	for _, s := range segments {
		blob = append(blob, s.Content...)
	}
	assembled := first
	assembled.Content = blob
	for _, s := range blobSubs {
		p.metrics.Delivered.Inc()
		s.cb(assembled)
	}
}

func segmentBaseName(name svsname.Name) svsname.Name {
	// strip /v=0/seg=<n> to recover the publication's base data name.
	if name.Len() < 2 {
		return name
	}
	return name.Prefix(name.Len() - 2)
}

func segmentIndex(c svsname.Component) int {
	s := c.String()
	n := 0
	for i := len("seg="); i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
