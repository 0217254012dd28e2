// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syncengine implements the Sync Engine: a
// replicated version-vector anti-entropy protocol that converges group
// state among peers using a single multicast sync channel with
// suppression and jitter to avoid broadcast storms. Its shutdown
// discipline (quit channel, WaitGroup, bounded-wait Close) and logger
// wiring follow bee's pkg/pullsync.Syncer.
package syncengine

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/security"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/vvector"
)

const loggerName = "syncengine"

// State is the Sync Engine's per-instance state.
type State int

const (
	Uninitialized State = iota
	Steady
	Suppressing
)

const (
	syncVersionComponent = "2"

	settlingDelay   = 100 * time.Millisecond
	periodicPeriod  = 30 * time.Second
	periodicJitter  = 0.10
	suppressionSMax = 500 * time.Millisecond
	updateDebounce  = 1 * time.Millisecond
	interestLife    = 1 * time.Millisecond
)

// OnUpdate is invoked with every newly-learned missing range as a
// result of merging a remote vector into the local one.
type OnUpdate func(missing []vvector.MissingRange)

// GetExtraFunc supplies an opaque block to piggyback on the next
// outgoing sync interest (notification piggyback).
type GetExtraFunc func() []byte

// RecvExtraFunc receives a piggybacked opaque block from an incoming
// sync interest, before merge runs.
type RecvExtraFunc func(block []byte)

// Engine is one instance of the Sync Engine, bound to a single sync
// prefix and local node id.
type Engine struct {
	face       netsvs.Face
	syncPrefix svsname.Name
	nodeID     svsname.Name
	onUpdate   OnUpdate
	sec        security.InterestSecurity

	logger  log.Logger
	metrics metrics

	mu    sync.Mutex // guards V and state
	v     *vvector.Vector
	state State

	recMu      sync.Mutex // guards recorded_vv; acquire V's mu first if both are needed
	recordedVV *vvector.Vector

	getExtra  GetExtraFunc
	recvExtra RecvExtraFunc

	periodicTimer    *time.Timer
	periodicDeadline time.Time
	suppressionTimer *time.Timer
	debounceTimer    *time.Timer

	rng *rand.Rand

	cancelReg netsvs.CancelFunc

	quit chan struct{}
	wg   sync.WaitGroup
}

// New constructs an Engine registered on syncPrefix, in the
// Uninitialized state. Registration failure is fatal, returned as
// netsvs.ErrPrefixRegistrationFailed.
func New(face netsvs.Face, syncPrefix, nodeID svsname.Name, onUpdate OnUpdate, sec security.InterestSecurity, logger log.Logger) (*Engine, error) {
	e := &Engine{
		face:       face,
		syncPrefix: syncPrefix,
		nodeID:     nodeID,
		onUpdate:   onUpdate,
		sec:        sec,
		logger:     logger.WithName(loggerName).Register(),
		metrics:    newMetrics(),
		v:          vvector.New(),
		recordedVV: vvector.New(),
		state:      Uninitialized,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		quit:       make(chan struct{}),
	}

	cancel, err := face.RegisterPrefix(syncPrefix, e.handleInterest)
	if err != nil {
		return nil, netsvs.ErrPrefixRegistrationFailed
	}
	e.cancelReg = cancel
	return e, nil
}

// SetOnUpdate (re)installs the callback invoked with every newly-learned
// missing range. Exposed so a higher layer (e.g. the Pub/Sub Facade,
// which itself depends on the Engine) can wire itself in after
// construction without a circular constructor dependency.
func (e *Engine) SetOnUpdate(f OnUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = f
}

// SetGetExtra installs the get_extra piggyback hook.
func (e *Engine) SetGetExtra(f GetExtraFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.getExtra = f
}

// SetRecvExtra installs the recv_extra piggyback hook.
func (e *Engine) SetRecvExtra(f RecvExtraFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recvExtra = f
}

// Start transitions Uninitialized -> Steady after a settling delay,
// then emits an initial sync interest.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-time.After(settlingDelay):
		case <-e.quit:
			return
		}

		e.mu.Lock()
		e.state = Steady
		e.mu.Unlock()
		e.sendSyncInterest(ctx)
		e.schedulePeriodic(ctx)
	}()
}

// Seq returns the locally-known sequence number for nid (or the local
// node id if nid is the zero Name).
func (e *Engine) Seq(nid svsname.Name) uint64 {
	return e.v.Get(e.resolve(nid))
}

func (e *Engine) resolve(nid svsname.Name) svsname.Name {
	if nid.Len() == 0 {
		return e.nodeID
	}
	return nid
}

// UpdateSeq advances nid's entry to s if s is greater than the prior
// value, then schedules a sync interest shortly later to coalesce
// bursts of local updates.
func (e *Engine) UpdateSeq(ctx context.Context, s uint64, nid svsname.Name) {
	id := e.resolve(nid)
	before := e.v.Get(id)
	if s <= before {
		return
	}
	e.v.Set(id, s)
	e.scheduleDebounced(ctx)
}

func (e *Engine) scheduleDebounced(ctx context.Context) {
	e.mu.Lock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(updateDebounce, func() {
		e.sendSyncInterest(ctx)
	})
	e.mu.Unlock()
}

// Close releases the prefix registration and all timers, cancelling
// any in-flight operation the Engine owns.
func (e *Engine) Close() error {
	e.logger.Info("sync engine shutting down")
	close(e.quit)

	e.mu.Lock()
	if e.periodicTimer != nil {
		e.periodicTimer.Stop()
	}
	if e.suppressionTimer != nil {
		e.suppressionTimer.Stop()
	}
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.mu.Unlock()
	if e.cancelReg != nil {
		e.cancelReg()
	}

	cc := make(chan struct{})
	go func() {
		defer close(cc)
		e.wg.Wait()
	}()
	select {
	case <-cc:
	case <-time.After(5 * time.Second):
		e.logger.Warning("sync engine shutting down with running goroutines")
	}
	return nil
}

// Reset re-arms the periodic timer without touching V or the recorded
// suppression vector.
func (e *Engine) Reset(ctx context.Context) {
	e.schedulePeriodic(ctx)
}

// curve biases most peers toward later suppression-reply times and few
// toward earlier ones: curve(c,x) = floor(c*(1-exp((x-c)/(c/10)))).
func curve(c, x float64) time.Duration {
	v := c * (1 - math.Exp((x-c)/(c/10)))
	if v < 0 {
		v = 0
	}
	return time.Duration(math.Floor(v)) * time.Millisecond
}

func (e *Engine) schedulePeriodic(ctx context.Context) {
	period := jittered(periodicPeriod, periodicJitter, e.rng)
	e.mu.Lock()
	if e.periodicTimer != nil {
		e.periodicTimer.Stop()
	}
	e.periodicTimer = time.AfterFunc(period, func() { e.onPeriodicFire(ctx) })
	e.periodicDeadline = time.Now().Add(period)
	e.mu.Unlock()
}

func jittered(base time.Duration, jitter float64, rng *rand.Rand) time.Duration {
	lo := float64(base) * (1 - jitter)
	hi := float64(base) * (1 + jitter)
	return time.Duration(lo + rng.Float64()*(hi-lo))
}

// onPeriodicFire implements the periodic retransmit fire.
func (e *Engine) onPeriodicFire(ctx context.Context) {
	select {
	case <-e.quit:
		return
	default:
	}

	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state == Suppressing {
		e.recMu.Lock()
		recorded := e.recordedVV
		e.recordedVV = vvector.New()
		e.recMu.Unlock()
		res := e.v.MergeWithGrace(recorded, suppressionSMax)
		e.mu.Lock()
		e.state = Steady
		e.mu.Unlock()
		if res.MyNew {
			e.sendSyncInterest(ctx)
		}
	} else {
		e.sendSyncInterest(ctx)
	}

	e.schedulePeriodic(ctx)
}

// handleInterest implements handling for a received sync interest.
func (e *Engine) handleInterest(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
	e.metrics.SyncInterestsReceived.Inc()
	if err := e.sec.Validate(i.Params, i.Signature); err != nil {
		e.metrics.SignatureFailures.Inc()
		return
	}

	vOther, extra, err := decodeParams(i.Params)
	if err != nil {
		return // parse errors are swallowed: malicious or newer-version peer
	}

	e.mu.Lock()
	recvExtra := e.recvExtra
	e.mu.Unlock()
	if recvExtra != nil && len(extra) > 0 {
		recvExtra(extra)
	}

	res := e.v.MergeWithGrace(vOther, suppressionSMax)
	if len(res.Missing) > 0 {
		e.metrics.MissingRangesFound.Inc()
		e.mu.Lock()
		onUpdate := e.onUpdate
		e.mu.Unlock()
		if onUpdate != nil {
			onUpdate(res.Missing)
		}
	}

	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state == Suppressing {
		e.recMu.Lock()
		e.recordedVV.Merge(vOther)
		e.recMu.Unlock()
		return
	}

	if !res.MyNew {
		e.schedulePeriodic(ctx)
		return
	}

	e.metrics.SuppressionsEntered.Inc()
	e.mu.Lock()
	e.state = Suppressing
	e.mu.Unlock()
	e.recMu.Lock()
	e.recordedVV = vOther.Clone()
	e.recMu.Unlock()
	delay := curve(float64(suppressionSMax/time.Millisecond), e.rng.Float64()*float64(suppressionSMax/time.Millisecond))
	e.mu.Lock()
	if e.suppressionTimer != nil {
		e.suppressionTimer.Stop()
	}
	// Only arm the suppression reply if it would fire before the
	// already-scheduled periodic retransmit; otherwise the periodic
	// timer's own fire (which runs the identical onPeriodicFire logic)
	// takes care of exiting suppression.
	if time.Now().Add(delay).Before(e.periodicDeadline) {
		e.suppressionTimer = time.AfterFunc(delay, func() { e.onPeriodicFire(ctx) })
	} else {
		e.suppressionTimer = nil
	}
	e.mu.Unlock()
}

// sendSyncInterest multicasts the current V (and any piggybacked extra
// block) as a sync interest.
func (e *Engine) sendSyncInterest(ctx context.Context) {
	select {
	case <-e.quit:
		return
	default:
	}

	e.mu.Lock()
	getExtra := e.getExtra
	e.mu.Unlock()
	var extra []byte
	if getExtra != nil {
		extra = getExtra()
	}

	payload := encodeParams(e.v, extra)
	sig, err := e.sec.Sign(payload)
	if err != nil {
		e.logger.Debug("sign sync interest", "error", err)
		return
	}

	i := netsvs.Interest{
		Name:      e.syncPrefix.AppendString(syncVersionComponent),
		Params:    payload,
		Signature: sig,
		Lifetime:  interestLife,
	}
	if err := e.face.Multicast(ctx, i); err != nil {
		e.logger.Debug("multicast sync interest", "error", err)
		return
	}
	e.metrics.SyncInterestsSent.Inc()
}
