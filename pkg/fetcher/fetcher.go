// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetcher implements the Fetcher: a cooperative
// request pipeline over the network substrate with bounded concurrency,
// retrying on validation failure or timeout. Its bounded in-flight
// window mirrors bee's pkg/rate.Rate-gated retrieval and the shutdown
// discipline of pkg/pullsync.Syncer (quit channel, WaitGroup).
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/netsvs"
)

const loggerName = "fetcher"

// InFlightWindow bounds the number of concurrently outstanding logical
// requests. A request occupies its slot for its full lifetime,
// including retries, not just a single Express call.
const InFlightWindow = 10

const validationFailRetryDelay = 300 * time.Millisecond

// Validator checks a received Data before it is handed to the caller's
// onData callback.
type Validator func(netsvs.Data) error

// request is one logical fetch, which may span several Express calls
// across retries before reaching a terminal outcome.
type request struct {
	id       string
	interest netsvs.Interest
	onData   func(netsvs.Data)
	onNack   func(error)
	onTimeout func()

	nRetries         int
	onValidationFail func(error)

	nRetriesOnValidationFail int // remaining budget, decremented on each retry
}

// Fetcher pipelines Express calls over a Face with bounded concurrency.
type Fetcher struct {
	face      netsvs.Face
	validator Validator
	logger    log.Logger
	metrics   metrics

	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]netsvs.CancelFunc

	quit chan struct{}
	wg   sync.WaitGroup
}

// New returns a Fetcher issuing Express calls through face, validating
// each Data with validator (nil disables validation).
func New(face netsvs.Face, validator Validator, logger log.Logger) *Fetcher {
	return &Fetcher{
		face:      face,
		validator: validator,
		logger:    logger.WithName(loggerName).Register(),
		metrics:   newMetrics(),
		sem:       make(chan struct{}, InFlightWindow),
		cancels:   make(map[string]netsvs.CancelFunc),
		quit:      make(chan struct{}),
	}
}

// Express enqueues interest and returns immediately. At most
// InFlightWindow logical requests are in flight concurrently; each
// additional request waits in its own goroutine until a slot frees.
// onValidationFail may be nil, in which case a validation
// failure after retries are exhausted is silently dropped.
// nRetriesOnValidationFail is a budget independent of nRetries (the
// timeout-retry budget); the spec's default for it is 0, so most
// callers pass 0 here unless they specifically want the fetcher to
// retry a fresh nonce past an untrustworthy or transiently-corrupt
// reply.
func (f *Fetcher) Express(ctx context.Context, interest netsvs.Interest, onData func(netsvs.Data), onNack func(error), onTimeout func(), nRetries int, onValidationFail func(error), nRetriesOnValidationFail int) {
	req := &request{
		id:                       uuid.NewString(),
		interest:                 interest,
		onData:                   onData,
		onNack:                   onNack,
		onTimeout:                onTimeout,
		nRetries:                 nRetries,
		onValidationFail:         onValidationFail,
		nRetriesOnValidationFail: nRetriesOnValidationFail,
	}
	f.metrics.Expressed.Inc()
	f.wg.Add(1)
	go f.run(ctx, req)
}

// run acquires req's in-flight slot and holds it until a terminal
// outcome (data received and validated, validation failure reported,
// nack, or timeout reported) releases it, including across retry
// delays. A validated Data releases the slot before onData runs, so
// fetches issued from inside onData do not wait on their parent's slot.
func (f *Fetcher) run(ctx context.Context, req *request) {
	defer f.wg.Done()
	select {
	case f.sem <- struct{}{}:
	case <-f.quit:
		return
	case <-ctx.Done():
		return
	}
	f.metrics.InFlight.Inc()
	var once sync.Once
	release := func() {
		once.Do(func() {
			f.metrics.InFlight.Dec()
			<-f.sem
		})
	}

	f.dispatch(ctx, req, release)
}

// dispatch issues a single Express call for req; release is invoked
// exactly once, from whichever terminal or retry-exhausted path is
// reached (possibly after further retries re-dispatch on a fresh
// goroutine spawned from f.wg).
func (f *Fetcher) dispatch(ctx context.Context, req *request, release func()) {
	cancel, err := f.face.Express(ctx, req.interest,
		func(d netsvs.Data) { f.onData(ctx, req, d, release) },
		func(err error) { f.onNack(req, err, release) },
		func() { f.onTimeout(ctx, req, release) })
	if err != nil {
		if req.onNack != nil {
			req.onNack(err)
		}
		release()
		return
	}

	f.mu.Lock()
	f.cancels[req.id] = cancel
	f.mu.Unlock()
}

func (f *Fetcher) clearCancel(id string) {
	f.mu.Lock()
	c, ok := f.cancels[id]
	delete(f.cancels, id)
	f.mu.Unlock()
	if ok {
		c()
	}
}

func (f *Fetcher) onData(ctx context.Context, req *request, d netsvs.Data, release func()) {
	f.clearCancel(req.id)

	if f.validator != nil {
		if err := f.validator(d); err != nil {
			f.onValidationFailure(ctx, req, err, release)
			return
		}
	}
	release()
	if req.onData != nil {
		req.onData(d)
	}
}

// onValidationFailure retries with a fresh nonce after a delay if its
// own retry budget (nRetriesOnValidationFail, independent of the
// timeout-retry budget nRetries) has not been exhausted, else reports
// the failure to the caller.
func (f *Fetcher) onValidationFailure(ctx context.Context, req *request, err error, release func()) {
	if req.nRetriesOnValidationFail > 0 {
		req.nRetriesOnValidationFail--
		req.interest.Nonce = freshNonce()
		f.metrics.Retries.Inc()
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			select {
			case <-time.After(validationFailRetryDelay):
			case <-f.quit:
				release()
				return
			}
			f.dispatch(ctx, req, release)
		}()
		return
	}
	f.metrics.ValidationFailures.Inc()
	defer release()
	if req.onValidationFail != nil {
		req.onValidationFail(err)
	}
}

func (f *Fetcher) onNack(req *request, err error, release func()) {
	f.metrics.Nacked.Inc()
	defer release()
	if req.onNack != nil {
		req.onNack(err)
	}
}

// onTimeout re-enqueues with a fresh nonce if retries remain, else
// reports timeout.
func (f *Fetcher) onTimeout(ctx context.Context, req *request, release func()) {
	f.clearCancel(req.id)

	if req.nRetries > 0 {
		req.nRetries--
		req.interest.Nonce = freshNonce()
		f.metrics.Retries.Inc()
		f.dispatch(ctx, req, release)
		return
	}
	f.metrics.TimedOut.Inc()
	defer release()
	if req.onTimeout != nil {
		req.onTimeout()
	}
}

func freshNonce() uint64 {
	id := uuid.New()
	var n uint64
	for _, b := range id[:8] {
		n = n<<8 | uint64(b)
	}
	return n
}

// Close cancels all pending requests and waits for in-flight goroutines
// to drain.
func (f *Fetcher) Close() error {
	close(f.quit)

	f.mu.Lock()
	for id, c := range f.cancels {
		c()
		delete(f.cancels, id)
	}
	f.mu.Unlock()
	cc := make(chan struct{})
	go func() {
		defer close(cc)
		f.wg.Wait()
	}()
	select {
	case <-cc:
	case <-time.After(5 * time.Second):
		f.logger.Warning("fetcher shutting down with running goroutines")
	}
	return nil
}
