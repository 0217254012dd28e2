// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netsvs defines the network substrate boundary: the pub/sub of
// named Interest/Data packets that everything above this package talks
// to. Everything above this package only ever talks to the Face
// interface; a real deployment plugs in an NDN forwarder (or any other
// content-addressed delivery fabric) behind it.
//
// The shape mirrors bee's pkg/p2p: a Service-like registration surface
// plus a narrow per-exchange interface, adapted from request/reply
// streams to fire-and-forget Interest/Data exchange with multicast
// fan-out for sync interests.
package netsvs

import (
	"context"
	"errors"
	"time"

	"github.com/svsproto/svs/pkg/svserrors"
	"github.com/svsproto/svs/pkg/svsname"
)

// ErrPrefixRegistrationFailed is raised when a component cannot obtain a
// registration on its sync or data prefix; this is fatal at construction
// time. It is svserrors.ErrPrefixRegistrationFailed under this package's
// name, so callers may match on either.
var ErrPrefixRegistrationFailed = svserrors.ErrPrefixRegistrationFailed

// ErrNack is returned to an Express caller when the substrate or a peer
// explicitly declines an Interest (as opposed to simply not answering).
var ErrNack = errors.New("netsvs: interest nacked")

// ErrTimeout is returned to an Express caller when an Interest's
// lifetime elapses with no Data and no Nack.
var ErrTimeout = errors.New("netsvs: interest timed out")

// ContentType marks whether a Data's payload is an application-signed
// payload opaquely wrapped by the sync layer ("encapsulation") or a
// plain leaf payload.
type ContentType uint8

const (
	ContentTypeBlob ContentType = iota
	ContentTypeEncapsulated
)

// Interest is a request for named content, with optional parameters.
// Interests carry no payload of their own beyond Params; they are not
// cached. Signature is set by callers whose interest policy requires
// signing Params (see security.InterestSecurity); it is empty under
// InterestPolicyNone.
type Interest struct {
	Name        svsname.Name
	Params      []byte
	Signature   []byte
	CanBePrefix bool
	Lifetime    time.Duration
	Nonce       uint64
}

// Data is a signed, named, cacheable content packet.
type Data struct {
	Name         svsname.Name
	Content      []byte
	FreshnessMs  uint32
	Signature    []byte
	ContentType  ContentType
	FinalBlockID *svsname.Component
}

// HasFinalBlockID reports whether d carries a FinalBlockId marker,
// meaning d is one segment of a larger, segmented publication.
func (d Data) HasFinalBlockID() bool { return d.FinalBlockID != nil }

// InterestHandler is invoked once per matching Interest received on a
// registered prefix. A handler that has an answer calls the supplied
// reply function; a handler with nothing to offer simply returns.
type InterestHandler func(ctx context.Context, i Interest, reply func(Data) error)

// CancelFunc releases a registration, pending Express call, or timer.
// Calling it more than once is a no-op.
type CancelFunc func()

// Face is the substrate boundary every SVS component is built against.
type Face interface {
	// RegisterPrefix installs handler for every Interest whose name is
	// prefixed by prefix. Returns ErrPrefixRegistrationFailed if the
	// substrate cannot honor the registration.
	RegisterPrefix(prefix svsname.Name, handler InterestHandler) (CancelFunc, error)

	// Express sends an Interest. onData fires at most once, with the
	// first validated Data whose name matches; onNack/onTimeout fire at
	// most once otherwise. Express returns immediately; the exchange
	// proceeds asynchronously until the Interest's Lifetime elapses or
	// a terminal callback fires.
	Express(ctx context.Context, i Interest, onData func(Data), onNack func(error), onTimeout func()) (CancelFunc, error)

	// Multicast fans i out to every current registration matching i's
	// name, with no reply path: used for sync interests, which carry no
	// payload of application interest and solicit no Data. Delivery is
	// best-effort.
	Multicast(ctx context.Context, i Interest) error
}
