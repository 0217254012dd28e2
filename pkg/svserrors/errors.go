// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package svserrors collects sentinel errors shared across packages, so
// callers across process boundaries (or just across packages) can
// compare with errors.Is instead of matching strings. Modeled on bee's
// pkg/p2p/error.go, which does the same for its own substrate-level
// failure taxonomy.
package svserrors

import "errors"

var (
	// ErrPrefixRegistrationFailed mirrors netsvs.ErrPrefixRegistrationFailed,
	// returned when a component cannot register an interest handler on
	// its required prefix at construction time.
	ErrPrefixRegistrationFailed = errors.New("svs: prefix registration failed")

	// ErrSignatureFailure mirrors security.ErrSignatureFailure.
	ErrSignatureFailure = errors.New("svs: signature failure")

	// ErrMalformedVector names a StateVector TLV block that fails
	// structural validation. The decoders in this module (pkg/vvector,
	// pkg/syncengine) report that case with tlv.ErrInvalidStateVector
	// instead; no package returns this value.
	ErrMalformedVector = errors.New("svs: malformed state vector")

	// ErrUnknownProducer names a reference to a producer id the caller
	// has never observed. No package in this module returns it.
	ErrUnknownProducer = errors.New("svs: unknown producer")

	// ErrClosed names an operation attempted on a component after its
	// Close method has run. No package in this module returns it.
	ErrClosed = errors.New("svs: component closed")
)
