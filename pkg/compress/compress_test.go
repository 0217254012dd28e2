// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compress_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/svsproto/svs/pkg/compress"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	t.Parallel()
	payload := []byte(strings.Repeat("state vector params ", 50))
	wrapped := compress.WrapLzmaBlock(payload)

	inner, ok, err := compress.TryUnwrapLzmaBlock(wrapped)
	if err != nil {
		t.Fatalf("TryUnwrapLzmaBlock: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if !bytes.Equal(inner, payload) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(inner), len(payload))
	}
}

func TestTryUnwrapNonLzmaBlockReportsNotOK(t *testing.T) {
	t.Parallel()
	// A plain, uncompressed TLV stream (not an LzmaBlock).
	_, ok, err := compress.TryUnwrapLzmaBlock([]byte{0x07, 0x02, 'h', 'i'})
	if err != nil {
		t.Fatalf("TryUnwrapLzmaBlock: %v", err)
	}
	if ok {
		t.Error("ok = true for a non-LzmaBlock buffer, want false")
	}
}

func TestTryUnwrapEmptyBuffer(t *testing.T) {
	t.Parallel()
	_, ok, err := compress.TryUnwrapLzmaBlock(nil)
	if err != nil {
		t.Fatalf("TryUnwrapLzmaBlock(nil): %v", err)
	}
	if ok {
		t.Error("ok = true for an empty buffer, want false")
	}
}
