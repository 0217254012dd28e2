// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vvector_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/vvector"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	v.Set(svsname.New("p1"), 5)
	v.Set(svsname.New("p2"), 12)

	buf := vvector.Encode(v)
	decoded, err := vvector.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []vvector.Entry{
		{ID: svsname.New("p1"), Seq: 5},
		{ID: svsname.New("p2"), Seq: 12},
	}
	if diff := cmp.Diff(want, decoded.Snapshot()); diff != "" {
		t.Errorf("decoded snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()
	a := vvector.New()
	a.Set(svsname.New("z"), 1)
	a.Set(svsname.New("a"), 2)

	b := vvector.New()
	b.Set(svsname.New("a"), 2) // inserted in a different order
	b.Set(svsname.New("z"), 1)

	if !bytes.Equal(vvector.Encode(a), vvector.Encode(b)) {
		t.Error("Encode differs for equal vectors populated in different orders")
	}
}

func TestDecodeEmptyVector(t *testing.T) {
	t.Parallel()
	buf := vvector.Encode(vvector.New())
	v, err := vvector.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(v.Snapshot()) != 0 {
		t.Errorf("Snapshot = %v, want empty", v.Snapshot())
	}
}

func TestDecodeRejectsWrongOuterType(t *testing.T) {
	t.Parallel()
	if _, err := vvector.Decode([]byte{0x01, 0x00}); err == nil {
		t.Error("expected error decoding a non-StateVector outer TLV")
	}
}

func TestDecodeAcceptsBareEntrySequenceWithNoOuterWrapper(t *testing.T) {
	t.Parallel()
	// StateVectorEntry(Name(NameComponent("one")), SeqNo(1)) with no
	// enclosing StateVector TLV, as some conforming peers send it.
	buf := []byte{0xCA, 0x0A, 0x07, 0x05, 0x08, 0x03, 'o', 'n', 'e', 0xCC, 0x01, 0x01}

	v, err := vvector.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := v.Get(svsname.New("one")); got != 1 {
		t.Errorf("decoded seq for %q = %d, want 1", "one", got)
	}
}
