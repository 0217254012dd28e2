// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/svsproto/svs/pkg/tlv"
)

func TestWriteVarNumberStaticEncoding(t *testing.T) {
	t.Parallel()
	tt := []struct {
		v uint64
		want []byte
	}{
		{v: 0, want: []byte{0x00}},
		{v: 0x0A, want: []byte{0x0A}},
		{v: 252, want: []byte{0xFC}},
		{v: 253, want: []byte{0xFD, 0x00, 0xFD}},
		{v: 0xFFFF, want: []byte{0xFD, 0xFF, 0xFF}},
		{v: 0x10000, want: []byte{0xFE, 0x00, 0x01, 0x00, 0x00}},
		{v: 0x100000000, want: []byte{0xFF, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tc := range tt {
		var buf bytes.Buffer
		if err := tlv.WriteVarNumber(&buf, tc.v); err != nil {
			t.Fatalf("WriteVarNumber(%d): %v", tc.v, err)
		}
		if got := buf.Bytes(); !bytes.Equal(got, tc.want) {
			t.Errorf("WriteVarNumber(%d) = % X, want % X", tc.v, got, tc.want)
		}
	}
}

func TestVarNumberRoundTrip(t *testing.T) {
	t.Parallel()
	for _, v := range []uint64{0, 1, 252, 253, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000, ^uint64(0)} {
		var buf bytes.Buffer
		if err := tlv.WriteVarNumber(&buf, v); err != nil {
			t.Fatalf("WriteVarNumber(%d): %v", v, err)
		}
		got, err := tlv.ReadVarNumber(&byteReader{buf.Bytes()})
		if err != nil {
			t.Fatalf("ReadVarNumber after WriteVarNumber(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestNonNegativeIntegerRoundTrip(t *testing.T) {
	t.Parallel()
	for _, v := range []uint64{0, 1, 0xFF, 0x100, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000, ^uint64(0)} {
		enc := tlv.EncodeNonNegativeInteger(v)
		got, err := tlv.DecodeNonNegativeInteger(enc)
		if err != nil {
			t.Fatalf("DecodeNonNegativeInteger(%v): %v", enc, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestDecodeNonNegativeIntegerRejectsBadLength(t *testing.T) {
	t.Parallel()
	if _, err := tlv.DecodeNonNegativeInteger([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for 3-byte integer, got nil")
	}
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	t.Parallel()
	var enc tlv.Encoder
	enc.WriteBlock(tlv.TypeName, []byte("hello"))
	enc.WriteUint(tlv.TypeSeqNo, 42)

	dec := tlv.NewDecoder(enc.Bytes())

	blk, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if blk.Type != tlv.TypeName || string(blk.Value) != "hello" {
		t.Errorf("first block = %+v, want Name/hello", blk)
	}

	blk, err = dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if blk.Type != tlv.TypeSeqNo {
		t.Errorf("second block type = %v, want TypeSeqNo", blk.Type)
	}
	seq, err := tlv.DecodeNonNegativeInteger(blk.Value)
	if err != nil || seq != 42 {
		t.Errorf("decoded seq = %d, err %v, want 42", seq, err)
	}

	if _, err := dec.Next(); err == nil {
		t.Error("expected io.EOF-equivalent error after exhausting blocks")
	}
}

func TestDecoderRejectsTruncatedLength(t *testing.T) {
	t.Parallel()
	// A block claiming a 10-byte value but supplying none.
	buf := []byte{byte(tlv.TypeName), 10}
	dec := tlv.NewDecoder(buf)
	if _, err := dec.Next(); err != tlv.ErrTruncated {
		t.Errorf("Next = %v, want ErrTruncated", err)
	}
}

func TestWriteNested(t *testing.T) {
	t.Parallel()
	var inner tlv.Encoder
	inner.WriteBlock(tlv.TypeNameComponent, []byte("a"))

	var outer tlv.Encoder
	outer.WriteNested(tlv.TypeName, &inner)

	dec := tlv.NewDecoder(outer.Bytes())
	blk, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if blk.Type != tlv.TypeName {
		t.Fatalf("outer type = %v, want TypeName", blk.Type)
	}
	innerDec := tlv.NewDecoder(blk.Value)
	innerBlk, err := innerDec.Next()
	if err != nil || innerBlk.Type != tlv.TypeNameComponent || string(innerBlk.Value) != "a" {
		t.Errorf("inner block = %+v, err %v", innerBlk, err)
	}
}

type byteReader struct{ b []byte }

func (r *byteReader) ReadByte() (byte, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	b := r.b[0]
	r.b = r.b[1:]
	return b, nil
}
