// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vvector

import (
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/tlv"
)

// Encode renders v as a StateVector TLV: zero or more StateVectorEntry
// TLVs in key-ascending order, each a Name followed by a SeqNo. Two
// equal vectors always produce byte-identical encodings.
func Encode(v *Vector) []byte {
	var inner tlv.Encoder
	for _, e := range v.Snapshot() {
		var entryEnc tlv.Encoder
		entryEnc.WriteBlock(tlv.TypeName, nameBody(e.ID))
		entryEnc.WriteUint(tlv.TypeSeqNo, e.Seq)
		inner.WriteBlock(tlv.TypeStateVectorEntry, entryEnc.Bytes())
	}
	var outer tlv.Encoder
	outer.WriteNested(tlv.TypeStateVector, &inner)
	return outer.Bytes()
}

func nameBody(n svsname.Name) []byte {
	var e tlv.Encoder
	for _, c := range n.Components() {
		e.WriteBlock(tlv.TypeNameComponent, c)
	}
	return e.Bytes()
}

// Decode parses bytes produced by Encode, or a bare top-level sequence
// of StateVectorEntry TLVs with no enclosing StateVector wrapper (the
// form some conforming peers send), into a fresh Vector. Unknown
// elements within a StateVectorEntry are skipped; an outer TLV whose
// type is neither StateVector nor StateVectorEntry aborts with
// ErrInvalidStateVector.
func Decode(buf []byte) (*Vector, error) {
	d := tlv.NewDecoder(buf)
	first, err := d.Next()
	if err != nil {
		return nil, tlv.ErrInvalidStateVector
	}

	v := New()
	switch first.Type {
	case tlv.TypeStateVector:
		decodeEntries(tlv.NewDecoder(first.Value), v)
	case tlv.TypeStateVectorEntry:
		// No outer wrapper: first is itself the leading entry, and the
		// remaining top-level blocks continue the same sequence.
		applyEntry(first.Value, v)
		decodeEntries(d, v)
	default:
		return nil, tlv.ErrInvalidStateVector
	}
	return v, nil
}

func decodeEntries(d *tlv.Decoder, v *Vector) {
	for {
		blk, err := d.Next()
		if err != nil {
			break
		}
		if blk.Type != tlv.TypeStateVectorEntry {
			continue // unknown sibling block: skip
		}
		applyEntry(blk.Value, v)
	}
}

func applyEntry(buf []byte, v *Vector) {
	id, seq, ok := decodeEntry(buf)
	if ok {
		v.Set(id, seq)
	}
}

func decodeEntry(buf []byte) (svsname.Name, uint64, bool) {
	d := tlv.NewDecoder(buf)
	nameBlk, err := d.Next()
	if err != nil || nameBlk.Type != tlv.TypeName {
		return svsname.Name{}, 0, false
	}
	id := decodeNameBody(nameBlk.Value)

	var seq uint64
	haveSeq := false
	for {
		blk, err := d.Next()
		if err != nil {
			break
		}
		switch blk.Type {
		case tlv.TypeSeqNo:
			v, err := tlv.DecodeNonNegativeInteger(blk.Value)
			if err != nil {
				return svsname.Name{}, 0, false
			}
			seq = v
			haveSeq = true
		default:
			// unknown element within a StateVectorEntry: skip it.
		}
	}
	if !haveSeq {
		return svsname.Name{}, 0, false
	}
	return id, seq, true
}

func decodeNameBody(buf []byte) svsname.Name {
	d := tlv.NewDecoder(buf)
	var comps []svsname.Component
	for {
		blk, err := d.Next()
		if err != nil {
			break
		}
		if blk.Type != tlv.TypeNameComponent {
			continue
		}
		comps = append(comps, svsname.Component(append([]byte{}, blk.Value...)))
	}
	return svsname.FromComponents(comps...)
}
