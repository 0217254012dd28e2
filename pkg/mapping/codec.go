// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapping

import (
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/tlv"
)

// Encode renders a single producer's entries as a MappingData TLV: the
// producer-id Name followed by one MappingEntry per entry, in the
// order given.
func Encode(id svsname.Name, entries []Entry) []byte {
	var inner tlv.Encoder
	inner.WriteBlock(tlv.TypeName, nameBody(id))
	for _, e := range entries {
		inner.WriteBlock(tlv.TypeMappingEntry, encodeEntry(e))
	}
	var outer tlv.Encoder
	outer.WriteNested(tlv.TypeMappingData, &inner)
	return outer.Bytes()
}

func encodeEntry(e Entry) []byte {
	var enc tlv.Encoder
	enc.WriteUint(tlv.TypeSeqNo, e.Seq)
	enc.WriteBlock(tlv.TypeName, nameBody(e.Name))
	for _, b := range e.Extra {
		enc.WriteBlock(b.Type, b.Value)
	}
	return enc.Bytes()
}

func nameBody(n svsname.Name) []byte {
	var e tlv.Encoder
	for _, c := range n.Components() {
		e.WriteBlock(tlv.TypeNameComponent, c)
	}
	return e.Bytes()
}

// Decode parses a MappingData TLV into the producer id and its entries.
// Unknown blocks within a MappingEntry are preserved as opaque Extra
// blocks rather than dropped, since a forwarding peer may not understand
// a newer block type but must still be able to pass the mapping along.
func Decode(buf []byte) (svsname.Name, []Entry, error) {
	d := tlv.NewDecoder(buf)
	outer, err := d.Next()
	if err != nil || outer.Type != tlv.TypeMappingData {
		return svsname.Name{}, nil, tlv.ErrMalformedMapping
	}

	inner := tlv.NewDecoder(outer.Value)
	idBlk, err := inner.Next()
	if err != nil || idBlk.Type != tlv.TypeName {
		return svsname.Name{}, nil, tlv.ErrMalformedMapping
	}
	id := decodeNameBody(idBlk.Value)

	var entries []Entry
	for {
		blk, err := inner.Next()
		if err != nil {
			break
		}
		if blk.Type != tlv.TypeMappingEntry {
			continue
		}
		e, ok := decodeEntry(blk.Value)
		if !ok {
			continue
		}
		e.ID = id
		entries = append(entries, e)
	}
	return id, entries, nil
}

func decodeEntry(buf []byte) (Entry, bool) {
	d := tlv.NewDecoder(buf)
	var e Entry
	haveSeq, haveName := false, false
	for {
		blk, err := d.Next()
		if err != nil {
			break
		}
		switch blk.Type {
		case tlv.TypeSeqNo:
			v, err := tlv.DecodeNonNegativeInteger(blk.Value)
			if err != nil {
				return Entry{}, false
			}
			e.Seq = v
			haveSeq = true
		case tlv.TypeName:
			e.Name = decodeNameBody(blk.Value)
			haveName = true
		default:
			e.Extra = append(e.Extra, Block{Type: blk.Type, Value: append([]byte{}, blk.Value...)})
		}
	}
	if !haveSeq || !haveName {
		return Entry{}, false
	}
	return e, true
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
