// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"github.com/svsproto/svs/pkg/svsname"
)

// EncodeName renders a Name as a Name TLV containing one
// NameComponent TLV per component, in order.
func EncodeName(n svsname.Name) []byte {
	var e Encoder
	for _, c := range n.Components() {
		e.WriteBlock(TypeNameComponent, c)
	}
	var outer Encoder
	outer.WriteNested(TypeName, &e)
	return outer.Bytes()
}

// DecodeName parses a buffer that begins with a Name TLV, returning the
// name and the number of bytes consumed.
func DecodeName(buf []byte) (svsname.Name, int, error) {
	d := NewDecoder(buf)
	blk, err := d.Next()
	if err != nil {
		return svsname.Name{}, 0, err
	}
	if blk.Type != TypeName {
		return svsname.Name{}, 0, ErrInvalidStateVector
	}
	inner := NewDecoder(blk.Value)
	var comps []svsname.Component
	for {
		b, err := inner.Next()
		if err != nil {
			break
		}
		if b.Type != TypeNameComponent {
			// Unknown sub-element within a Name: skip it (entries
			// unknown to the parser must be skipped within an entry).
			continue
		}
		comps = append(comps, svsname.Component(append([]byte{}, b.Value...)))
	}
	return svsname.FromComponents(comps...), consumed(buf, blk), nil
}

func consumed(buf []byte, blk Block) int {
	d := NewDecoder(buf)
	_, _ = d.Next()
	return d.r.pos
}
