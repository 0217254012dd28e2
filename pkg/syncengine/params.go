// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncengine

import (
	"github.com/svsproto/svs/pkg/compress"
	"github.com/svsproto/svs/pkg/tlv"
	"github.com/svsproto/svs/pkg/vvector"
)

// extraBlockType is a private, non-reserved block type used to carry
// the piggybacked mapping block (already itself MappingData-TLV encoded
// by pkg/mapping) inside ApplicationParameters, alongside StateVector.
const extraBlockType = tlv.Type(220)

// encodeParams renders an ApplicationParameters TLV containing the
// StateVector and, if non-empty, the piggybacked extra block
// (sync-interest wire format).
func encodeParams(v *vvector.Vector, extra []byte) []byte {
	var enc tlv.Encoder
	enc.WriteBlock(tlv.TypeStateVector, stripOuterHeader(vvector.Encode(v)))
	if len(extra) > 0 {
		enc.WriteBlock(extraBlockType, extra)
	}
	var outer tlv.Encoder
	outer.WriteNested(tlv.TypeApplicationParameters, &enc)
	return outer.Bytes()
}

// stripOuterHeader re-decodes a full StateVector encoding (type+length+
// value) and returns just its value, since encodeParams writes its own
// StateVector header around the same bytes.
func stripOuterHeader(full []byte) []byte {
	d := tlv.NewDecoder(full)
	blk, err := d.Next()
	if err != nil {
		return nil
	}
	return blk.Value
}

// decodeParams parses an ApplicationParameters payload (optionally
// wrapped in a single LzmaBlock) into a version
// vector and the opaque extra block, if present.
func decodeParams(payload []byte) (*vvector.Vector, []byte, error) {
	if inner, ok, err := tryUnwrapLzma(payload); err == nil && ok {
		payload = inner
	}

	d := tlv.NewDecoder(payload)
	outer, err := d.Next()
	if err != nil {
		return nil, nil, err
	}
	if outer.Type != tlv.TypeApplicationParameters {
		return nil, nil, tlv.ErrInvalidStateVector
	}

	inner := tlv.NewDecoder(outer.Value)
	v := vvector.New()
	var extra []byte
	for {
		blk, err := inner.Next()
		if err != nil {
			break
		}
		switch blk.Type {
		case tlv.TypeStateVector:
			var rewrap tlv.Encoder
			rewrap.WriteBlock(tlv.TypeStateVector, blk.Value)
			decoded, err := vvector.Decode(rewrap.Bytes())
			if err != nil {
				return nil, nil, err
			}
			v = decoded
		case extraBlockType:
			extra = append([]byte{}, blk.Value...)
		default:
			// unknown sibling within ApplicationParameters: skip.
		}
	}
	return v, extra, nil
}

// tryUnwrapLzma decodes a single top-level LzmaBlock if payload's first
// TLV is one, returning the decompressed inner payload.
func tryUnwrapLzma(payload []byte) ([]byte, bool, error) {
	return compress.TryUnwrapLzmaBlock(payload)
}
