// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncengine

import (
	"testing"

	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/vvector"
)

func TestEncodeDecodeParamsRoundTrip(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	v.Set(svsname.New("p1"), 5)
	v.Set(svsname.New("p2"), 2)

	payload := encodeParams(v, []byte("extra-block"))
	gotV, gotExtra, err := decodeParams(payload)
	if err != nil {
		t.Fatalf("decodeParams: %v", err)
	}
	if got := gotV.Get(svsname.New("p1")); got != 5 {
		t.Errorf("decoded p1 = %d, want 5", got)
	}
	if string(gotExtra) != "extra-block" {
		t.Errorf("decoded extra = %q, want %q", gotExtra, "extra-block")
	}
}

func TestEncodeDecodeParamsWithoutExtra(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	v.Set(svsname.New("p1"), 1)

	payload := encodeParams(v, nil)
	_, extra, err := decodeParams(payload)
	if err != nil {
		t.Fatalf("decodeParams: %v", err)
	}
	if len(extra) != 0 {
		t.Errorf("extra = %v, want empty", extra)
	}
}
