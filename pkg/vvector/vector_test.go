// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vvector_test

import (
	"testing"
	"time"

	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/vvector"
)

func TestSetIsMonotonic(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	nid := svsname.New("a")

	v.Set(nid, 5)
	v.Set(nid, 3)
	if got := v.Get(nid); got != 5 {
		t.Errorf("Get = %d, want 5 (Set should not decrease)", got)
	}

	v.Set(nid, 9)
	if got := v.Get(nid); got != 9 {
		t.Errorf("Get = %d, want 9", got)
	}
}

func TestGetUnknownIsZero(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	if got := v.Get(svsname.New("unknown")); got != 0 {
		t.Errorf("Get(unknown) = %d, want 0", got)
	}
	if v.Has(svsname.New("unknown")) {
		t.Error("Has(unknown) = true, want false")
	}
}

func TestSnapshotIsKeyAscending(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	v.Set(svsname.New("c"), 1)
	v.Set(svsname.New("a"), 1)
	v.Set(svsname.New("b"), 1)

	snap := v.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(snap) = %d, want 3", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID.Compare(snap[i].ID) >= 0 {
			t.Fatalf("Snapshot not key-ascending: %v", snap)
		}
	}
}

func TestMergeReportsMissingRanges(t *testing.T) {
	t.Parallel()
	local := vvector.New()
	remote := vvector.New()
	remote.Set(svsname.New("p1"), 5)
	remote.Set(svsname.New("p2"), 2)

	res := local.Merge(remote)
	if !res.OtherNew {
		t.Error("OtherNew = false, want true")
	}
	if len(res.Missing) != 2 {
		t.Fatalf("len(Missing) = %d, want 2", len(res.Missing))
	}
	for _, m := range res.Missing {
		if m.Low != 1 {
			t.Errorf("Missing range for %v starts at %d, want 1", m.ID, m.Low)
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()
	local := vvector.New()
	remote := vvector.New()
	remote.Set(svsname.New("p1"), 5)

	local.Merge(remote)
	res := local.Merge(remote)
	if len(res.Missing) != 0 {
		t.Errorf("second identical merge produced Missing = %v, want none", res.Missing)
	}
	if res.OtherNew {
		t.Error("second identical merge reported OtherNew = true")
	}
}

func TestMergeGraceWindowSuppressesMyNew(t *testing.T) {
	t.Parallel()
	local := vvector.New()
	fixedNow := time.Unix(1000, 0)
	local.SetTimeFunc(func() time.Time { return fixedNow })

	local.Set(svsname.New("p1"), 1) // lastUpdate = fixedNow

	remote := vvector.New()
	remote.SetTimeFunc(func() time.Time { return fixedNow })
	// remote does not know about p1, so local is strictly ahead.

	res := local.MergeWithGrace(remote, 500*time.Millisecond)
	if res.MyNew {
		t.Error("MyNew = true within the grace window, want false")
	}
}

func TestMergeGraceWindowElapsedReportsMyNew(t *testing.T) {
	t.Parallel()
	local := vvector.New()
	t0 := time.Unix(1000, 0)
	local.SetTimeFunc(func() time.Time { return t0 })
	local.Set(svsname.New("p1"), 1)

	remote := vvector.New()
	later := t0.Add(time.Second)
	local.SetTimeFunc(func() time.Time { return later })

	res := local.MergeWithGrace(remote, 500*time.Millisecond)
	if !res.MyNew {
		t.Error("MyNew = false after grace window elapsed, want true")
	}
}

func TestClone(t *testing.T) {
	t.Parallel()
	v := vvector.New()
	v.Set(svsname.New("p1"), 3)

	c := v.Clone()
	c.Set(svsname.New("p1"), 9)

	if got := v.Get(svsname.New("p1")); got != 3 {
		t.Errorf("original mutated by clone: Get = %d, want 3", got)
	}
	if got := c.Get(svsname.New("p1")); got != 9 {
		t.Errorf("clone.Get = %d, want 9", got)
	}
}
