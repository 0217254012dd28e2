// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapping_test

import (
	"testing"

	"github.com/svsproto/svs/pkg/mapping"
	"github.com/svsproto/svs/pkg/svsname"
)

func TestStoreInsertLookup(t *testing.T) {
	t.Parallel()
	s := mapping.NewStore()
	nid := svsname.New("p1")
	e := mapping.Entry{ID: nid, Seq: 3, Name: svsname.New("chat", "msg3")}
	s.Insert(e)

	got, ok := s.Lookup(nid, 3)
	if !ok {
		t.Fatal("Lookup = false, want true")
	}
	if !got.Name.Equal(e.Name) {
		t.Errorf("Name = %v, want %v", got.Name, e.Name)
	}

	if _, ok := s.Lookup(nid, 4); ok {
		t.Error("Lookup(unknown seq) = true, want false")
	}
}

func TestContiguousPrefixStopsAtFirstGap(t *testing.T) {
	t.Parallel()
	s := mapping.NewStore()
	nid := svsname.New("p1")
	s.Insert(mapping.Entry{ID: nid, Seq: 1, Name: svsname.New("a")})
	s.Insert(mapping.Entry{ID: nid, Seq: 2, Name: svsname.New("b")})
	// gap at 3
	s.Insert(mapping.Entry{ID: nid, Seq: 4, Name: svsname.New("d")})

	got := s.ContiguousPrefix(nid, 1, 4)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (stop before the gap)", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("got seqs %d, %d, want 1, 2", got[0].Seq, got[1].Seq)
	}
}

func TestEntryTimestampMicros(t *testing.T) {
	t.Parallel()
	e := mapping.Entry{}
	if _, ok := e.TimestampMicros(); ok {
		t.Error("TimestampMicros on entry without block = true, want false")
	}

	e.Extra = []mapping.Block{{Type: mapping.BlockTimestampMicros, Value: []byte{0, 0, 0, 0, 0, 0, 1, 0}}}
	v, ok := e.TimestampMicros()
	if !ok || v != 256 {
		t.Errorf("TimestampMicros = %d, %v, want 256, true", v, ok)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	nid := svsname.New("p1")
	entries := []mapping.Entry{
		{Seq: 1, Name: svsname.New("chat", "msg1")},
		{Seq: 2, Name: svsname.New("chat", "msg2"), Extra: []mapping.Block{
			{Type: mapping.BlockTimestampMicros, Value: []byte{0, 0, 0, 0, 0, 0, 0, 9}},
		}},
	}

	buf := mapping.Encode(nid, entries)
	gotID, gotEntries, err := mapping.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !gotID.Equal(nid) {
		t.Errorf("decoded ID = %v, want %v", gotID, nid)
	}
	if len(gotEntries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(gotEntries))
	}
	if !gotEntries[1].Name.Equal(entries[1].Name) {
		t.Errorf("entry[1].Name = %v, want %v", gotEntries[1].Name, entries[1].Name)
	}
	ts, ok := gotEntries[1].TimestampMicros()
	if !ok || ts != 9 {
		t.Errorf("entry[1].TimestampMicros = %d, %v, want 9, true", ts, ok)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()
	if _, _, err := mapping.Decode([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected error decoding malformed mapping data")
	}
}

func TestPendingListDrainRoundTrip(t *testing.T) {
	t.Parallel()
	localID := svsname.New("me")
	pl := mapping.NewPendingList(localID)

	if got := pl.Drain(); got != nil {
		t.Fatalf("Drain on empty list = %v, want nil", got)
	}

	pl.Add(mapping.Entry{Seq: 1, Name: svsname.New("chat", "1")})
	pl.Add(mapping.Entry{Seq: 2, Name: svsname.New("chat", "2")})

	block := pl.Drain()
	if block == nil {
		t.Fatal("Drain = nil after Add, want a block")
	}
	if got := pl.Drain(); got != nil {
		t.Error("second Drain should be empty after first drained the list")
	}

	store := mapping.NewStore()
	if err := mapping.Absorb(store, block); err != nil {
		t.Fatalf("Absorb: %v", err)
	}
	if _, ok := store.Lookup(localID, 1); !ok {
		t.Error("Absorb did not install seq 1")
	}
	if _, ok := store.Lookup(localID, 2); !ok {
		t.Error("Absorb did not install seq 2")
	}
}

func TestAbsorbEmptyBlockIsNoop(t *testing.T) {
	t.Parallel()
	store := mapping.NewStore()
	if err := mapping.Absorb(store, nil); err != nil {
		t.Errorf("Absorb(nil) = %v, want nil", err)
	}
}

func TestQueryNameRoundTrip(t *testing.T) {
	t.Parallel()
	nid := svsname.New("p1")
	prefix := svsname.New("svs", "demo")

	name := mapping.QueryName(nid, prefix, 3, 9)
	low, high, ok := mapping.ParseQueryName(name)
	if !ok {
		t.Fatal("ParseQueryName = false, want true")
	}
	if low != 3 || high != 9 {
		t.Errorf("got (%d, %d), want (3, 9)", low, high)
	}
}

func TestParseQueryNameRejectsNonQuery(t *testing.T) {
	t.Parallel()
	if _, _, ok := mapping.ParseQueryName(svsname.New("a", "b")); ok {
		t.Error("ParseQueryName = true for a non-query name, want false")
	}
}
