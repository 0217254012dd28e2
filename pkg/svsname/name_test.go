// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package svsname_test

import (
	"testing"

	"github.com/svsproto/svs/pkg/svsname"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tt := []struct {
		in string
		want svsname.Name
	}{
		{in: "", want: svsname.New()},
		{in: "/", want: svsname.New()},
		{in: "/a/b/c", want: svsname.New("a", "b", "c")},
		{in: "a/b/c", want: svsname.New("a", "b", "c")},
		{in: "//a//b//", want: svsname.New("a", "b")},
	}

	for _, tc := range tt {
		got := svsname.Parse(tc.in)
		if !got.Equal(tc.want) {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNameString(t *testing.T) {
	t.Parallel()
	if got, want := svsname.New().String(), "/"; got != want {
		t.Errorf("empty name String = %q, want %q", got, want)
	}
	if got, want := svsname.New("a", "b").String(), "/a/b"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestIsPrefixOf(t *testing.T) {
	t.Parallel()
	prefix := svsname.New("a", "b")
	tt := []struct {
		name string
		n svsname.Name
		want bool
	}{
		{name: "exact match", n: svsname.New("a", "b"), want: true},
		{name: "strict extension", n: svsname.New("a", "b", "c"), want: true},
		{name: "unrelated", n: svsname.New("a", "x"), want: false},
		{name: "shorter", n: svsname.New("a"), want: false},
		{name: "unrelated single component", n: svsname.New("z"), want: false},
	}

	for _, tc := range tt {
		if got := prefix.IsPrefixOf(tc.n); got != tc.want {
			t.Errorf("%s: IsPrefixOf = %v, want %v", tc.name, got, tc.want)
		}
	}

	if !svsname.New().IsPrefixOf(svsname.New("anything")) {
		t.Error("empty name should be a prefix of any name")
	}
}

func TestCompareOrdersPrefixesFirst(t *testing.T) {
	t.Parallel()
	short := svsname.New("a")
	long := svsname.New("a", "b")

	if c := short.Compare(long); c >= 0 {
		t.Errorf("short.Compare(long) = %d, want < 0", c)
	}
	if c := long.Compare(short); c <= 0 {
		t.Errorf("long.Compare(short) = %d, want > 0", c)
	}
	if c := short.Compare(short); c != 0 {
		t.Errorf("short.Compare(short) = %d, want 0", c)
	}
}

func TestByKeyDistinguishesComponentBoundaries(t *testing.T) {
	t.Parallel()
	// "ab"/"c" and "a"/"bc" must not collide under ByKey.
	a := svsname.New("ab", "c")
	b := svsname.New("a", "bc")

	if a.Equal(b) {
		t.Fatal("test fixture invalid: names should differ")
	}
	if a.ByKey() == b.ByKey() {
		t.Error("ByKey collided for names with different component boundaries")
	}
}

func TestAppendLeavesReceiverUnmodified(t *testing.T) {
	t.Parallel()
	base := svsname.New("a")
	extended := base.AppendString("b")

	if base.Len() != 1 {
		t.Fatalf("Append mutated receiver: Len = %d, want 1", base.Len())
	}
	if extended.Len() != 2 {
		t.Fatalf("extended.Len = %d, want 2", extended.Len())
	}
}

func TestPrefixAndSuffix(t *testing.T) {
	t.Parallel()
	n := svsname.New("a", "b", "c")

	if got, want := n.Prefix(2), svsname.New("a", "b"); !got.Equal(want) {
		t.Errorf("Prefix(2) = %v, want %v", got, want)
	}
	if got, want := n.Suffix(1), svsname.New("b", "c"); !got.Equal(want) {
		t.Errorf("Suffix(1) = %v, want %v", got, want)
	}
	if got, want := n.Prefix(10), n; !got.Equal(want) {
		t.Errorf("Prefix beyond length should clamp: got %v, want %v", got, want)
	}
}
