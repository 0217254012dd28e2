// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package svsname implements the hierarchical producer-id / application
// name type used throughout the sync protocol: an ordered sequence of
// opaque byte components, compared component-wise and encoded
// deterministically on the wire.
package svsname

import (
	"bytes"
	"strings"
)

// Component is a single opaque element of a Name.
type Component []byte

// Equal reports whether two components hold identical bytes.
func (c Component) Equal(o Component) bool {
	return bytes.Equal(c, o)
}

// Compare orders components lexicographically by byte value, with
// shorter components sorting first when one is a prefix of the other.
func (c Component) Compare(o Component) int {
	return bytes.Compare(c, o)
}

func (c Component) String() string {
	return string(c)
}

// Name is an immutable, ordered sequence of Components, e.g. a
// producer-id or an application publication name.
type Name struct {
	comps []Component
}

// New builds a Name from the given string components.
func New(comps...string) Name {
	cs := make([]Component, len(comps))
	for i, c := range comps {
		cs[i] = Component(c)
	}
	return Name{comps: cs}
}

// FromComponents builds a Name from already-constructed Components.
// The slice is copied so the returned Name is safe to retain.
func FromComponents(comps...Component) Name {
	cs := make([]Component, len(comps))
	copy(cs, comps)
	return Name{comps: cs}
}

// Parse splits a "/"-delimited URI-style string into a Name. Empty
// components (leading, trailing or doubled slashes) are dropped, matching
// the permissive parsing every NDN-derived example repo in the pack uses
// for human-entered names.
func Parse(s string) Name {
	parts := strings.Split(s, "/")
	var comps []Component
	for _, p := range parts {
		if p == "" {
			continue
		}
		comps = append(comps, Component(p))
	}
	return Name{comps: comps}
}

// Len returns the number of components.
func (n Name) Len() int { return len(n.comps) }

// At returns the i-th component.
func (n Name) At(i int) Component { return n.comps[i] }

// Components returns the underlying component slice. Callers must not
// mutate the returned slice.
func (n Name) Components() []Component { return n.comps }

// Append returns a new Name with additional components appended; the
// receiver is left unmodified.
func (n Name) Append(comps...Component) Name {
	out := make([]Component, 0, len(n.comps)+len(comps))
	out = append(out, n.comps...)
	out = append(out, comps...)
	return Name{comps: out}
}

// AppendString is a convenience wrapper around Append for string components.
func (n Name) AppendString(comps...string) Name {
	cs := make([]Component, len(comps))
	for i, c := range comps {
		cs[i] = Component(c)
	}
	return n.Append(cs...)
}

// Equal reports whether two names hold the same components in the same order.
func (n Name) Equal(o Name) bool {
	if len(n.comps) != len(o.comps) {
		return false
	}
	for i := range n.comps {
		if !n.comps[i].Equal(o.comps[i]) {
			return false
		}
	}
	return true
}

// Compare orders names component-wise; a name that is a strict prefix of
// another sorts first. This ordering is what makes StateVector encodings
// deterministic ("key-ascending order").
func (n Name) Compare(o Name) int {
	for i := 0; i < len(n.comps) && i < len(o.comps); i++ {
		if c := n.comps[i].Compare(o.comps[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n.comps) < len(o.comps):
		return -1
	case len(n.comps) > len(o.comps):
		return 1
	default:
		return 0
	}
}

// IsPrefixOf reports whether n is a (non-strict) prefix of o.
func (n Name) IsPrefixOf(o Name) bool {
	if len(n.comps) > len(o.comps) {
		return false
	}
	for i := range n.comps {
		if !n.comps[i].Equal(o.comps[i]) {
			return false
		}
	}
	return true
}

// Prefix returns the first k components of n as a new Name.
func (n Name) Prefix(k int) Name {
	if k > len(n.comps) {
		k = len(n.comps)
	}
	cs := make([]Component, k)
	copy(cs, n.comps[:k])
	return Name{comps: cs}
}

// Suffix returns the components of n starting at index k.
func (n Name) Suffix(k int) Name {
	if k > len(n.comps) {
		k = len(n.comps)
	}
	cs := make([]Component, len(n.comps)-k)
	copy(cs, n.comps[k:])
	return Name{comps: cs}
}

// String renders the name in "/"-delimited URI form.
func (n Name) String() string {
	var b strings.Builder
	for _, c := range n.comps {
		b.WriteByte('/')
		b.Write(c)
	}
	if len(n.comps) == 0 {
		return "/"
	}
	return b.String()
}

// ByKey returns a byte string suitable for use as a deterministic map key
// (length-prefixed so no component boundary ambiguity is possible).
func (n Name) ByKey() string {
	var b bytes.Buffer
	for _, c := range n.comps {
		var lenBuf [4]byte
		l := len(c)
		lenBuf[0] = byte(l >> 24)
		lenBuf[1] = byte(l >> 16)
		lenBuf[2] = byte(l >> 8)
		lenBuf[3] = byte(l)
		b.Write(lenBuf[:])
		b.Write(c)
	}
	return b.String()
}
