// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vvector_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/vvector"
)

var mergeTestProducers = []string{"p1", "p2", "p3", "p4", "p5"}

func randomVector(rng *rand.Rand, maxSeq uint64) *vvector.Vector {
	v := vvector.New()
	for _, p := range mergeTestProducers {
		if rng.Intn(2) == 0 {
			continue
		}
		v.Set(svsname.New(p), rng.Uint64()%maxSeq+1)
	}
	return v
}

func snapshotMap(v *vvector.Vector) map[string]uint64 {
	out := make(map[string]uint64, len(mergeTestProducers))
	for _, e := range v.Snapshot() {
		out[e.ID.String()] = e.Seq
	}
	return out
}

// TestMergeResultIsPerProducerMax checks Merge's basic contract:
// the merged vector holds, for each producer, the larger of the two
// input sequence numbers.
func TestMergeResultIsPerProducerMax(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 200; trial++ {
		a := randomVector(rng, 50)
		b := randomVector(rng, 50)
		wantA, wantB := snapshotMap(a), snapshotMap(b)

		a.Merge(b)

		for _, p := range mergeTestProducers {
			k := svsname.New(p).String() // snapshotMap keys are ID.String(), e.g. "/p1"
			want := wantA[k]
			if wantB[k] > want {
				want = wantB[k]
			}
			require.Equalf(t, want, a.Get(svsname.New(p)), "trial %d producer %s", trial, p)
		}
	}
}

// TestMergeTwiceInARowYieldsNoFurtherMissing exercises the idempotency
// half of Merge's documented invariant: merging the same vector twice
// in a row reports no additional Missing entries the second time.
func TestMergeTwiceInARowYieldsNoFurtherMissing(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(2))

	for trial := 0; trial < 100; trial++ {
		local := randomVector(rng, 20)
		remote := randomVector(rng, 20)

		local.Merge(remote)
		res := local.Merge(remote)
		assert.Emptyf(t, res.Missing, "trial %d: second identical merge reported Missing", trial)
		assert.Falsef(t, res.OtherNew, "trial %d: second identical merge reported OtherNew", trial)
	}
}

// TestMergeConvergesRegardlessOfOrder exercises the commutativity half
// of Merge's documented invariant: merging A then B converges to the
// same vector as merging B then A.
func TestMergeConvergesRegardlessOfOrder(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 100; trial++ {
		base := randomVector(rng, 30)
		a := randomVector(rng, 30)
		b := randomVector(rng, 30)

		left := base.Clone()
		left.Merge(a)
		left.Merge(b)

		right := base.Clone()
		right.Merge(b)
		right.Merge(a)

		require.Equalf(t, snapshotMap(left), snapshotMap(right), "trial %d: merge order affected converged state", trial)
	}
}
