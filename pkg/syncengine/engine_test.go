// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/security"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/syncengine"
	"github.com/svsproto/svs/pkg/vvector"
)

func newTestEngine(t *testing.T, bus *netsvs.Bus, nodeID string, onUpdate syncengine.OnUpdate) *syncengine.Engine {
	t.Helper()
	e, err := syncengine.New(bus, svsname.New("svs", "test"), svsname.New(nodeID), onUpdate,
		security.InterestSecurity{Policy: security.InterestPolicyNone}, log.NewTestLogger(t))
	if err != nil {
		t.Fatalf("syncengine.New(%s): %v", nodeID, err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestUpdateSeqIsMonotonic(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	e := newTestEngine(t, bus, "node-a", nil)

	e.UpdateSeq(context.Background(), 3, svsname.Name{})
	if got := e.Seq(svsname.Name{}); got != 3 {
		t.Fatalf("Seq = %d, want 3", got)
	}

	e.UpdateSeq(context.Background(), 1, svsname.Name{}) // stale: must not regress
	if got := e.Seq(svsname.Name{}); got != 3 {
		t.Fatalf("Seq after stale update = %d, want 3", got)
	}
}

func TestPeerLearnsAboutRemoteUpdate(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	learned := make(chan []vvector.MissingRange, 1)
	nodeB := newTestEngine(t, bus, "node-b", func(missing []vvector.MissingRange) {
		select {
		case learned <- missing:
		default:
		}
	})

	nodeA := newTestEngine(t, bus, "node-a", nil)

	nodeA.Start(context.Background())
	nodeB.Start(context.Background())

	// give both engines a moment to settle into Steady before publishing.
	time.Sleep(150 * time.Millisecond)

	nodeA.UpdateSeq(context.Background(), 1, svsname.Name{})

	select {
	case missing := <-learned:
		if len(missing) != 1 {
			t.Fatalf("len(missing) = %d, want 1", len(missing))
		}
		if !missing[0].ID.Equal(svsname.New("node-a")) {
			t.Errorf("missing range ID = %v, want node-a", missing[0].ID)
		}
		if missing[0].Low != 1 || missing[0].Hi != 1 {
			t.Errorf("missing range = [%d, %d], want [1, 1]", missing[0].Low, missing[0].Hi)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("node-b never learned about node-a's update")
	}
}

func TestPeersConvergeUnderHMACInterestPolicy(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	sec := security.InterestSecurity{Policy: security.InterestPolicyHMAC, HMACKey: []byte("shared-secret")}

	learned := make(chan []vvector.MissingRange, 1)
	nodeB, err := syncengine.New(bus, svsname.New("svs", "test"), svsname.New("node-b"),
		func(missing []vvector.MissingRange) {
			select {
			case learned <- missing:
			default:
			}
		}, sec, log.NewTestLogger(t))
	if err != nil {
		t.Fatalf("syncengine.New(node-b): %v", err)
	}
	t.Cleanup(func() { nodeB.Close() })

	nodeA, err := syncengine.New(bus, svsname.New("svs", "test"), svsname.New("node-a"), nil, sec, log.NewTestLogger(t))
	if err != nil {
		t.Fatalf("syncengine.New(node-a): %v", err)
	}
	t.Cleanup(func() { nodeA.Close() })

	nodeA.Start(context.Background())
	nodeB.Start(context.Background())
	time.Sleep(150 * time.Millisecond)

	nodeA.UpdateSeq(context.Background(), 1, svsname.Name{})

	select {
	case missing := <-learned:
		if len(missing) != 1 || !missing[0].ID.Equal(svsname.New("node-a")) || missing[0].Low != 1 || missing[0].Hi != 1 {
			t.Fatalf("missing = %+v, want one range [1,1] for node-a", missing)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("node-b never learned about node-a's update under HMAC interest policy")
	}
}

func TestCloseReleasesRegistration(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	e, err := syncengine.New(bus, svsname.New("svs", "test"), svsname.New("node-a"), nil,
		security.InterestSecurity{Policy: security.InterestPolicyNone}, log.NewTestLogger(t))
	if err != nil {
		t.Fatalf("syncengine.New: %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
