// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netsvs_test

import (
	"context"
	"testing"
	"time"

	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/svsname"
)

func TestMulticastFansOutToAllMatchingRegistrations(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	prefix := svsname.New("a")

	got := make(chan struct{}, 2)
	handler := func(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
		got <- struct{}{}
	}

	if _, err := bus.RegisterPrefix(prefix, handler); err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}
	if _, err := bus.RegisterPrefix(prefix, handler); err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}

	if err := bus.Multicast(context.Background(), netsvs.Interest{Name: svsname.New("a", "sync")}); err != nil {
		t.Fatalf("Multicast: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatalf("handler %d not invoked", i)
		}
	}
}

func TestExpressDeliversFirstReply(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	want := netsvs.Data{Name: svsname.New("a", "1"), Content: []byte("hi")}

	_, err := bus.RegisterPrefix(svsname.New("a"), func(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
		_ = reply(want)
	})
	if err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}

	dataCh := make(chan netsvs.Data, 1)
	_, err = bus.Express(context.Background(), netsvs.Interest{Name: svsname.New("a", "1"), Lifetime: time.Second},
		func(d netsvs.Data) { dataCh <- d },
		func(error) {},
		func() {},)
	if err != nil {
		t.Fatalf("Express: %v", err)
	}

	select {
	case d := <-dataCh:
		if !d.Name.Equal(want.Name) || string(d.Content) != "hi" {
			t.Errorf("got %+v, want %+v", d, want)
		}
	case <-time.After(time.Second):
		t.Fatal("onData not invoked")
	}
}

func TestExpressTimesOutWithNoRegistration(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	timedOut := make(chan struct{})
	_, err := bus.Express(context.Background(), netsvs.Interest{
		Name: svsname.New("nowhere"),
		Lifetime: 20 * time.Millisecond,
	}, func(netsvs.Data) {}, func(error) {}, func() { close(timedOut) })
	if err != nil {
		t.Fatalf("Express: %v", err)
	}

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("onTimeout not invoked")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	cancel, err := bus.RegisterPrefix(svsname.New("a"), func(context.Context, netsvs.Interest, func(netsvs.Data) error) {})
	if err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}
	cancel()
	cancel() // must not panic
}
