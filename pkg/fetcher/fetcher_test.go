// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fetcher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/svsproto/svs/pkg/fetcher"
	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/svsname"
)

func TestExpressDeliversValidatedData(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	_, err := bus.RegisterPrefix(svsname.New("a"), func(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
		_ = reply(netsvs.Data{Name: i.Name, Content: []byte("ok")})
	})
	if err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}

	f := fetcher.New(bus, nil, log.NewTestLogger(t))
	defer f.Close()
	got := make(chan netsvs.Data, 1)
	f.Express(context.Background(), netsvs.Interest{Name: svsname.New("a", "1"), Lifetime: time.Second},
		func(d netsvs.Data) { got <- d }, func(error) {}, func() {}, 0, nil, 0)

	select {
	case d := <-got:
		if string(d.Content) != "ok" {
			t.Errorf("Content = %q, want %q", d.Content, "ok")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onData never fired")
	}
}

func TestExpressRetriesOnValidationFailureThenGivesUp(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	var attempts int
	_, err := bus.RegisterPrefix(svsname.New("a"), func(ctx context.Context, i netsvs.Interest, reply func(netsvs.Data) error) {
		attempts++
		_ = reply(netsvs.Data{Name: i.Name, Content: []byte("bad")})
	})
	if err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}

	alwaysFails := func(netsvs.Data) error { return errors.New("nope") }
	f := fetcher.New(bus, alwaysFails, log.NewTestLogger(t))
	defer f.Close()
	failed := make(chan error, 1)
	f.Express(context.Background(), netsvs.Interest{Name: svsname.New("a", "1"), Lifetime: time.Second},
		func(netsvs.Data) {}, func(error) {}, func() {}, 0, func(err error) { failed <- err }, 1)

	select {
	case <-failed:
	case <-time.After(3 * time.Second):
		t.Fatal("onValidationFail never fired")
	}
	if attempts < 2 {
		t.Errorf("attempts = %d, want at least 2 (initial + 1 retry)", attempts)
	}
}

func TestExpressTimeoutWithNoRetriesReportsTimeout(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus() // nothing registered: every Express times out
	f := fetcher.New(bus, nil, log.NewTestLogger(t))
	defer f.Close()
	timedOut := make(chan struct{}, 1)
	f.Express(context.Background(), netsvs.Interest{Name: svsname.New("nowhere"), Lifetime: 20 * time.Millisecond},
		func(netsvs.Data) {}, func(error) {}, func() { timedOut <- struct{}{} }, 0, nil, 0)

	select {
	case <-timedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("onTimeout never fired")
	}
}

func TestCloseDrainsInFlightRequests(t *testing.T) {
	t.Parallel()
	bus := netsvs.NewBus()
	f := fetcher.New(bus, nil, log.NewTestLogger(t))

	f.Express(context.Background(), netsvs.Interest{Name: svsname.New("nowhere"), Lifetime: time.Second},
		func(netsvs.Data) {}, func(error) {}, func() {}, 0, nil, 0)

	done := make(chan struct{})
	go func() {
		f.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(6 * time.Second):
		t.Fatal("Close did not return")
	}
}
