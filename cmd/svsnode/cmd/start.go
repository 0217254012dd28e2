// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/svsproto/svs/pkg/fetcher"
	"github.com/svsproto/svs/pkg/log"
	"github.com/svsproto/svs/pkg/mapping"
	"github.com/svsproto/svs/pkg/netsvs"
	"github.com/svsproto/svs/pkg/pubsub"
	"github.com/svsproto/svs/pkg/security"
	"github.com/svsproto/svs/pkg/store"
	"github.com/svsproto/svs/pkg/svsname"
	"github.com/svsproto/svs/pkg/svsync"
	"github.com/svsproto/svs/pkg/syncengine"
)

func (c *command) initStartCmd() {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a demonstrator node against an in-memory substrate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStart(cmd)
		},
	}
	c.setAllFlags(cmd)
	c.root.AddCommand(cmd)
}

// runStart wires one Pub/Sub Facade over a shared in-memory Bus and
// publishes a heartbeat under --topic every few seconds, printing what
// its --topic subscription receives until interrupted. The node's own
// heartbeats are not delivered to its own subscription, and no other
// node is attached to this Bus. It exists only to exercise the library end-to-end; a
// production-grade CLI is out of scope.
func (c *command) runStart(cmd *cobra.Command) error {
	verbosity, err := log.ParseVerbosityLevel(mustFlagString(cmd, optionNameVerbosity))
	if err != nil {
		return fmt.Errorf("parse verbosity: %w", err)
	}
	logger := log.NewLogger("svsnode", log.WithSink(log.Lock(cmd.OutOrStdout())), log.WithVerbosity(verbosity))

	nodeID := svsname.Parse(mustFlagString(cmd, optionNameNodeID))
	syncPrefix := svsname.Parse(mustFlagString(cmd, optionNameSyncPrefix))
	topic := svsname.Parse(mustFlagString(cmd, optionNameTopic))

	bus := netsvs.NewBus()
	sec := security.DigestOptions()
	engine, err := syncengine.New(bus, syncPrefix, nodeID, nil, sec.Interest, logger)
	if err != nil {
		return fmt.Errorf("start sync engine: %w", err)
	}
	defer engine.Close()
	st := store.New()
	f := fetcher.New(bus, func(d netsvs.Data) error { return sec.Data.Validator.Validate(d.Content, d.Signature) }, logger)
	defer f.Close()
	sv, err := svsync.New(engine, st, bus, f, svsync.PerProducer, syncPrefix, nodeID, sec.Data, logger, svsync.Options{})
	if err != nil {
		return fmt.Errorf("start svsync: %w", err)
	}
	defer sv.Close()
	ps, err := pubsub.New(engine, sv, mapping.NewStore(), bus, syncPrefix, nodeID, sec.Data, logger, pubsub.Options{})
	if err != nil {
		return fmt.Errorf("start pubsub: %w", err)
	}
	defer ps.Close()
	ps.Subscribe(topic, func(d netsvs.Data) {
		cmd.Printf("recv %s: %s\n", topic.String(), string(d.Content))
	}, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			seq++
			msg := fmt.Sprintf("hello from %s (#%d)", nodeID.String(), seq)
			if _, err := ps.Publish(ctx, topic, []byte(msg), svsname.Name{}, 0, nil); err != nil {
				logger.Warning("publish failed", "error", err)
			}
		}
	}
}

func mustFlagString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("undeclared flag %q: %v", name, err))
	}
	return v
}
