// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmd implements the cmd/svsnode command tree: a thin
// demonstrator that wires the sync protocol's packages together over an
// in-memory substrate, in the shape of bee's cmd/bee/cmd (root command,
// persistent config flag, viper-backed environment binding).
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameNodeID     = "node-id"
	optionNameSyncPrefix = "sync-prefix"
	optionNameTopic      = "topic"
	optionNameVerbosity  = "verbosity"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "svsnode",
			Short:         "State Vector Sync demonstrator node",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()
	c.initStartCmd()
	c.initVersionCmd()
	return c, nil
}

// Execute parses command line arguments and runs the matched subcommand.
func Execute() error {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.root.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.svsnode.yaml)")
}

func (c *command) initConfig() error {
	config := viper.New()
	configName := ".svsnode"
	if c.cfgFile != "" {
		config.SetConfigFile(c.cfgFile)
	} else {
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	config.SetEnvPrefix("svsnode")
	config.AutomaticEnv()
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if c.homeDir != "" && c.cfgFile == "" {
		c.cfgFile = filepath.Join(c.homeDir, configName+".yaml")
	}

	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	c.config = config
	return nil
}

func (c *command) setHomeDir() error {
	if c.homeDir != "" {
		return nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

func (c *command) setAllFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameNodeID, "node-a", "local node identifier")
	cmd.Flags().String(optionNameSyncPrefix, "/svs/demo", "sync group prefix shared by every participant")
	cmd.Flags().String(optionNameTopic, "/chat/room1", "application name prefix to publish and subscribe under")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level: none, error, warning, info, debug, all")
}
