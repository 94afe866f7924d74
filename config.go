// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/btcrelay/relaynode/node"
)

const (
	defaultLogFilename = "relaynode.log"
	defaultLogDirname  = "logs"
	defaultLogLevel    = "info"
)

// config holds every command-line-configurable setting (spec §6: "added"
// startup flags plus the seed lists that replay operator commands at
// startup).
type config struct {
	BlocksPort   int `long:"blocksport" description:"Listening port for blocks-only clients" default:"8334"`
	BlocksTxPort int `long:"blockstxport" description:"Listening port for blocks+tx clients" default:"8335"`
	RelayPort    int `long:"relayport" description:"Listening port for the relay-protocol side channel" default:"8336"`

	TrustedPeers []string `long:"trustedpeer" description:"Trusted validator address (host:port); may be given multiple times"`
	AddPeers     []string `long:"addpeer" description:"Untrusted outbound P2P peer address (host:port); may be given multiple times"`
	RelayPeers   []string `long:"relaypeer" description:"Sibling relay-protocol peer host; may be given multiple times"`

	ZMQPort int `long:"zmqport" description:"Port trusted validators publish zmqpubhashblock/zmqpubhashtx on, if any (0 disables)" default:"0"`

	DebugLevel string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`
	LogDir     string `long:"logdir" description:"Directory to store the rotating debug log in"`
}

// loadConfig parses os.Args into a config, with LogDir defaulting to
// "logs". Both the rotating debug log (logFilePath) and the append-only
// blockrelay.log (opened by run in main.go) live under LogDir; neither file
// name is a flag.
func loadConfig() (*config, error) {
	cfg := config{
		LogDir: defaultLogDirname,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	return &cfg, nil
}

func (c *config) blocksAddr() string   { return fmt.Sprintf(":%d", c.BlocksPort) }
func (c *config) blocksTxAddr() string { return fmt.Sprintf(":%d", c.BlocksTxPort) }
func (c *config) relayAddr() string    { return fmt.Sprintf(":%d", c.RelayPort) }

func (c *config) logFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// applySeeds replays --trustedpeer/--addpeer/--relaypeer exactly as if the
// operator had typed the equivalent "t"/"o"/"r" command on the first TUI
// frame (spec §6 addition).
func applySeeds(n *node.Node, cfg *config) {
	for _, addr := range cfg.TrustedPeers {
		if _, err := n.HandleCommand("t " + addr); err != nil {
			logRLAY.Warnf("seed trusted peer %s: %v", addr, err)
		}
	}
	for _, addr := range cfg.AddPeers {
		if _, err := n.HandleCommand("o " + addr); err != nil {
			logRLAY.Warnf("seed outbound peer %s: %v", addr, err)
		}
	}
	for _, host := range cfg.RelayPeers {
		if _, err := n.HandleCommand("r " + host); err != nil {
			logRLAY.Warnf("seed relay peer %s: %v", host, err)
		}
	}
}
