// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/btcrelay/relaynode/headerstore"
	"github.com/btcrelay/relaynode/node"
	"github.com/btcrelay/relaynode/relaylog"
	"github.com/btcrelay/relaynode/tui"
	"github.com/btcrelay/relaynode/untrusted"
)

const blockrelayLogFilename = "blockrelay.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "relaynode:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := initLogRotator(cfg.logFilePath()); err != nil {
		return err
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	relayLog, err := relaylog.Open(filepath.Join(cfg.LogDir, blockrelayLogFilename), logRLAY)
	if err != nil {
		return fmt.Errorf("open blockrelay.log: %w", err)
	}
	defer relayLog.Close()

	n := node.New(&node.Config{
		ChainParams: &chaincfg.MainNetParams,

		BlocksAddr:   cfg.blocksAddr(),
		BlocksTxAddr: cfg.blocksTxAddr(),
		RelayAddr:    cfg.relayAddr(),

		Headers:  headerstore.New(&chaincfg.MainNetParams),
		Verifier: untrusted.SanityVerifier{},
		Log:      relayLog,
		Logger:   logRLAY,

		ZMQPort: cfg.ZMQPort,
	})

	if err := n.Start(); err != nil {
		return fmt.Errorf("start listeners: %w", err)
	}
	logRLAY.Infof("listening: blocks-only %s, blocks+tx %s, relay-protocol %s",
		cfg.blocksAddr(), cfg.blocksTxAddr(), cfg.relayAddr())

	applySeeds(n, cfg)

	quit := make(chan struct{})
	panel := tui.New()
	go n.RunStatsLoop(quit, panel.Render)

	readOperatorCommands(n, panel)
	return nil
}

// readOperatorCommands blocks reading stdin until the operator types "q",
// at which point the process exits immediately: spec §5 is explicit that
// quitting is a bare process-exit with no graceful teardown, since all
// state is in-memory only.
func readOperatorCommands(n *node.Node, panel *tui.Panel) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		quit, err := n.HandleCommand(scanner.Text())
		if err != nil {
			panel.LogLine(err.Error())
		}
		if quit {
			os.Exit(0)
		}
	}
}
