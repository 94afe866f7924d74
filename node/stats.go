// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"time"

	"github.com/lightningnetwork/lnd/ticker"

	"github.com/btcrelay/relaynode/relaypeer"
	"github.com/btcrelay/relaynode/trustedpeer"
)

// statsInterval is the TUI redraw rate (spec §4.7: "stats loop at 2 Hz").
const statsInterval = 500 * time.Millisecond

// Snapshot is a point-in-time render of every piece of state the status
// panel displays.
type Snapshot struct {
	Trusted     []trustedpeer.Status
	RelayPeers  []relaypeer.ClientStatus
	Outbound    []OutboundStatus
	BlocksCount int
	TxnCount    int
	RelayCount  int
	TipHeight   int32
}

func (n *Node) snapshot() Snapshot {
	return Snapshot{
		Trusted:     n.trusted.Statuses(),
		RelayPeers:  n.relay.Statuses(),
		Outbound:    n.outbound.statuses(),
		BlocksCount: n.blocksClients.Len(),
		TxnCount:    n.txnClients.Len(),
		RelayCount:  n.relayClients.Len(),
		TipHeight:   n.cfg.Headers.TipHeight(),
	}
}

// RunStatsLoop renders render(snapshot()) at 2 Hz until quit is closed.
// Intended to run on its own goroutine; the render function itself owns
// drawing whatever log-line queue sits above the status panel (see
// package tui).
func (n *Node) RunStatsLoop(quit <-chan struct{}, render func(Snapshot)) {
	t := ticker.New(statsInterval)
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-t.Ticks():
			render(n.snapshot())
		case <-quit:
			return
		}
	}
}

// Stop halts every background goroutine the Node owns: the reconnect
// scheduler, both object pools' eviction loops, and every listening
// socket. It exists for tests that construct a Node without running the
// whole process; it is deliberately NOT called on operator "q", which per
// spec §5 calls process-exit directly with no graceful teardown (state is
// in-memory only, so there's nothing worth flushing).
func (n *Node) Stop() {
	for _, ln := range n.listeners {
		ln.Close()
	}
	if n.relayHTTP != nil {
		n.relayHTTP.Close()
	}
	n.scheduler.Stop()
	n.blockPool.Stop()
	n.txPool.Stop()
}
