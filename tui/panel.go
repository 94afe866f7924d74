// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tui renders the operator-facing status panel: trusted-validator
// dual-connection state, relay-peer and outbound-peer state, client
// counts, and chain tip height, redrawn in place below a scrolling log
// line queue. No library in the retrieval pack offers an ANSI-escape
// terminal panel, so this is plain standard library.
package tui

import (
	"fmt"
	"os"
	"sync"

	"github.com/btcrelay/relaynode/node"
)

const maxLogLines = 20

const (
	ansiClearScreen = "\x1b[2J"
	ansiHome        = "\x1b[H"
	ansiClearLine   = "\x1b[2K"
)

// Panel owns the log-line queue (the most recent maxLogLines lines, redrawn
// each frame above the status block) and guards it against concurrent
// LogLine and Render calls.
type Panel struct {
	mu   sync.Mutex
	logs []string
}

// New returns an empty Panel.
func New() *Panel {
	return &Panel{}
}

// LogLine appends a line to the scrolling queue, trimming to the most
// recent maxLogLines entries.
func (p *Panel) LogLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logs = append(p.logs, line)
	if len(p.logs) > maxLogLines {
		p.logs = p.logs[len(p.logs)-maxLogLines:]
	}
}

// Render draws one frame: the scrolling log queue followed by the status
// block built from snap. Intended as the render callback passed to
// node.Node.RunStatsLoop.
func (p *Panel) Render(snap node.Snapshot) {
	p.mu.Lock()
	logs := append([]string(nil), p.logs...)
	p.mu.Unlock()

	var b []byte
	b = append(b, ansiHome...)
	b = append(b, ansiClearScreen...)

	for _, line := range logs {
		b = append(b, ansiClearLine...)
		b = append(b, line...)
		b = append(b, '\n')
	}
	b = append(b, '\n')

	b = append(b, fmt.Sprintf("tip height: %d\n", snap.TipHeight)...)
	b = append(b, fmt.Sprintf("blocks clients: %d   tx clients: %d   relay clients: %d\n",
		snap.BlocksCount, snap.TxnCount, snap.RelayCount)...)

	b = append(b, "\ntrusted validators:\n"...)
	for _, t := range snap.Trusted {
		b = append(b, fmt.Sprintf("  %-24s state=%-12v in=%-5v out=%-5v\n",
			t.Addr, t.State, t.Inbound, t.Outbound)...)
	}

	b = append(b, "\nrelay peers:\n"...)
	for _, r := range snap.RelayPeers {
		b = append(b, fmt.Sprintf("  %-24s connected=%v\n", r.Addr, r.Connected)...)
	}

	b = append(b, "\noutbound p2p peers:\n"...)
	for _, o := range snap.Outbound {
		b = append(b, fmt.Sprintf("  %-24s marked-for-removal=%v\n", o.Addr, o.MarkedForRemoval)...)
	}

	os.Stdout.Write(b)
}
