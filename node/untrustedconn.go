// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/btcpeer"
	"github.com/btcrelay/relaynode/peertrack"
	"github.com/btcrelay/relaynode/untrusted"
)

// trackedCell holds the *peertrack.Tracked wrapper for one connection.
// btcd's peer.Config is immutable once its peer is constructed, but the
// wrapper can only be built from the already-constructed *btcpeer.Adapter,
// so the hooks built from a cell close over it and resolve it lazily: any
// message arriving before the cell is set (effectively never, since the
// version handshake always precedes inv/block/tx traffic) is simply
// dropped.
type trackedCell struct {
	t atomic.Pointer[peertrack.Tracked]
}

func (c *trackedCell) get() *peertrack.Tracked  { return c.t.Load() }
func (c *trackedCell) set(t *peertrack.Tracked) { c.t.Store(t) }

// untrustedHooks builds the message hooks for one untrusted P2P
// connection: every message is fed through Observe (C1's pre-receive
// hook) before being dispatched to handler, so the inventory record
// reflects what the peer announced before any relay decision is made.
func untrustedHooks(cell *trackedCell, handler *untrusted.Handler) btcpeer.Hooks {
	return btcpeer.Hooks{
		OnInv: func(_ *peer.Peer, msg *wire.MsgInv) {
			t := cell.get()
			if t == nil {
				return
			}
			t.Observe(msg)
			handler.HandleInv(t, msg)
		},
		OnBlock: func(_ *peer.Peer, msg *wire.MsgBlock, _ []byte) {
			t := cell.get()
			if t == nil {
				return
			}
			t.Observe(msg)
			handler.HandleBlock(t, msg)
		},
		OnTx: func(_ *peer.Peer, msg *wire.MsgTx) {
			t := cell.get()
			if t == nil {
				return
			}
			t.Observe(msg)
			handler.HandleTx(t, msg)
		},
	}
}

// newUntrustedConn pairs a fresh peer.Config with the bind callback
// btcpeer.Listen invokes once the resulting Adapter exists: bind wraps the
// adapter in a *peertrack.Tracked, resolves the cell the hooks are already
// closing over, and hands the wrapper to onReady so the caller can add it
// to whichever client groups this listening port requires.
func newUntrustedConn(params *chaincfg.Params, handler *untrusted.Handler, onReady func(*peertrack.Tracked)) (*peer.Config, func(*btcpeer.Adapter)) {
	cell := &trackedCell{}
	cfg := btcpeer.ListenerConfig(params, untrustedHooks(cell, handler))
	bind := func(a *btcpeer.Adapter) {
		t := peertrack.New(a)
		cell.set(t)
		onReady(t)
	}
	return cfg, bind
}
