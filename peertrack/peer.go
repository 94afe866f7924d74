// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peertrack implements C1: a bounded per-peer record of which
// inventory items a connection is already known to have, so the relay
// never re-announces what a peer already offered us.
package peertrack

import (
	"errors"

	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/inv"
)

// invCapacity is the bound on distinct inventory items remembered per peer
// (spec P1).
const invCapacity = 500

// ErrNotConnected is returned by Peer.Send when the underlying connection
// has not completed its handshake; callers are expected to swallow it.
var ErrNotConnected = errors.New("peer: not yet connected")

// Peer is the minimal full-duplex message channel this relay requires of
// any connection, untrusted or trusted. It is satisfied by a thin adapter
// over *btcd/peer.Peer.
type Peer interface {
	// Addr returns the remote address, e.g. "203.0.113.7:8333".
	Addr() string
	// SubVersion returns the peer's advertised subversion string.
	SubVersion() string
	// Send transmits msg to the peer. It returns ErrNotConnected if the
	// connection has not yet completed its version handshake; any other
	// error indicates the connection is gone.
	Send(msg wire.Message) error
	// OnDisconnect registers f to run exactly once, when the peer
	// disconnects. Safe to call more than once; all registered funcs run.
	OnDisconnect(f func())
}

// Tracked wraps a Peer with its bounded inventory set and implements the
// pre-receive hook that auto-populates it from inbound inv/tx/block
// messages.
type Tracked struct {
	Peer
	invs *inv.Set
}

// New wraps p, installing no hooks of its own; callers are expected to feed
// inbound messages through Observe and to call Peer.OnDisconnect themselves
// for group membership bookkeeping (see peergroup.Group.Add).
func New(p Peer) *Tracked {
	return &Tracked{Peer: p, invs: inv.NewSet(invCapacity)}
}

// Observe feeds an inbound message through the tracker: inv messages enter
// all their items, a bare block or transaction enters the single item
// derived from its hash. Any other message kind is ignored. This must run
// synchronously on the peer's receive path, before the message is
// dispatched further, so the inventory record reflects what the peer has
// announced before any relay decision is made.
func (t *Tracked) Observe(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgInv:
		for _, iv := range m.InvList {
			if it, ok := inv.FromWire(iv); ok {
				t.invs.Add(it)
			}
		}
	case *wire.MsgBlock:
		t.invs.Add(inv.BlockItem(m.BlockHash()))
	case *wire.MsgTx:
		t.invs.Add(inv.TxItem(m.TxHash()))
	}
}

// Has reports whether it is already known to the peer.
func (t *Tracked) Has(it inv.Item) bool {
	return t.invs.Contains(it)
}

// MaybeRelay records m's inventory item against this peer and, if it was
// novel, sends m. A "not yet connected" send failure is swallowed: the
// peer will either catch up on its own next announcement or be forgotten
// on disconnect.
func (t *Tracked) MaybeRelay(m Message) {
	novel := t.invs.Add(m.InventoryItem())
	if !novel {
		return
	}
	if err := t.Send(m.WireMessage()); err != nil {
		// Swallowed by design; see the MaybeRelay doc above.
		_ = err
	}
}

// Message is anything that can be relayed through a Tracked peer: it must
// know its own inventory item and be able to produce the wire message to
// send.
type Message interface {
	InventoryItem() inv.Item
	WireMessage() wire.Message
}
