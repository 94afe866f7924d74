// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peertrack

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcrelay/relaynode/inv"
)

type fakePeer struct {
	addr string
	sent []wire.Message
}

func (p *fakePeer) Addr() string       { return p.addr }
func (p *fakePeer) SubVersion() string { return "/fake:1.0/" }
func (p *fakePeer) Send(msg wire.Message) error {
	p.sent = append(p.sent, msg)
	return nil
}
func (p *fakePeer) OnDisconnect(func()) {}

type fakeMsg struct {
	hash chainhash.Hash
}

func (m fakeMsg) InventoryItem() inv.Item   { return inv.BlockItem(m.hash) }
func (m fakeMsg) WireMessage() wire.Message { return wire.NewMsgPing(0) }

func hashN(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestObserveInvPopulatesSet(t *testing.T) {
	tr := New(&fakePeer{addr: "1.1.1.1:8333"})

	h := hashN(1)
	invMsg := wire.NewMsgInv()
	invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &h))
	tr.Observe(invMsg)

	require.True(t, tr.Has(inv.BlockItem(h)))
}

func TestObserveBlockAndTxPopulateSet(t *testing.T) {
	tr := New(&fakePeer{addr: "1.1.1.1:8333"})

	block := wire.NewMsgBlock(&wire.BlockHeader{Nonce: 5})
	tr.Observe(block)
	require.True(t, tr.Has(inv.BlockItem(block.BlockHash())))

	tx := wire.NewMsgTx(wire.TxVersion)
	tr.Observe(tx)
	require.True(t, tr.Has(inv.TxItem(tx.TxHash())))
}

// P7: an item the peer itself announced via inv is never relayed back to
// it.
func TestMaybeRelaySkipsKnownItems(t *testing.T) {
	p := &fakePeer{addr: "1.1.1.1:8333"}
	tr := New(p)

	h := hashN(2)
	invMsg := wire.NewMsgInv()
	invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &h))
	tr.Observe(invMsg)

	tr.MaybeRelay(fakeMsg{hash: h})
	require.Empty(t, p.sent, "an item already observed via inv must not be relayed back")
}

func TestMaybeRelaySendsNovelItem(t *testing.T) {
	p := &fakePeer{addr: "1.1.1.1:8333"}
	tr := New(p)

	tr.MaybeRelay(fakeMsg{hash: hashN(3)})
	require.Len(t, p.sent, 1)

	tr.MaybeRelay(fakeMsg{hash: hashN(3)})
	require.Len(t, p.sent, 1, "the same item must not be relayed twice")
}
