// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcrelay/relaynode/inv"
	"github.com/btcrelay/relaynode/peertrack"
)

type fakePeer struct {
	addr string
	sent []wire.Message
	disc []func()
}

func (p *fakePeer) Addr() string       { return p.addr }
func (p *fakePeer) SubVersion() string { return "/fake:1.0/" }
func (p *fakePeer) Send(msg wire.Message) error {
	p.sent = append(p.sent, msg)
	return nil
}
func (p *fakePeer) OnDisconnect(f func()) { p.disc = append(p.disc, f) }
func (p *fakePeer) disconnect() {
	for _, f := range p.disc {
		f()
	}
}

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

func TestAddThenRelayObjectSendsOnce(t *testing.T) {
	g := New[fakeMsg]()
	p := &fakePeer{addr: "1.2.3.4:8333"}
	g.Add(p)

	msg := fakeMsg{hash: hashN(1)}
	g.RelayObject(msg)
	g.RelayObject(msg)

	require.Len(t, p.sent, 1, "a peer must never receive the same inventory item twice")
}

func TestDisconnectRemovesMember(t *testing.T) {
	g := New[fakeMsg]()
	p := &fakePeer{addr: "1.2.3.4:8333"}
	g.Add(p)
	require.Equal(t, 1, g.Len())

	p.disconnect()
	require.Equal(t, 0, g.Len())

	g.RelayObject(fakeMsg{hash: hashN(2)})
	require.Empty(t, p.sent)
}

func TestAddExistingSharesTrackedAcrossGroups(t *testing.T) {
	blocks := New[fakeMsg]()
	txns := New[fakeMsg]()

	p := &fakePeer{addr: "5.6.7.8:8333"}
	tracked := peertrack.New(p)
	blocks.AddExisting(tracked)
	txns.AddExisting(tracked)

	msg := fakeMsg{hash: hashN(3)}
	blocks.RelayObject(msg)
	// The same msg relayed through the tx group must be a no-op: the
	// inventory record is shared on the one Tracked wrapper.
	txns.RelayObject(msg)

	require.Len(t, p.sent, 1)

	p.disconnect()
	require.Equal(t, 0, blocks.Len())
	require.Equal(t, 0, txns.Len())
}

func TestRemoveDropsImmediately(t *testing.T) {
	g := New[fakeMsg]()
	p := &fakePeer{addr: "9.9.9.9:8333"}
	t1 := g.Add(p)

	g.Remove(t1)
	require.Equal(t, 0, g.Len())
}
