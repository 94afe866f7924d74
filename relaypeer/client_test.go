// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relaypeer

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcrelay/relaynode/objectpool"
	"github.com/btcrelay/relaynode/peergroup"
	"github.com/btcrelay/relaynode/relayobj"
)

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

type fakeHeaders struct {
	known   map[chainhash.Hash]bool
	nextErr error
}

func (h *fakeHeaders) HasHeader(header *wire.BlockHeader) bool { return h.known[header.BlockHash()] }
func (h *fakeHeaders) AddHeader(header *wire.BlockHeader) error {
	if h.nextErr != nil {
		return h.nextErr
	}
	h.known[header.BlockHash()] = true
	return nil
}
func (h *fakeHeaders) TipHeight() int32 { return 0 }

type recordingTrustedPeers struct {
	resyncs int
}

func (r *recordingTrustedPeers) ForceDisconnectAll() { r.resyncs++ }

func newTestClient() (*Client, *fakeHeaders, *ClientGroup, *recordingTrustedPeers) {
	headers := &fakeHeaders{known: make(map[chainhash.Hash]bool)}
	relayClients := NewClientGroup()
	trustedPeers := &recordingTrustedPeers{}

	cfg := &ClientConfig{
		BlockPool:     objectpool.New[relayobj.Block](100, peergroup.New[relayobj.Block](), nopLogger{}),
		BlocksClients: peergroup.New[relayobj.Block](),
		RelayClients:  relayClients,
		Headers:       headers,
		TrustedPeers:  trustedPeers,
		Log:           &recordingLog{},
		Logger:        nopLogger{},
		Async:         func(f func()) { f() },
	}
	return &Client{addr: "203.0.113.5:8336", cfg: cfg}, headers, relayClients, trustedPeers
}

type recordingLog struct{}

func (*recordingLog) LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool {
	return true
}

// spec §4.6: a block received over the side channel is treated as
// acceptance — pushed to the block pool's relayed set and echoed to every
// sibling relay client.
func TestReceiveBlockMarksRelayed(t *testing.T) {
	c, _, _, _ := newTestClient()
	defer c.cfg.BlockPool.Stop()

	block := wire.NewMsgBlock(&wire.BlockHeader{Nonce: 3})
	c.receiveBlock(block)

	require.False(t, c.cfg.BlockPool.ShouldRequestInv(block.BlockHash()))
}

// spec §4.6/scenario 6: a header rejection from the relay peer triggers a
// full resync of the trusted-peer set.
func TestReceiveBlockRejectedHeaderTriggersResync(t *testing.T) {
	c, headers, _, trustedPeers := newTestClient()
	defer c.cfg.BlockPool.Stop()
	headers.nextErr = errors.New("unknown parent")

	c.receiveBlock(wire.NewMsgBlock(&wire.BlockHeader{Nonce: 4}))

	require.Equal(t, 1, trustedPeers.resyncs)
}

func TestMarkForRemovalSetsFlag(t *testing.T) {
	c, _, _, _ := newTestClient()
	defer c.cfg.BlockPool.Stop()

	c.MarkForRemoval()
	require.True(t, c.markedForRemoval)
}
