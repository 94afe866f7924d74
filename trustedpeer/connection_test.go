// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package trustedpeer

import (
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
	known map[chainhash.Hash]bool
}

func (h *fakeHeaders) HasHeader(header *wire.BlockHeader) bool { return h.known[header.BlockHash()] }
func (h *fakeHeaders) AddHeader(header *wire.BlockHeader) error {
	h.known[header.BlockHash()] = true
	return nil
}
func (h *fakeHeaders) TipHeight() int32 { return 0 }

type recordingRelayClients struct {
	blocks []relayobj.Block
	txns   []relayobj.Tx
}

func (r *recordingRelayClients) SendBlock(b relayobj.Block) { r.blocks = append(r.blocks, b) }
func (r *recordingRelayClients) SendTx(x relayobj.Tx)       { r.txns = append(r.txns, x) }

type recordingLog struct {
	firstSeen []chainhash.Hash
}

func (l *recordingLog) LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool {
	l.firstSeen = append(l.firstSeen, hash)
	return true
}

func newTestConnection() (*Connection, *fakeHeaders, *recordingRelayClients) {
	headers := &fakeHeaders{known: make(map[chainhash.Hash]bool)}
	relayClients := &recordingRelayClients{}

	cfg := &Config{
		BlockPool:     objectpool.New[relayobj.Block](100, peergroup.New[relayobj.Block](), nopLogger{}),
		TxPool:        objectpool.New[relayobj.Tx](100, peergroup.New[relayobj.Tx](), nopLogger{}),
		BlocksClients: peergroup.New[relayobj.Block](),
		TxnClients:    peergroup.New[relayobj.Tx](),
		RelayClients:  relayClients,
		Headers:       headers,
		Log:           &recordingLog{},
		Logger:        nopLogger{},
		Async:         func(f func()) { f() },
	}
	return &Connection{addr: "198.51.100.1:8333", cfg: cfg}, headers, relayClients
}

// spec §4.5: a bare block accepted on the inbound session is forwarded to
// relay clients and, its header being unknown, added to the header store.
func TestOnAcceptanceBlockForwardsAndAddsHeader(t *testing.T) {
	c, headers, relayClients := newTestConnection()
	defer c.cfg.BlockPool.Stop()
	defer c.cfg.TxPool.Stop()

	block := wire.NewMsgBlock(&wire.BlockHeader{Nonce: 1})
	c.onAcceptanceBlock(block)

	require.Len(t, relayClients.blocks, 1)
	require.True(t, headers.HasHeader(&block.Header))
}

// spec §4.5: a bare transaction accepted on the inbound session is
// forwarded to relay clients and pushed into the tx pool's relayed set.
func TestOnAcceptanceTxForwards(t *testing.T) {
	c, _, relayClients := newTestConnection()
	defer c.cfg.BlockPool.Stop()
	defer c.cfg.TxPool.Stop()

	tx := wire.NewMsgTx(wire.TxVersion)
	c.onAcceptanceTx(tx)

	require.Len(t, relayClients.txns, 1)
	require.False(t, c.cfg.TxPool.ShouldRequestInv(tx.TxHash()))
}

// spec §4.5: an inv announcing an item we already hold (via the object
// pool) is treated as acceptance and forwarded without issuing a getdata;
// an item we don't hold is requested instead.
func TestOnAcceptanceInvSplitsKnownAndUnknown(t *testing.T) {
	c, _, relayClients := newTestConnection()
	defer c.cfg.BlockPool.Stop()
	defer c.cfg.TxPool.Stop()

	known := wire.NewMsgBlock(&wire.BlockHeader{Nonce: 7})
	c.cfg.BlockPool.ProvideObject(relayobj.Block{MsgBlock: known})
	knownHash := known.BlockHash()

	var unknownHash chainhash.Hash
	unknownHash[0] = 0xEE

	invMsg := wire.NewMsgInv()
	invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &knownHash))
	invMsg.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &unknownHash))

	c.onAcceptanceInv(invMsg)

	require.Len(t, relayClients.blocks, 1)
	require.Equal(t, knownHash, relayClients.blocks[0].BlockHash())
}

func TestStateReflectsSessionConnectivity(t *testing.T) {
	c, _, _ := newTestConnection()
	defer c.cfg.BlockPool.Stop()
	defer c.cfg.TxPool.Stop()

	require.Equal(t, StateConnecting, c.State())

	c.inboundConnected = true
	require.Equal(t, StatePartiallyUp, c.State())

	c.outboundConnected = true
	require.Equal(t, StateFullyUp, c.State())

	c.closedPermanently = true
	require.Equal(t, StateDisconnected, c.State())
}
