// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package untrusted implements C4: the ingress logic attached to every
// unvetted P2P peer and to every inbound relay-protocol client. Nothing
// observed here is trusted until a validator (trustedpeer, relaypeer)
// vouches for it.
package untrusted

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"

	"github.com/btcrelay/relaynode/headerchain"
	"github.com/btcrelay/relaynode/inv"
	"github.com/btcrelay/relaynode/objectpool"
	"github.com/btcrelay/relaynode/peergroup"
	"github.com/btcrelay/relaynode/peertrack"
	"github.com/btcrelay/relaynode/relayobj"
)

// RelayProtocolMarker is the subversion substring that flags a connection
// as arriving over the compact relay-protocol side channel rather than
// plain Bitcoin P2P; used only to choose the "relay SPV" vs "p2p SPV"
// first-seen source tag.
const RelayProtocolMarker = "relay-protocol"

// TxVerifier reports structural validity of a transaction. It is a stand-in
// for the external wire codec's verifier (spec §1's "structural
// well-formedness" check); this relay performs no consensus validation
// itself.
type TxVerifier interface {
	VerifyStructure(tx *wire.MsgTx) error
}

// errNoInputsOrOutputsMsg marks the one verification failure HandleTx
// singles out by message. Every other verification error is ignored as
// well, so the peer is never disconnected either way; the separate branch
// is inherited from the spec as-is (see spec §9's open questions).
const errNoInputsOrOutputsMsg = "no inputs or no outputs"

// RelayClients is the set of sibling relay-protocol clients a first-seen
// block is echoed to.
type RelayClients interface {
	SendBlock(b relayobj.Block)
}

// Log is the narrow relaylog.Log surface this handler needs.
type Log interface {
	LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool
}

// logger is the ambient btclog.Logger surface.
type logger interface {
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Handler wires one untrusted connection's messages into the relay's
// pools, the header-chain store, and the client-facing groups.
type Handler struct {
	BlockPool *objectpool.Pool[relayobj.Block]
	TxPool    *objectpool.Pool[relayobj.Tx]

	BlocksClients *peergroup.Group[relayobj.Block]
	RelayClients  RelayClients

	Headers  headerchain.Store
	Verifier TxVerifier
	Log      Log
	Logger   logger

	// Async runs a unit of work off the calling (network I/O) goroutine.
	// Defaults to `go f()` in production; tests may run it synchronously.
	Async func(f func())
}

func (h *Handler) async(f func()) {
	if h.Async != nil {
		h.Async(f)
		return
	}
	go f()
}

// HandleInv implements the inv branch of spec §4.4: build a getdata list
// from items not already cached or relayed, and send it back on the same
// peer if non-empty.
func (h *Handler) HandleInv(peer *peertrack.Tracked, msg *wire.MsgInv) {
	getData := wire.NewMsgGetData()
	for _, iv := range msg.InvList {
		it, ok := inv.FromWire(iv)
		if !ok {
			continue
		}
		var want bool
		switch it.Kind {
		case inv.KindBlock:
			want = h.BlockPool.ShouldRequestInv(it.Hash)
		case inv.KindTx:
			want = h.TxPool.ShouldRequestInv(it.Hash)
		}
		if want {
			_ = getData.AddInvVect(iv)
		}
	}
	if len(getData.InvList) == 0 {
		return
	}
	if err := peer.Send(getData); err != nil {
		h.Logger.Debugf("untrusted: getdata send to %s failed: %v", peer.Addr(), err)
	}
}

// HandleBlock implements spec §4.4's block branch.
func (h *Handler) HandleBlock(peer *peertrack.Tracked, b *wire.MsgBlock) {
	blk := relayobj.Block{MsgBlock: b}
	hash := b.BlockHash()

	h.Logger.Debugf("untrusted: block %s from %s: %s", hash, peer.Addr(), spew.Sdump(b.Header))

	h.async(func() {
		// Forward to every trusted validator before we've formed any
		// opinion on validity: we must never be the bottleneck.
		h.BlockPool.ProvideObject(blk)

		header := &b.Header
		if h.Headers.HasHeader(header) {
			return
		}
		if err := h.Headers.AddHeader(header); err != nil {
			// Untrusted-source rejection is silent: don't fan out,
			// don't disconnect the peer.
			return
		}

		h.RelayClients.SendBlock(blk)
		h.BlockPool.InvGood(h.BlocksClients, hash)

		source := "p2p SPV"
		if strings.Contains(peer.SubVersion(), RelayProtocolMarker) {
			source = "relay SPV"
		}
		h.Log.LogBlockFirstSeen(hash, source, peer.Addr())
	})
}

// HandleTx implements spec §4.4's tx branch.
func (h *Handler) HandleTx(peer *peertrack.Tracked, tx *wire.MsgTx) {
	h.TxPool.ProvideObject(relayobj.Tx{MsgTx: tx})
	h.Logger.Debugf("untrusted: tx %s from %s: %s", tx.TxHash(), peer.Addr(), spew.Sdump(tx))

	if h.Verifier == nil {
		return
	}
	err := h.Verifier.VerifyStructure(tx)
	if err == nil {
		return
	}
	if strings.Contains(err.Error(), errNoInputsOrOutputsMsg) {
		// Swallowed by design; see errNoInputsOrOutputsMsg doc.
		return
	}
	// Any other verification error is likewise ignored here: this
	// handler never disconnects a peer over it (spec §4.4).
}
