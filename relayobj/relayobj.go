// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relayobj wraps the two object kinds the relay ever forwards —
// blocks and transactions — so that a single generic object pool, peer
// group, and inventory tracker can operate over either without boxing them
// in interface{}.
package relayobj

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/inv"
)

// Block wraps a wire block message.
type Block struct {
	*wire.MsgBlock
}

// Hash satisfies objectpool.Relayable.
func (b Block) Hash() chainhash.Hash { return b.BlockHash() }

// InventoryItem satisfies peertrack.Message.
func (b Block) InventoryItem() inv.Item { return inv.BlockItem(b.BlockHash()) }

// WireMessage satisfies peertrack.Message.
func (b Block) WireMessage() wire.Message { return b.MsgBlock }

// Tx wraps a wire transaction message.
type Tx struct {
	*wire.MsgTx
}

// Hash satisfies objectpool.Relayable.
func (x Tx) Hash() chainhash.Hash { return x.TxHash() }

// InventoryItem satisfies peertrack.Message.
func (x Tx) InventoryItem() inv.Item { return inv.TxItem(x.TxHash()) }

// WireMessage satisfies peertrack.Message.
func (x Tx) WireMessage() wire.Message { return x.MsgTx }
