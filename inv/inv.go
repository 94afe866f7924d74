// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package inv defines the inventory item type shared by every relay
// component and the bounded, insertion-ordered set used to track which
// items a peer or pool already knows about.
package inv

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Kind distinguishes the two object kinds the relay ever forwards.
type Kind uint8

const (
	// KindBlock identifies a full block inventory item.
	KindBlock Kind = iota
	// KindTx identifies a transaction inventory item.
	KindTx
)

// Item is a (kind, hash) inventory tuple. Equality is structural on both
// fields, so two Items naming the same hash but different kinds are
// distinct entries.
type Item struct {
	Kind Kind
	Hash chainhash.Hash
}

// FromWire converts a wire.InvVect into an Item, dropping any inv type this
// relay does not distinguish between (witness variants collapse onto their
// base kind).
func FromWire(iv *wire.InvVect) (Item, bool) {
	switch iv.Type {
	case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
		return Item{Kind: KindBlock, Hash: iv.Hash}, true
	case wire.InvTypeTx, wire.InvTypeWitnessTx:
		return Item{Kind: KindTx, Hash: iv.Hash}, true
	default:
		return Item{}, false
	}
}

// BlockItem builds an Item for a block hash.
func BlockItem(h chainhash.Hash) Item { return Item{Kind: KindBlock, Hash: h} }

// TxItem builds an Item for a transaction hash.
func TxItem(h chainhash.Hash) Item { return Item{Kind: KindTx, Hash: h} }

// ToWire converts the Item back to a wire.InvVect suitable for a getdata
// or inv message.
func (it Item) ToWire() *wire.InvVect {
	t := wire.InvTypeTx
	if it.Kind == KindBlock {
		t = wire.InvTypeBlock
	}
	return wire.NewInvVect(t, &it.Hash)
}
