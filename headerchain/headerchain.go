// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package headerchain declares the interface this relay uses to talk to
// the block-header chain store. The store itself — deduplicating blocks
// by hash and tracking tip height — is an external collaborator per spec
// §1; this relay never implements it, only calls it.
package headerchain

import "github.com/btcsuite/btcd/wire"

// Store is the external header-chain store's interface as seen by this
// relay: "is this header new, and if so, is it valid enough to accept".
type Store interface {
	// HasHeader reports whether the header for this block is already
	// known to the store.
	HasHeader(header *wire.BlockHeader) bool
	// AddHeader attempts to add header to the store. A non-nil error
	// means the header was rejected (unknown parent, invalid proof of
	// work, etc); untrusted-source rejections are silent, relay-peer and
	// trusted-inbound rejections are warned per spec §7.
	AddHeader(header *wire.BlockHeader) error
	// TipHeight reports the store's current best height, for the status
	// panel.
	TipHeight() int32
}
