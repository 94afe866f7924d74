// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package untrusted

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// SanityVerifier is the concrete TxVerifier this relay ships with: it
// rejects only what blockchain.CheckTransactionSanity rejects (duplicate
// inputs, empty inputs/outputs, oversize, negative or overflowing output
// values, a coinbase script of invalid length, a null previous outpoint on
// a non-coinbase input). It performs no UTXO, script, or
// fee-rate validation — that belongs to the validating node on the other
// side of the trusted-peer connection, not this relay.
type SanityVerifier struct{}

// VerifyStructure satisfies TxVerifier.
func (SanityVerifier) VerifyStructure(tx *wire.MsgTx) error {
	return blockchain.CheckTransactionSanity(btcutil.NewTx(tx))
}
