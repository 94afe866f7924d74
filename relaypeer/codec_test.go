// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relaypeer

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlockRoundTrips(t *testing.T) {
	block := wire.NewMsgBlock(&wire.BlockHeader{Nonce: 42})

	env, err := EncodeBlock(block)
	require.NoError(t, err)
	require.Equal(t, KindBlock, env.Kind)

	got, err := DecodeBlock(env.Payload)
	require.NoError(t, err)
	require.Equal(t, block.BlockHash(), got.BlockHash())
}

func TestEncodeDecodeTxRoundTrips(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)

	env, err := EncodeTx(tx)
	require.NoError(t, err)
	require.Equal(t, KindTx, env.Kind)

	got, err := DecodeTx(env.Payload)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), got.TxHash())
}

func TestEncodeDecodeHeaderRoundTrips(t *testing.T) {
	header := &wire.BlockHeader{Nonce: 7}

	env, err := EncodeHeader(header)
	require.NoError(t, err)

	got, err := DecodeHeader(env.Payload)
	require.NoError(t, err)
	require.Equal(t, header.BlockHash(), got.BlockHash())
}
