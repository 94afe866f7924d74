// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relaypeer implements C6 (the outbound link to a sibling relay
// node over the compact side-channel) and the inbound side of that same
// channel: the set of sibling relay nodes we serve on our own
// relay-protocol port (referred to elsewhere in this relay as
// "relayClients").
//
// The real relay-protocol wire format is explicitly opaque per spec — only
// its receive callbacks matter. This file supplies a minimal envelope (a
// one-byte kind tag plus a btcd wire-encoded payload) purely so this
// repository's C6 callbacks have something driving them; it is not a
// reimplementation of any real side-channel format.
package relaypeer

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// Kind tags the payload carried by an Envelope.
type Kind byte

const (
	KindBlockHeader Kind = iota
	KindBlock
	KindTx
	KindStats
)

// Envelope is the minimal frame exchanged over the side channel.
type Envelope struct {
	Kind    Kind
	Payload []byte
}

// EncodeBlock wraps a block message for transmission.
func EncodeBlock(b *wire.MsgBlock) (Envelope, error) {
	var buf bytes.Buffer
	if err := b.BtcEncode(&buf, wire.ProtocolVersion, wire.WitnessEncoding); err != nil {
		return Envelope{}, fmt.Errorf("relaypeer: encode block: %w", err)
	}
	return Envelope{Kind: KindBlock, Payload: buf.Bytes()}, nil
}

// DecodeBlock unwraps a block payload previously produced by EncodeBlock.
func DecodeBlock(payload []byte) (*wire.MsgBlock, error) {
	var b wire.MsgBlock
	if err := b.BtcDecode(bytes.NewReader(payload), wire.ProtocolVersion, wire.WitnessEncoding); err != nil {
		return nil, fmt.Errorf("relaypeer: decode block: %w", err)
	}
	return &b, nil
}

// EncodeHeader wraps a bare block header.
func EncodeHeader(h *wire.BlockHeader) (Envelope, error) {
	var buf bytes.Buffer
	if err := h.Serialize(&buf); err != nil {
		return Envelope{}, fmt.Errorf("relaypeer: encode header: %w", err)
	}
	return Envelope{Kind: KindBlockHeader, Payload: buf.Bytes()}, nil
}

// DecodeHeader unwraps a header payload.
func DecodeHeader(payload []byte) (*wire.BlockHeader, error) {
	var h wire.BlockHeader
	if err := h.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("relaypeer: decode header: %w", err)
	}
	return &h, nil
}

// EncodeTx wraps a transaction message.
func EncodeTx(tx *wire.MsgTx) (Envelope, error) {
	var buf bytes.Buffer
	if err := tx.BtcEncode(&buf, wire.ProtocolVersion, wire.WitnessEncoding); err != nil {
		return Envelope{}, fmt.Errorf("relaypeer: encode tx: %w", err)
	}
	return Envelope{Kind: KindTx, Payload: buf.Bytes()}, nil
}

// DecodeTx unwraps a transaction payload.
func DecodeTx(payload []byte) (*wire.MsgTx, error) {
	var tx wire.MsgTx
	if err := tx.BtcDecode(bytes.NewReader(payload), wire.ProtocolVersion, wire.WitnessEncoding); err != nil {
		return nil, fmt.Errorf("relaypeer: decode tx: %w", err)
	}
	return &tx, nil
}

// EncodeStats wraps an accumulated stats line.
func EncodeStats(s string) Envelope {
	return Envelope{Kind: KindStats, Payload: []byte(s)}
}

// Conn is the transport this package needs: a full-duplex envelope
// channel. Satisfied by wsConn, which carries envelopes over
// btcsuite/websocket.
type Conn interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(Envelope) error
	Close() error
	RemoteAddr() string
}
