// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package headerstore provides a minimal concrete headerchain.Store: an
// in-memory header index that only tracks parent linkage and proof of
// work, sufficient to drive this relay's dedup/tip-height needs. The real
// system this relay sits in front of is expected to run a full validating
// node; this store exists only because headerchain.Store is declared an
// external collaborator and something concrete has to satisfy it.
package headerstore

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

type node struct {
	header wire.BlockHeader
	height int32
}

// Store is a minimal in-memory block-header index, seeded with params'
// genesis block.
type Store struct {
	params *chaincfg.Params

	mu    sync.RWMutex
	nodes map[chainhash.Hash]*node
	tip   int32
}

// New returns a Store seeded with params' genesis header at height 0.
func New(params *chaincfg.Params) *Store {
	s := &Store{params: params, nodes: make(map[chainhash.Hash]*node)}
	genesis := params.GenesisBlock.Header
	s.nodes[params.GenesisHash] = &node{header: genesis, height: 0}
	return s
}

// HasHeader satisfies headerchain.Store.
func (s *Store) HasHeader(header *wire.BlockHeader) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[header.BlockHash()]
	return ok
}

// AddHeader satisfies headerchain.Store: a header is accepted only if its
// parent is known and its proof of work meets its own declared target.
// This deliberately performs no difficulty-retarget or median-time
// validation; it exists to give this relay something to dedup and track
// tip height against, not to replace a validating node.
func (s *Store) AddHeader(header *wire.BlockHeader) error {
	hash := header.BlockHash()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[hash]; ok {
		return nil
	}
	parent, ok := s.nodes[header.PrevBlock]
	if !ok {
		return fmt.Errorf("headerstore: unknown parent %s for header %s", header.PrevBlock, hash)
	}
	if err := blockchain.CheckProofOfWork(header, s.params.PowLimit); err != nil {
		return fmt.Errorf("headerstore: %w", err)
	}

	height := parent.height + 1
	s.nodes[hash] = &node{header: *header, height: height}
	if height > s.tip {
		s.tip = height
	}
	return nil
}

// TipHeight satisfies headerchain.Store.
func (s *Store) TipHeight() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip
}
