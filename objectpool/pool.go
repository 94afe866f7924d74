// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package objectpool implements the timed object cache described as C3:
// a short-lived store of objects learned from untrusted peers, keyed by
// hash, with TTL eviction, plus a larger "already relayed" hash set that
// prevents duplicate fan-out once a trusted path has blessed an object.
package objectpool

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/btcrelay/relaynode/inv"
)

// ttl is how long an ingested object is retained before eviction absent a
// trusted acceptance. (The relayed-set capacities passed to New, not this
// TTL, are the sizes tuned to roughly one hour of blocks/transactions.)
const ttl = 60 * time.Second

// evictionTick is how often the background eviction sweep wakes.
const evictionTick = 1 * time.Second

// Relayable is anything the pool can cache and later hand to a peer group.
type Relayable interface {
	Hash() chainhash.Hash
}

// Group is the minimal surface the pool needs from a peer group to fan an
// object out; satisfied by *peergroup.Group.
type Group[T Relayable] interface {
	RelayObject(obj T)
}

type entry[T Relayable] struct {
	obj    T
	expiry time.Time
}

// Pool caches objects of type T between the moment they're first seen from
// an untrusted source and the moment a trusted validator vouches for them.
//
// Invariant I1: once a hash is in relayed, the pool refuses to re-ingest it.
// Invariant I2: a hash only ever lives in one of objects/relayed at a time
// from the caller's point of view — InvGood moves it from the former to
// the latter atomically.
type Pool[T Relayable] struct {
	log log

	outboundTrusted Group[T]

	mu      sync.Mutex
	objects map[chainhash.Hash]entry[T]
	relayed *inv.Set

	quit chan struct{}
	wg   sync.WaitGroup
}

// log is the narrow logging surface the pool needs; satisfied by
// btclog.Logger.
type log interface {
	Debugf(format string, args ...interface{})
}

// New constructs a Pool whose relayed set holds at most relayedCap hashes
// and whose provideObject calls additionally push to outboundTrusted (the
// group of trusted-peer outbound sessions).
func New[T Relayable](relayedCap int, outboundTrusted Group[T], logger log) *Pool[T] {
	p := &Pool[T]{
		log:             logger,
		outboundTrusted: outboundTrusted,
		objects:         make(map[chainhash.Hash]entry[T]),
		relayed:         inv.NewSet(relayedCap),
		quit:            make(chan struct{}),
	}
	p.wg.Add(1)
	go p.evictLoop()
	return p
}

// Stop halts the background eviction goroutine.
func (p *Pool[T]) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// ShouldRequestInv reports whether h is neither already relayed nor
// presently cached, i.e. whether a getdata should be issued for it.
func (p *Pool[T]) ShouldRequestInv(h chainhash.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shouldRequestLocked(h)
}

func (p *Pool[T]) shouldRequestLocked(h chainhash.Hash) bool {
	if p.relayed.Contains(inv.BlockItem(h)) {
		return false
	}
	if _, ok := p.objects[h]; ok {
		return false
	}
	return true
}

// ProvideObject ingests obj, unless its hash has already been relayed, and
// unconditionally forwards it to the trusted-outbound group: we must push
// to validators immediately even if our own bookkeeping has already moved
// on, since provideObject is the only path that ever reaches them.
func (p *Pool[T]) ProvideObject(obj T) {
	h := obj.Hash()

	p.mu.Lock()
	if !p.relayed.Contains(inv.BlockItem(h)) {
		p.objects[h] = entry[T]{obj: obj, expiry: time.Now().Add(ttl)}
	}
	p.mu.Unlock()

	if p.outboundTrusted != nil {
		p.outboundTrusted.RelayObject(obj)
	}
}

// GetObject returns the cached object for h, if any.
func (p *Pool[T]) GetObject(h chainhash.Hash) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.objects[h]
	return e.obj, ok
}

// InvGood marks h as vouched for by a trusted source. It atomically removes
// h from objects (capturing the cached instance, if present) and inserts it
// into relayed; if the hash was newly promoted and an object instance was
// captured, it is broadcast to clients after the critical section.
func (p *Pool[T]) InvGood(clients Group[T], h chainhash.Hash) {
	p.mu.Lock()
	e, hadObject := p.objects[h]
	delete(p.objects, h)
	newlyRelayed := p.relayed.Add(inv.BlockItem(h))
	p.mu.Unlock()

	if hadObject && newlyRelayed && clients != nil {
		clients.RelayObject(e.obj)
	}
}

// evictLoop wakes every second and drops every objects entry whose expiry
// has passed, all within one critical section (map iteration order, so no
// particular order among the dropped entries). The narrow race between this critical
// section and the ambient sleep is the one the spec calls out as
// preservable rather than fixable: a reader observing (relayed, objects)
// mid-sweep may still see an object one tick past its nominal expiry.
func (p *Pool[T]) evictLoop() {
	defer p.wg.Done()

	t := ticker.New(evictionTick)
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-t.Ticks():
			p.evictExpired()
		case <-p.quit:
			return
		}
	}
}

func (p *Pool[T]) evictExpired() {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for h, e := range p.objects {
		if now.After(e.expiry) {
			delete(p.objects, h)
		}
	}
}
