// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peergroup implements C2: a set of live, inventory-tracked peers
// with broadcast-relay to every member, skipping members who already have
// the item being relayed.
package peergroup

import (
	"sync"

	"github.com/btcrelay/relaynode/peertrack"
)

// Group is a synchronized set of tracked peers relaying objects of type T.
// Membership is mutated only through Add/AddExisting, Remove, and the
// disconnect hook Add/AddExisting install; RelayObject snapshots the membership before iterating
// so a concurrent disconnect never corrupts an in-flight fan-out.
//
// A single *peertrack.Tracked may belong to more than one Group (e.g. a
// blocks+tx client belongs to both the blocks and the tx group) since the
// spec models one inventory record per peer shared across every group it
// is a member of.
type Group[T peertrack.Message] struct {
	mu      sync.Mutex
	members map[*peertrack.Tracked]struct{}
}

// New returns an empty Group.
func New[T peertrack.Message]() *Group[T] {
	return &Group[T]{members: make(map[*peertrack.Tracked]struct{})}
}

// Add wraps p in a fresh Tracked, installs a disconnect hook that removes
// it from this group, and returns the wrapper.
func (g *Group[T]) Add(p peertrack.Peer) *peertrack.Tracked {
	t := peertrack.New(p)
	g.AddExisting(t)
	return t
}

// AddExisting adds an already-tracked peer (one possibly already a member
// of another Group) to this group, installing a disconnect hook scoped to
// this group's membership only.
func (g *Group[T]) AddExisting(t *peertrack.Tracked) {
	g.mu.Lock()
	g.members[t] = struct{}{}
	g.mu.Unlock()

	t.OnDisconnect(func() {
		g.mu.Lock()
		delete(g.members, t)
		g.mu.Unlock()
	})
}

// Remove drops t from the group immediately, independent of disconnect.
func (g *Group[T]) Remove(t *peertrack.Tracked) {
	g.mu.Lock()
	delete(g.members, t)
	g.mu.Unlock()
}

// snapshot copies the current membership under lock.
func (g *Group[T]) snapshot() []*peertrack.Tracked {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*peertrack.Tracked, 0, len(g.members))
	for t := range g.members {
		out = append(out, t)
	}
	return out
}

// Len reports the current membership count.
func (g *Group[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// RelayObject fans obj out to every current member via MaybeRelay, which
// itself skips members that already know the object's inventory item
// (spec P7). Per-member send is best-effort.
func (g *Group[T]) RelayObject(obj T) {
	for _, t := range g.snapshot() {
		t.MaybeRelay(obj)
	}
}
