// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/btcrelay/relaynode/btcpeer"
	"github.com/btcrelay/relaynode/peertrack"
	"github.com/btcrelay/relaynode/reconnect"
)

const outboundReconnectDelay = 1 * time.Second

// outboundPeer is one operator-added, untrusted outbound Bitcoin P2P
// connection ("o <host>:<port>" per spec §6). It runs through the same
// C4 untrusted handler as any inbound client and joins both client
// groups, exactly like an inbound blocks+tx connection.
type outboundPeer struct {
	addr string
	n    *Node

	markedForRemoval bool
	reconnectTask    *reconnect.Task

	onRemove func()
}

func newOutboundPeer(addr string, n *Node, onRemove func()) *outboundPeer {
	p := &outboundPeer{addr: addr, n: n, onRemove: onRemove}
	go p.connect()
	return p
}

func (p *outboundPeer) connect() {
	cell := &trackedCell{}
	hooks := untrustedHooks(cell, p.n.handler)
	cfg := btcpeer.OutboundConfig(p.n.cfg.ChainParams, hooks)

	adapter, err := btcpeer.Dial(cfg, p.addr)
	if err != nil {
		p.n.cfg.Logger.Debugf("node: outbound dial %s failed: %v", p.addr, err)
		p.closed()
		return
	}

	tracked := peertrack.New(adapter)
	cell.set(tracked)
	p.n.blocksClients.AddExisting(tracked)
	p.n.txnClients.AddExisting(tracked)

	adapter.OnDisconnect(func() { p.closed() })
}

func (p *outboundPeer) closed() {
	if p.markedForRemoval {
		if p.onRemove != nil {
			p.onRemove()
		}
		return
	}
	p.reconnectTask = p.n.scheduler.Schedule(outboundReconnectDelay, func() {
		if p.markedForRemoval {
			return
		}
		p.connect()
	})
}

// markForRemoval implements "o-<host>:<port>": no further reconnect is
// attempted after the current session (if any) ends.
func (p *outboundPeer) markForRemoval() {
	p.markedForRemoval = true
	if p.reconnectTask != nil {
		p.reconnectTask.Cancel()
	}
}

// outboundManager owns the set of operator-added untrusted outbound P2P
// peers, keyed by address.
type outboundManager struct {
	n *Node

	mu    sync.Mutex
	peers map[string]*outboundPeer
}

func newOutboundManager(n *Node) *outboundManager {
	return &outboundManager{n: n, peers: make(map[string]*outboundPeer)}
}

func (m *outboundManager) add(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.peers[addr]; exists {
		return fmt.Errorf("node: outbound peer %s already tracked", addr)
	}
	m.peers[addr] = newOutboundPeer(addr, m.n, func() {
		m.mu.Lock()
		delete(m.peers, addr)
		m.mu.Unlock()
	})
	return nil
}

func (m *outboundManager) markForRemoval(addr string) error {
	m.mu.Lock()
	p, ok := m.peers[addr]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("node: outbound peer %s not tracked", addr)
	}
	p.markForRemoval()
	return nil
}

// OutboundStatus is a point-in-time snapshot of one outbound P2P peer.
type OutboundStatus struct {
	Addr             string
	MarkedForRemoval bool
}

func (m *outboundManager) statuses() []OutboundStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]OutboundStatus, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, OutboundStatus{Addr: p.addr, MarkedForRemoval: p.markedForRemoval})
	}
	return out
}
