// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcpeer adapts *btcd/peer.Peer to the peertrack.Peer interface
// this relay's core components depend on, and supplies the peer.Config
// builders (listener side and outbound dial side) used throughout the
// relay. Everything wire-protocol related — framing, the version
// handshake, ping/pong — is delegated to btcsuite/btcd/peer; this package
// only bridges its callback style to ours.
package btcpeer

import (
	"net"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/peertrack"
)

// UserAgentName and UserAgentVersion make up the subversion string
// advertised on listening connections, per spec §6.
const (
	UserAgentName    = "RelayNode"
	UserAgentVersion = "1.0.0"
)

// Adapter wraps a *peer.Peer and fans out OnDisconnect registrations,
// which btcd's peer.Peer itself only exposes as a single blocking
// WaitForDisconnect call.
type Adapter struct {
	*peer.Peer

	mu          sync.Mutex
	onDisc      []func()
	discStarted bool
}

// Wrap constructs an Adapter around p. The disconnect-fanout goroutine is
// started lazily on the first OnDisconnect registration.
func Wrap(p *peer.Peer) *Adapter {
	return &Adapter{Peer: p}
}

// SubVersion satisfies peertrack.Peer.
func (a *Adapter) SubVersion() string {
	return a.Peer.UserAgent()
}

// Send satisfies peertrack.Peer. btcd's peer.Peer.QueueMessageWithEncoding
// never reports back-pressure synchronously, so the only failure we can
// detect locally is what peer.Peer.Connected reports: no connection
// associated yet, or the peer already disconnected. Both are returned as
// peertrack.ErrNotConnected; handshake progress is not checked.
func (a *Adapter) Send(msg wire.Message) error {
	if !a.Peer.Connected() {
		return peertrack.ErrNotConnected
	}
	a.Peer.QueueMessage(msg, nil)
	return nil
}

// OnDisconnect satisfies peertrack.Peer, fanning out to every registered f.
func (a *Adapter) OnDisconnect(f func()) {
	a.mu.Lock()
	a.onDisc = append(a.onDisc, f)
	started := a.discStarted
	a.discStarted = true
	a.mu.Unlock()

	if started {
		return
	}
	go func() {
		a.Peer.WaitForDisconnect()
		a.mu.Lock()
		fns := a.onDisc
		a.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}()
}

// ListenerConfig builds a peer.Config for inbound connections accepted on
// one of the relay's own listening sockets, with listeners pointed at the
// supplied hook functions. Every hook is optional.
func ListenerConfig(params *chaincfg.Params, hooks Hooks) *peer.Config {
	return &peer.Config{
		UserAgentName:    UserAgentName,
		UserAgentVersion: UserAgentVersion,
		ChainParams:      params,
		Services:         wire.SFNodeNetwork,
		Listeners:        hooks.messageListeners(),
		AllowSelfConns:   true,
	}
}

// OutboundConfig builds a peer.Config for an operator-added outbound P2P
// connection, tagged with the additional "OutboundRelayNode" subversion
// suffix per spec §6.
func OutboundConfig(params *chaincfg.Params, hooks Hooks) *peer.Config {
	cfg := ListenerConfig(params, hooks)
	cfg.UserAgentComments = []string{"OutboundRelayNode - bitcoin-peering@relaynode"}
	return cfg
}

// Hooks bundles the message-kind callbacks a caller wants notified of; any
// nil field is simply not wired into the resulting peer.MessageListeners.
type Hooks struct {
	OnInv     func(p *peer.Peer, msg *wire.MsgInv)
	OnBlock   func(p *peer.Peer, msg *wire.MsgBlock, buf []byte)
	OnTx      func(p *peer.Peer, msg *wire.MsgTx)
	OnVersion func(p *peer.Peer, msg *wire.MsgVersion) *wire.MsgReject
}

func (h Hooks) messageListeners() peer.MessageListeners {
	return peer.MessageListeners{
		OnInv:     h.OnInv,
		OnBlock:   h.OnBlock,
		OnTx:      h.OnTx,
		OnVersion: h.OnVersion,
	}
}

// Dial establishes an outbound peer connection to addr and associates the
// resulting TCP connection with it, returning the wrapped Adapter once the
// peer has been constructed (not once the handshake completes — callers
// observing readiness should hook OnVersion/OnVerAck themselves).
func Dial(cfg *peer.Config, addr string) (*Adapter, error) {
	p, err := peer.NewOutboundPeer(cfg, addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", p.Addr())
	if err != nil {
		return nil, err
	}
	p.AssociateConnection(conn)
	return Wrap(p), nil
}

// Accept wraps an already-accepted inbound TCP connection as a peer using
// cfg, for the relay's own listening sockets (spec §6).
func Accept(cfg *peer.Config, conn net.Conn) (*Adapter, error) {
	p, err := peer.NewInboundPeer(cfg)
	if err != nil {
		return nil, err
	}
	p.AssociateConnection(conn)
	return Wrap(p), nil
}

// Listen opens addr and accepts inbound peers in a loop. newConn is called
// once per accepted connection and must return the *peer.Config to build
// the peer with plus an onAccept callback bound to that same connection's
// state (most callers close both over a single per-connection cell, since
// each connection typically needs hooks referencing its own wrapper — see
// node.untrustedHooks). The accept loop runs until the listener is closed;
// onAccept is expected to return quickly (it runs synchronously on the
// accept loop, right after the peer is constructed).
func Listen(addr string, newConn func() (*peer.Config, func(*Adapter)), errLog func(error)) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			cfg, onAccept := newConn()
			adapter, err := Accept(cfg, conn)
			if err != nil {
				errLog(err)
				conn.Close()
				continue
			}
			onAccept(adapter)
		}
	}()
	return ln, nil
}
