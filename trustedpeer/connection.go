// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package trustedpeer implements C5: dual-socket management of one
// trusted validator, whose acceptance of a block or transaction is
// sufficient warrant to broadcast it to every untrusted client.
package trustedpeer

import (
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"

	"github.com/btcrelay/relaynode/btcpeer"
	"github.com/btcrelay/relaynode/headerchain"
	"github.com/btcrelay/relaynode/objectpool"
	"github.com/btcrelay/relaynode/peertrack"
	"github.com/btcrelay/relaynode/peergroup"
	"github.com/btcrelay/relaynode/relayobj"
	"github.com/btcrelay/relaynode/reconnect"
)

// reconnectDelay is the fixed backoff between a trusted peer's disconnect
// and the next connection attempt.
const reconnectDelay = 1 * time.Second

// State is the advisory lifecycle state of a Connection, used only for the
// status panel; §9 calls inboundConnected/outboundConnected inherently
// racy and this type is kept to the same posture rather than strengthened.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePartiallyUp
	StateFullyUp
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePartiallyUp:
		return "partially up"
	case StateFullyUp:
		return "fully up"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// RelayClients is the set of sibling relay-protocol clients a
// trusted-inbound acceptance is echoed to.
type RelayClients interface {
	SendBlock(b relayobj.Block)
	SendTx(tx relayobj.Tx)
}

// Log is the relaylog.Log surface this package needs.
type Log interface {
	LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool
}

type logger interface {
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Config bundles every collaborator a Connection needs.
type Config struct {
	ChainParams *chaincfg.Params

	BlockPool *objectpool.Pool[relayobj.Block]
	TxPool    *objectpool.Pool[relayobj.Tx]

	BlocksClients *peergroup.Group[relayobj.Block]
	TxnClients    *peergroup.Group[relayobj.Tx]

	// TrustedOutbound is the group outbound sessions join so that
	// pool.ProvideObject reaches every connected validator.
	TrustedOutbound   *peergroup.Group[relayobj.Block]
	TrustedOutboundTx *peergroup.Group[relayobj.Tx]

	RelayClients RelayClients
	Headers      headerchain.Store
	Log          Log
	Logger       logger

	Scheduler *reconnect.Scheduler

	// Async runs a unit of work off the calling goroutine.
	Async func(f func())

	// ZMQPort, if nonzero, is the port a trusted validator's own
	// zmqpubhashblock/zmqpubhashtx publisher is expected to listen on,
	// at the same host as the validator's P2P address. Zero disables
	// the secondary acceptance channel entirely.
	ZMQPort int
}

func (c *Config) async(f func()) {
	if c.Async != nil {
		c.Async(f)
		return
	}
	go f()
}

// Connection manages the dual inbound/outbound sessions to one trusted
// validator address.
type Connection struct {
	addr string
	cfg  *Config

	inbound  *btcpeer.Adapter
	outbound *btcpeer.Adapter

	inboundConnected  bool // advisory; see State doc
	outboundConnected bool // advisory; see State doc

	closedPermanently bool
	reconnectTask     *reconnect.Task

	zmq *zmqWatch

	onRemove func()
}

// newConnection constructs a Connection and immediately begins dialing
// both sessions, plus the optional ZMQ watcher if cfg.ZMQPort is set.
func newConnection(addr string, cfg *Config, onRemove func()) *Connection {
	c := &Connection{addr: addr, cfg: cfg, onRemove: onRemove}
	c.connect()
	c.startZMQ()
	return c
}

func (c *Connection) startZMQ() {
	if c.cfg.ZMQPort == 0 {
		return
	}
	host, _, err := net.SplitHostPort(c.addr)
	if err != nil {
		return
	}
	endpoint := fmt.Sprintf("tcp://%s", net.JoinHostPort(host, fmt.Sprint(c.cfg.ZMQPort)))
	c.zmq = startZMQWatch(endpoint, c.onZMQHashBlock, c.onZMQHashTx, c.cfg.Logger)
}

// onZMQHashBlock treats a hash arriving over the secondary ZMQ channel
// exactly like a known inv item on the primary inbound session (§4.5):
// if we still hold the object, forward it to relay clients. Whether or not
// it was held, the hash is then marked relayed via InvGood and logged as
// first-seen; no getdata is issued for it.
func (c *Connection) onZMQHashBlock(hash chainhash.Hash) {
	c.cfg.async(func() {
		if b, ok := c.cfg.BlockPool.GetObject(hash); ok {
			c.cfg.RelayClients.SendBlock(b)
		}
		c.cfg.BlockPool.InvGood(c.cfg.BlocksClients, hash)
		c.cfg.Log.LogBlockFirstSeen(hash, "trusted inv", c.addr)
	})
}

func (c *Connection) onZMQHashTx(hash chainhash.Hash) {
	c.cfg.async(func() {
		if x, ok := c.cfg.TxPool.GetObject(hash); ok {
			c.cfg.RelayClients.SendTx(x)
		}
		c.cfg.TxPool.InvGood(c.cfg.TxnClients, hash)
	})
}

// State reports the advisory lifecycle state for the status panel.
func (c *Connection) State() State {
	switch {
	case c.closedPermanently:
		return StateDisconnected
	case c.inboundConnected && c.outboundConnected:
		return StateFullyUp
	case c.inboundConnected || c.outboundConnected:
		return StatePartiallyUp
	default:
		return StateConnecting
	}
}

// Addr returns the validator's address.
func (c *Connection) Addr() string { return c.addr }

func (c *Connection) connect() {
	go c.connectInbound()
	go c.connectOutbound()
}

func (c *Connection) connectInbound() {
	hooks := btcpeer.Hooks{
		OnInv:   func(p *peer.Peer, msg *wire.MsgInv) { c.onAcceptanceInv(msg) },
		OnBlock: func(p *peer.Peer, msg *wire.MsgBlock, _ []byte) { c.onAcceptanceBlock(msg) },
		OnTx:    func(p *peer.Peer, msg *wire.MsgTx) { c.onAcceptanceTx(msg) },
	}
	adapter, err := btcpeer.Dial(btcpeer.OutboundConfig(c.cfg.ChainParams, hooks), c.addr)
	if err != nil {
		c.cfg.Logger.Warnf("trustedpeer: inbound session to %s failed: %v", c.addr, err)
		c.scheduleReconnect()
		return
	}

	c.inbound = adapter
	c.inboundConnected = true
	adapter.OnDisconnect(func() { c.onDisconnect() })
}

func (c *Connection) connectOutbound() {
	adapter, err := btcpeer.Dial(btcpeer.OutboundConfig(c.cfg.ChainParams, btcpeer.Hooks{}), c.addr)
	if err != nil {
		c.cfg.Logger.Warnf("trustedpeer: outbound session to %s failed: %v", c.addr, err)
		c.scheduleReconnect()
		return
	}

	c.outbound = adapter
	c.outboundConnected = true
	tracked := peertrack.New(adapter)
	c.cfg.TrustedOutbound.AddExisting(tracked)
	c.cfg.TrustedOutboundTx.AddExisting(tracked)

	// Headers-only chain download, unlimited range, so we track the tip.
	adapter.QueueMessage(&wire.MsgGetHeaders{
		ProtocolVersion:    wire.ProtocolVersion,
		BlockLocatorHashes: nil,
		HashStop:           chainhash.Hash{},
	}, nil)

	adapter.OnDisconnect(func() { c.onDisconnect() })
}

// onDisconnect is triggered by either session; it forces the other closed,
// nulls both slots and schedules a reconnect unless permanently removed.
func (c *Connection) onDisconnect() {
	if c.inbound != nil {
		c.inbound.Disconnect()
		c.inbound = nil
	}
	if c.outbound != nil {
		c.outbound.Disconnect()
		c.outbound = nil
	}
	c.inboundConnected = false
	c.outboundConnected = false

	if c.closedPermanently {
		return
	}
	c.scheduleReconnect()
}

func (c *Connection) scheduleReconnect() {
	if c.closedPermanently {
		return
	}
	c.reconnectTask = c.cfg.Scheduler.Schedule(reconnectDelay, func() {
		if c.closedPermanently {
			return
		}
		c.connect()
	})
}

// disconnectPermanently closes both sessions and marks the connection so
// no further reconnects are attempted, then calls onRemove, through which
// the Manager drops it from the trusted-peer map.
func (c *Connection) disconnectPermanently() {
	c.closedPermanently = true
	if c.zmq != nil {
		c.zmq.Stop()
	}
	if c.reconnectTask != nil {
		c.reconnectTask.Cancel()
	}
	if c.inbound != nil {
		c.inbound.Disconnect()
	}
	if c.outbound != nil {
		c.outbound.Disconnect()
	}
	if c.onRemove != nil {
		c.onRemove()
	}
}

// forceDisconnect closes both sessions but still schedules a reconnect
// (used for the relay-peer header-drift resync, spec §4.6/§7 scenario 6).
func (c *Connection) forceDisconnect() {
	c.onDisconnect()
}

// onAcceptanceInv implements spec §4.5: known items are queued for async
// forwarding, unknown items are requested with getdata.
func (c *Connection) onAcceptanceInv(msg *wire.MsgInv) {
	var blocksGood, txGood []chainhash.Hash
	getData := wire.NewMsgGetData()

	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
			if !c.cfg.BlockPool.ShouldRequestInv(iv.Hash) {
				blocksGood = append(blocksGood, iv.Hash)
			} else {
				_ = getData.AddInvVect(iv)
			}
		case wire.InvTypeTx, wire.InvTypeWitnessTx:
			if !c.cfg.TxPool.ShouldRequestInv(iv.Hash) {
				txGood = append(txGood, iv.Hash)
			} else {
				_ = getData.AddInvVect(iv)
			}
		}
	}

	if len(getData.InvList) > 0 && c.inbound != nil {
		c.inbound.QueueMessage(getData, nil)
	}

	c.cfg.async(func() {
		for _, h := range blocksGood {
			if b, ok := c.cfg.BlockPool.GetObject(h); ok {
				c.cfg.RelayClients.SendBlock(b)
			}
			c.cfg.BlockPool.InvGood(c.cfg.BlocksClients, h)
			c.cfg.Log.LogBlockFirstSeen(h, "trusted inv", c.addr)
		}
		for _, h := range txGood {
			if x, ok := c.cfg.TxPool.GetObject(h); ok {
				c.cfg.RelayClients.SendTx(x)
			}
			c.cfg.TxPool.InvGood(c.cfg.TxnClients, h)
		}
	})
}

// onAcceptanceBlock implements the bare-block branch of spec §4.5.
func (c *Connection) onAcceptanceBlock(msg *wire.MsgBlock) {
	blk := relayobj.Block{MsgBlock: msg}
	hash := msg.BlockHash()

	c.cfg.Logger.Debugf("trustedpeer: %s accepted block %s: %s", c.addr, hash, spew.Sdump(msg.Header))

	c.cfg.async(func() {
		c.cfg.RelayClients.SendBlock(blk)
		c.cfg.BlockPool.ProvideObject(blk)
		c.cfg.BlockPool.InvGood(c.cfg.BlocksClients, hash)
		c.cfg.Log.LogBlockFirstSeen(hash, "trusted inv", c.addr)

		if !c.cfg.Headers.HasHeader(&msg.Header) {
			if err := c.cfg.Headers.AddHeader(&msg.Header); err != nil {
				c.cfg.Logger.Warnf(
					"trustedpeer: header rejected from trusted inbound %s: %v",
					c.addr, err,
				)
			}
		}
	})
}

// onAcceptanceTx implements the bare-tx branch of spec §4.5.
func (c *Connection) onAcceptanceTx(msg *wire.MsgTx) {
	tx := relayobj.Tx{MsgTx: msg}
	hash := msg.TxHash()

	c.cfg.Logger.Debugf("trustedpeer: %s accepted tx %s: %s", c.addr, hash, spew.Sdump(msg))

	c.cfg.async(func() {
		c.cfg.RelayClients.SendTx(tx)
		c.cfg.TxPool.ProvideObject(tx)
		c.cfg.TxPool.InvGood(c.cfg.TxnClients, hash)
	})
}

