// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relaypeer

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/headerchain"
	"github.com/btcrelay/relaynode/objectpool"
	"github.com/btcrelay/relaynode/peergroup"
	"github.com/btcrelay/relaynode/relayobj"
	"github.com/btcrelay/relaynode/reconnect"
)

const clientReconnectDelay = 1 * time.Second

// TrustedPeers is the resync hook C6 calls when the relay peer's header
// view has drifted from ours (spec §4.6/§7 scenario 6). Satisfied by
// *trustedpeer.Manager.
type TrustedPeers interface {
	ForceDisconnectAll()
}

// Log is the relaylog.Log surface C6 needs.
type Log interface {
	LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool
}

type logger interface {
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// ClientConfig bundles the collaborators a Client needs.
type ClientConfig struct {
	BlockPool     *objectpool.Pool[relayobj.Block]
	BlocksClients *peergroup.Group[relayobj.Block]
	RelayClients  *ClientGroup
	Headers       headerchain.Store
	TrustedPeers  TrustedPeers
	Log           Log
	Logger        logger
	Scheduler     *reconnect.Scheduler
	// Async runs a unit of work off the calling goroutine.
	Async func(f func())
}

func (c *ClientConfig) async(f func()) {
	if c.Async != nil {
		c.Async(f)
		return
	}
	go f()
}

// Client implements C6: an outbound link to a sibling relay node over the
// compact side channel.
type Client struct {
	addr string
	cfg  *ClientConfig

	conn Conn

	markedForRemoval bool
	reconnectTask    *reconnect.Task
	stats            statsCounter

	onRemove func()
}

// NewClient constructs a Client and begins connecting to addr.
func NewClient(addr string, cfg *ClientConfig, onRemove func()) *Client {
	c := &Client{addr: addr, cfg: cfg, onRemove: onRemove}
	go c.connect()
	return c
}

func (c *Client) connect() {
	conn, err := DialClient(c.addr)
	if err != nil {
		c.cfg.Logger.Debugf("relaypeer: connect to %s failed: %v", c.addr, err)
		c.connectionClosed()
		return
	}
	c.conn = conn
	c.connectionOpened()
	go c.serve()
}

func (c *Client) connectionOpened() {
	c.cfg.Logger.Debugf("relaypeer: connected to %s", c.addr)
}

func (c *Client) connectionClosed() {
	if c.markedForRemoval {
		if c.onRemove != nil {
			c.onRemove()
		}
		return
	}
	c.reconnectTask = c.cfg.Scheduler.Schedule(clientReconnectDelay, func() {
		if c.markedForRemoval {
			return
		}
		c.connect()
	})
}

// MarkForRemoval flags the client so no reconnect is attempted after the
// next disconnect (spec "r-<host>" command).
func (c *Client) MarkForRemoval() {
	c.markedForRemoval = true
	if c.reconnectTask != nil {
		c.reconnectTask.Cancel()
	}
	if conn := c.conn; conn != nil {
		conn.Close()
	}
}

func (c *Client) serve() {
	for {
		env, err := c.conn.ReadEnvelope()
		if err != nil {
			c.conn = nil
			c.connectionClosed()
			return
		}
		c.stats.add(len(env.Payload))

		switch env.Kind {
		case KindBlock:
			b, err := DecodeBlock(env.Payload)
			if err == nil {
				c.receiveBlock(b)
			}
		case KindBlockHeader, KindTx:
			// receiveBlockHeader, receiveTransaction: no-op per
			// spec §4.6 — transactions are never shipped on this
			// side channel, and bare headers carry no acceptance
			// signal on their own.
		}
	}
}

// receiveBlock implements spec §4.6's block branch.
func (c *Client) receiveBlock(b *wire.MsgBlock) {
	blk := relayobj.Block{MsgBlock: b}
	hash := b.BlockHash()

	c.cfg.async(func() {
		c.cfg.RelayClients.SendBlock(blk)
		c.cfg.BlockPool.ProvideObject(blk)
		c.cfg.BlockPool.InvGood(c.cfg.BlocksClients, hash)
		c.cfg.Log.LogBlockFirstSeen(hash, "relay peer", c.addr, c.stats.String())

		if c.cfg.Headers.HasHeader(&b.Header) {
			return
		}
		if err := c.cfg.Headers.AddHeader(&b.Header); err != nil {
			c.cfg.Logger.Warnf(
				"relaypeer: header from %s rejected, resyncing trusted peers: %v",
				c.addr, err,
			)
			c.cfg.TrustedPeers.ForceDisconnectAll()
		}
	})
}
