// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements C7: the dispatcher that owns the three
// listening sockets, the operator command line, the stats loop, and the
// wiring between every other component.
package node

import (
	"fmt"
	"net"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/peer"

	"github.com/btcrelay/relaynode/btcpeer"
	"github.com/btcrelay/relaynode/headerchain"
	"github.com/btcrelay/relaynode/objectpool"
	"github.com/btcrelay/relaynode/peergroup"
	"github.com/btcrelay/relaynode/peertrack"
	"github.com/btcrelay/relaynode/reconnect"
	"github.com/btcrelay/relaynode/relaylog"
	"github.com/btcrelay/relaynode/relayobj"
	"github.com/btcrelay/relaynode/relaypeer"
	"github.com/btcrelay/relaynode/trustedpeer"
	"github.com/btcrelay/relaynode/untrusted"
)

// Cache sizes from spec §3: "capacity 100 for blocks / 10 000 for
// transactions".
const (
	blockRelayedCap = 100
	txRelayedCap    = 10000
)

// Default listening ports, spec §6.
const (
	DefaultBlocksPort   = 8334
	DefaultBlocksTxPort = 8335
	DefaultRelayPort    = 8336
)

// logger is the ambient btclog.Logger surface every component needs.
type logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config bundles everything Node needs to construct its components.
type Config struct {
	ChainParams *chaincfg.Params

	BlocksAddr   string
	BlocksTxAddr string
	RelayAddr    string

	Headers  headerchain.Store
	Verifier untrusted.TxVerifier
	Log      *relaylog.Log
	Logger   logger

	// ZMQPort, if nonzero, is applied to every trusted validator added
	// afterward (see trustedpeer.Config.ZMQPort).
	ZMQPort int
}

// Node wires together every component described in SPEC_FULL.md §4 and
// owns the three listening sockets plus the operator-facing state.
type Node struct {
	cfg *Config

	blockPool *objectpool.Pool[relayobj.Block]
	txPool    *objectpool.Pool[relayobj.Tx]

	blocksClients *peergroup.Group[relayobj.Block]
	txnClients    *peergroup.Group[relayobj.Tx]

	trustedOutbound   *peergroup.Group[relayobj.Block]
	trustedOutboundTx *peergroup.Group[relayobj.Tx]

	trusted  *trustedpeer.Manager
	relay    *relaypeer.ClientManager
	outbound *outboundManager

	relayClients *relaypeer.ClientGroup

	handler   *untrusted.Handler
	scheduler *reconnect.Scheduler

	listeners []interface{ Close() error }
	relayHTTP *http.Server
}

// New constructs a Node and every component it owns, but does not yet bind
// any sockets; call Start for that.
func New(cfg *Config) *Node {
	n := &Node{cfg: cfg}

	n.scheduler = reconnect.NewScheduler()
	n.relayClients = relaypeer.NewClientGroup()

	n.blocksClients = peergroup.New[relayobj.Block]()
	n.txnClients = peergroup.New[relayobj.Tx]()
	n.trustedOutbound = peergroup.New[relayobj.Block]()
	n.trustedOutboundTx = peergroup.New[relayobj.Tx]()

	n.blockPool = objectpool.New[relayobj.Block](blockRelayedCap, n.trustedOutbound, cfg.Logger)
	n.txPool = objectpool.New[relayobj.Tx](txRelayedCap, n.trustedOutboundTx, cfg.Logger)

	n.handler = &untrusted.Handler{
		BlockPool:     n.blockPool,
		TxPool:        n.txPool,
		BlocksClients: n.blocksClients,
		RelayClients:  n.relayClients,
		Headers:       cfg.Headers,
		Verifier:      cfg.Verifier,
		Log:           cfg.Log,
		Logger:        cfg.Logger,
	}

	trustedCfg := &trustedpeer.Config{
		ChainParams:       cfg.ChainParams,
		BlockPool:         n.blockPool,
		TxPool:            n.txPool,
		BlocksClients:     n.blocksClients,
		TxnClients:        n.txnClients,
		TrustedOutbound:   n.trustedOutbound,
		TrustedOutboundTx: n.trustedOutboundTx,
		RelayClients:      n.relayClients,
		Headers:           cfg.Headers,
		Log:               cfg.Log,
		Logger:            cfg.Logger,
		Scheduler:         n.scheduler,
		ZMQPort:           cfg.ZMQPort,
	}
	n.trusted = trustedpeer.NewManager(trustedCfg)

	relayCfg := &relaypeer.ClientConfig{
		BlockPool:     n.blockPool,
		BlocksClients: n.blocksClients,
		RelayClients:  n.relayClients,
		Headers:       cfg.Headers,
		TrustedPeers:  n.trusted,
		Log:           cfg.Log,
		Logger:        cfg.Logger,
		Scheduler:     n.scheduler,
	}
	n.relay = relaypeer.NewClientManager(relayCfg)

	n.outbound = newOutboundManager(n)

	return n
}

// Start binds the three listening sockets (spec §6). A bind failure on
// any of them is the one startup condition spec §7 treats as fatal to the
// caller (main is expected to exit with a non-zero status).
func (n *Node) Start() error {
	blocksLn, err := btcpeer.Listen(n.cfg.BlocksAddr, n.blocksOnlyConn, n.logAcceptErr)
	if err != nil {
		return fmt.Errorf("node: bind blocks-only port %s: %w", n.cfg.BlocksAddr, err)
	}
	n.listeners = append(n.listeners, blocksLn)

	blocksTxLn, err := btcpeer.Listen(n.cfg.BlocksTxAddr, n.blocksTxConn, n.logAcceptErr)
	if err != nil {
		return fmt.Errorf("node: bind blocks+tx port %s: %w", n.cfg.BlocksTxAddr, err)
	}
	n.listeners = append(n.listeners, blocksTxLn)

	mux := http.NewServeMux()
	mux.HandleFunc("/relay", n.onRelayProtocolAccept)
	n.relayHTTP = &http.Server{Addr: n.cfg.RelayAddr, Handler: mux}
	relayLn, err := net.Listen("tcp", n.cfg.RelayAddr)
	if err != nil {
		return fmt.Errorf("node: bind relay-protocol port %s: %w", n.cfg.RelayAddr, err)
	}
	n.listeners = append(n.listeners, relayLn)
	go n.relayHTTP.Serve(relayLn)

	return nil
}

func (n *Node) logAcceptErr(err error) {
	n.cfg.Logger.Warnf("node: accept: %v", err)
}

// blocksOnlyConn implements "blocks-only port: new connection added to
// blocksClients only" (spec §4.7).
func (n *Node) blocksOnlyConn() (*peer.Config, func(*btcpeer.Adapter)) {
	return newUntrustedConn(n.cfg.ChainParams, n.handler, func(t *peertrack.Tracked) {
		n.blocksClients.AddExisting(t)
	})
}

// blocksTxConn implements "blocks+tx port: added to both blocksClients and
// txnClients (blocks-first so it cannot receive its own relayed block
// back)" (spec §4.7).
func (n *Node) blocksTxConn() (*peer.Config, func(*btcpeer.Adapter)) {
	return newUntrustedConn(n.cfg.ChainParams, n.handler, func(t *peertrack.Tracked) {
		n.blocksClients.AddExisting(t)
		n.txnClients.AddExisting(t)
	})
}

// onRelayProtocolAccept is the relay-protocol port's HTTP handler (spec
// §4.7: "hosted by an external listener whose accepted connections are
// also fed C4's handler").
func (n *Node) onRelayProtocolAccept(w http.ResponseWriter, r *http.Request) {
	conn, err := relaypeer.Accept(w, r)
	if err != nil {
		n.cfg.Logger.Debugf("node: relay-protocol upgrade failed: %v", err)
		return
	}

	client := relaypeer.NewInboundClient(conn)
	tracked := peertrack.New(client)
	client.SetHandlers(relaypeer.TrackedHandlers(tracked, n.handler.HandleBlock, n.handler.HandleTx))

	n.blocksClients.AddExisting(tracked)
	n.txnClients.AddExisting(tracked)
	n.relayClients.Add(client)

	go client.Serve()
}
