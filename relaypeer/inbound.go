package relaypeer

import (
	"sync"

	"github.com/btcsuite/btcd/wire"

	"github.com/btcrelay/relaynode/peertrack"
)

// subVersion is the synthetic subversion string attached to every inbound
// relay-protocol client, so untrusted.Handler can tell these connections
// apart from plain P2P peers for first-seen tagging ("relay SPV" vs
// "p2p SPV").
const subVersion = "/relay-protocol:relaynode/"

// BlockHandler receives a block arriving on an inbound relay-protocol
// connection. Satisfied by untrusted.Handler.HandleBlock bound to this
// client's Tracked wrapper.
type BlockHandler func(b *wire.MsgBlock)

// TxHandler receives a transaction arriving on an inbound relay-protocol
// connection.
type TxHandler func(tx *wire.MsgTx)

// InboundClient is one sibling relay node connected to our relay-protocol
// listening port. It satisfies peertrack.Peer so it can be wrapped and fed
// through untrusted.Handler like any other untrusted connection, and
// separately satisfies what ClientGroup needs to broadcast to it.
type InboundClient struct {
	conn Conn
	addr string

	mu        sync.Mutex
	closed    bool
	onClosers []func()

	onBlock BlockHandler
	onTx    TxHandler

	stats statsCounter
}

// NewInboundClient wraps conn, which must already be an accepted
// relay-protocol connection (see Accept). The returned client does not
// start reading until Serve is called; wire up SetHandlers first.
func NewInboundClient(conn Conn) *InboundClient {
	return &InboundClient{
		conn: conn,
		addr: conn.RemoteAddr(),
	}
}

// SetHandlers wires the callbacks invoked for decoded inbound messages.
// Must be called before Serve.
func (c *InboundClient) SetHandlers(onBlock BlockHandler, onTx TxHandler) {
	c.onBlock = onBlock
	c.onTx = onTx
}

// Serve runs the client's read loop until the connection closes. Intended
// to run on its own goroutine, one per accepted connection, the same way
// an accepted net.Conn would be handled.
func (c *InboundClient) Serve() {
	defer c.close()

	for {
		env, err := c.conn.ReadEnvelope()
		if err != nil {
			return
		}
		c.stats.add(len(env.Payload))

		switch env.Kind {
		case KindBlock:
			b, err := DecodeBlock(env.Payload)
			if err == nil && c.onBlock != nil {
				c.onBlock(b)
			}
		case KindTx:
			tx, err := DecodeTx(env.Payload)
			if err == nil && c.onTx != nil {
				c.onTx(tx)
			}
		default:
			// Headers and stats frames arriving inbound are not
			// meaningful on this side; ignored.
		}
	}
}

func (c *InboundClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	closers := c.onClosers
	c.mu.Unlock()

	c.conn.Close()
	for _, f := range closers {
		f()
	}
}

func (c *InboundClient) onClose(f func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		f()
		return
	}
	c.onClosers = append(c.onClosers, f)
	c.mu.Unlock()
}

func (c *InboundClient) write(env Envelope) {
	_ = c.conn.WriteEnvelope(env)
}

// Addr satisfies peertrack.Peer.
func (c *InboundClient) Addr() string { return c.addr }

// SubVersion satisfies peertrack.Peer.
func (c *InboundClient) SubVersion() string { return subVersion }

// Send satisfies peertrack.Peer, translating the wire message kinds this
// side channel can carry.
func (c *InboundClient) Send(msg wire.Message) error {
	var env Envelope
	var err error
	switch m := msg.(type) {
	case *wire.MsgBlock:
		env, err = EncodeBlock(m)
	case *wire.MsgTx:
		env, err = EncodeTx(m)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return c.conn.WriteEnvelope(env)
}

// OnDisconnect satisfies peertrack.Peer.
func (c *InboundClient) OnDisconnect(f func()) {
	c.onClose(f)
}

// TrackedHandlers wires an InboundClient's decoded messages into the
// standard peertrack.Tracked call shape the untrusted.Handler expects, so
// callers need not hand-write the closures themselves.
func TrackedHandlers(t *peertrack.Tracked, handleBlock func(*peertrack.Tracked, *wire.MsgBlock), handleTx func(*peertrack.Tracked, *wire.MsgTx)) (BlockHandler, TxHandler) {
	return func(b *wire.MsgBlock) { handleBlock(t, b) },
		func(tx *wire.MsgTx) { handleTx(t, tx) }
}
