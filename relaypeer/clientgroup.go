package relaypeer

import (
	"sync"

	"github.com/btcrelay/relaynode/relayobj"
)

// ClientGroup is the set of sibling relay-protocol clients connected to
// our own relay-protocol listening port — what spec §4.4/§4.5/§4.6 call
// "relayClients". Unlike peergroup.Group, membership here is not
// inventory-aware: every connected sibling receives every forwarded
// block, since the side channel carries no inv/getdata negotiation of its
// own (spec §1: its framing is opaque, only the receive callbacks matter).
type ClientGroup struct {
	mu      sync.Mutex
	members map[*InboundClient]struct{}
}

// NewClientGroup returns an empty ClientGroup.
func NewClientGroup() *ClientGroup {
	return &ClientGroup{members: make(map[*InboundClient]struct{})}
}

// Add registers c as a connected sibling, removing it automatically once
// its connection closes.
func (g *ClientGroup) Add(c *InboundClient) {
	g.mu.Lock()
	g.members[c] = struct{}{}
	g.mu.Unlock()

	c.onClose(func() {
		g.mu.Lock()
		delete(g.members, c)
		g.mu.Unlock()
	})
}

func (g *ClientGroup) snapshot() []*InboundClient {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*InboundClient, 0, len(g.members))
	for c := range g.members {
		out = append(out, c)
	}
	return out
}

// Len reports the current membership count.
func (g *ClientGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// SendBlock forwards b to every connected sibling relay client.
func (g *ClientGroup) SendBlock(b relayobj.Block) {
	env, err := EncodeBlock(b.MsgBlock)
	if err != nil {
		return
	}
	for _, c := range g.snapshot() {
		c.write(env)
	}
}

// SendTx is a no-op: the compact side channel never carries transactions
// (spec §4.6).
func (g *ClientGroup) SendTx(relayobj.Tx) {}
