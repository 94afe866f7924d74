package objectpool

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

type fakeBlock struct {
	hash chainhash.Hash
}

func (b fakeBlock) Hash() chainhash.Hash { return b.hash }

type recordingGroup struct {
	relayed []fakeBlock
}

func (g *recordingGroup) RelayObject(obj fakeBlock) {
	g.relayed = append(g.relayed, obj)
}

func newTestPool(t *testing.T, outbound Group[fakeBlock]) *Pool[fakeBlock] {
	p := New[fakeBlock](100, outbound, nopLogger{})
	t.Cleanup(p.Stop)
	return p
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

func hashN(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

// R1: provideObject then invGood results in exactly one relayObject on the
// clients group and one on the trusted group.
func TestProvideThenInvGoodRelaysOnce(t *testing.T) {
	outbound := &recordingGroup{}
	p := newTestPool(t, outbound)
	clients := &recordingGroup{}

	h := hashN(0xAA)
	obj := fakeBlock{hash: h}

	p.ProvideObject(obj)
	require.Len(t, outbound.relayed, 1)
	require.Empty(t, clients.relayed)

	p.InvGood(clients, h)
	require.Len(t, clients.relayed, 1)
	require.Equal(t, obj, clients.relayed[0])

	// The cached-object dump should at least mention the hash field so a
	// failure message is actually useful for inspecting pool contents.
	dump := spew.Sdump(clients.relayed[0])
	require.True(t, strings.Contains(dump, "hash"))
}

// Two successive provideObject calls cache the object once and hand it to
// the trusted group twice; R2's at-most-one send per peer is enforced by
// the group's per-peer inventory tracking, which this recording group does
// not model.
func TestDuplicateProvideDoesNotDoubleCache(t *testing.T) {
	outbound := &recordingGroup{}
	p := newTestPool(t, outbound)

	h := hashN(0xBB)
	obj := fakeBlock{hash: h}

	p.ProvideObject(obj)
	p.ProvideObject(obj)

	got, ok := p.GetObject(h)
	require.True(t, ok)
	require.Equal(t, obj, got)
	// provideObject always forwards to outbound regardless of caching
	// state, so both calls reach the trusted group.
	require.Len(t, outbound.relayed, 2)
}

// P6: provideObject on a pool that already has h in relayed is a no-op on
// objects, but the object still reaches the trusted-outbound group.
func TestProvideAfterRelayedIsNoopOnObjects(t *testing.T) {
	outbound := &recordingGroup{}
	p := newTestPool(t, outbound)
	clients := &recordingGroup{}

	h := hashN(0xCC)
	obj := fakeBlock{hash: h}

	p.ProvideObject(obj)
	p.InvGood(clients, h)

	_, stillCached := p.GetObject(h)
	require.False(t, stillCached)

	p.ProvideObject(obj)
	_, cachedAgain := p.GetObject(h)
	require.False(t, cachedAgain, "relayed hash must never re-enter objects")
	require.Len(t, outbound.relayed, 2, "provideObject must still reach trusted outbound")
}

// I1/I2, P3: invGood removes h from objects and inserts into relayed; a
// second invGood call is a no-op (does not re-broadcast).
func TestInvGoodIsIdempotent(t *testing.T) {
	outbound := &recordingGroup{}
	p := newTestPool(t, outbound)
	clients := &recordingGroup{}

	h := hashN(0xDD)
	p.ProvideObject(fakeBlock{hash: h})

	p.InvGood(clients, h)
	p.InvGood(clients, h)

	require.Len(t, clients.relayed, 1)
}

// P2: relayed never exceeds its configured capacity.
func TestRelayedSetBounded(t *testing.T) {
	const cap = 10
	outbound := &recordingGroup{}
	p := New[fakeBlock](cap, outbound, nopLogger{})
	t.Cleanup(p.Stop)

	clients := &recordingGroup{}
	for i := 0; i < cap*5; i++ {
		h := hashN(byte(i))
		p.ProvideObject(fakeBlock{hash: h})
		p.InvGood(clients, h)
	}
	require.LessOrEqual(t, p.relayed.Len(), cap)
}

func TestShouldRequestInv(t *testing.T) {
	outbound := &recordingGroup{}
	p := newTestPool(t, outbound)
	clients := &recordingGroup{}

	h := hashN(0xEE)
	require.True(t, p.ShouldRequestInv(h))

	p.ProvideObject(fakeBlock{hash: h})
	require.False(t, p.ShouldRequestInv(h))

	p.InvGood(clients, h)
	require.False(t, p.ShouldRequestInv(h))
}
