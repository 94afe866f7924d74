package inv

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func hashN(n byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = n
	return h
}

func TestSetAddIsIdempotent(t *testing.T) {
	s := NewSet(10)
	it := BlockItem(hashN(1))

	if !s.Add(it) {
		t.Fatalf("expected first insert to report novel")
	}
	if s.Add(it) {
		t.Fatalf("expected second insert to report duplicate")
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
}

func TestSetFIFOEviction(t *testing.T) {
	const cap = 5
	s := NewSet(cap)

	for i := byte(0); i < cap; i++ {
		s.Add(BlockItem(hashN(i)))
	}
	if s.Len() != cap {
		t.Fatalf("expected len %d, got %d", cap, s.Len())
	}

	// Insert one more; the oldest entry (hash 0) must be evicted.
	s.Add(BlockItem(hashN(cap)))
	if s.Len() != cap {
		t.Fatalf("expected len to stay at capacity %d, got %d", cap, s.Len())
	}
	if s.Contains(BlockItem(hashN(0))) {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if !s.Contains(BlockItem(hashN(cap))) {
		t.Fatalf("expected newest entry to be present")
	}
}

func TestSetNeverExceedsCapacity(t *testing.T) {
	const cap = 500
	s := NewSet(cap)
	for i := 0; i < cap*3; i++ {
		var h chainhash.Hash
		h[0], h[1] = byte(i), byte(i>>8)
		s.Add(TxItem(h))
		if s.Len() > cap {
			t.Fatalf("set exceeded capacity: %d > %d", s.Len(), cap)
		}
	}
}
