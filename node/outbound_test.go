// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutboundMarkForRemovalUnknownAddr(t *testing.T) {
	m := &outboundManager{peers: make(map[string]*outboundPeer)}

	err := m.markForRemoval("203.0.113.9:8333")
	require.Error(t, err)
}

func TestOutboundMarkForRemovalSetsFlag(t *testing.T) {
	m := &outboundManager{peers: make(map[string]*outboundPeer)}
	p := &outboundPeer{addr: "203.0.113.9:8333"}
	m.peers[p.addr] = p

	require.NoError(t, m.markForRemoval(p.addr))
	require.True(t, p.markedForRemoval)
}

func TestOutboundStatusesReportsMembers(t *testing.T) {
	m := &outboundManager{peers: make(map[string]*outboundPeer)}
	m.peers["203.0.113.9:8333"] = &outboundPeer{addr: "203.0.113.9:8333"}
	m.peers["203.0.113.10:8333"] = &outboundPeer{addr: "203.0.113.10:8333", markedForRemoval: true}

	statuses := m.statuses()
	require.Len(t, statuses, 2)
}
