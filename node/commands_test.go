// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// spec §6: "q" is recognized with no further dispatch — Node must not
// need any collaborator wired up to recognize it.
func TestHandleCommandQuit(t *testing.T) {
	n := &Node{}

	quit, err := n.HandleCommand("q")
	require.NoError(t, err)
	require.True(t, quit)
}

func TestHandleCommandBlankLineIsNoop(t *testing.T) {
	n := &Node{}

	quit, err := n.HandleCommand("   ")
	require.NoError(t, err)
	require.False(t, quit)
}

func TestHandleCommandUnrecognized(t *testing.T) {
	n := &Node{}

	quit, err := n.HandleCommand("bogus")
	require.Error(t, err)
	require.False(t, quit)
}
