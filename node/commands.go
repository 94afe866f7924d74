// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"fmt"
	"strings"
)

// HandleCommand implements the operator CLI (spec §6): one command per
// line, read from stdin by the caller and passed here verbatim. Returns
// true if the command was "q" (process exit), and an error describing any
// invalid or duplicate command, which the caller prints into the TUI
// rather than treating as fatal.
func (n *Node) HandleCommand(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	switch {
	case line == "q":
		return true, nil

	case strings.HasPrefix(line, "t-"):
		return false, n.trusted.Remove(strings.TrimSpace(line[len("t-"):]))
	case strings.HasPrefix(line, "t "):
		return false, n.trusted.Add(strings.TrimSpace(line[len("t "):]))

	case strings.HasPrefix(line, "o-"):
		return false, n.outbound.markForRemoval(strings.TrimSpace(line[len("o-"):]))
	case strings.HasPrefix(line, "o "):
		return false, n.outbound.add(strings.TrimSpace(line[len("o "):]))

	case strings.HasPrefix(line, "r-"):
		return false, n.relay.MarkRemoved(strings.TrimSpace(line[len("r-"):]))
	case strings.HasPrefix(line, "r "):
		return false, n.relay.Add(strings.TrimSpace(line[len("r "):]))

	default:
		return false, fmt.Errorf("node: unrecognized command %q", line)
	}
}
