// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rdns performs best-effort reverse-DNS lookups for the relay log. It is a pure sink: a lookup failure never blocks or
// fails its caller, it just falls back to the bare address.
package rdns

import "net"

// Lookup returns the first PTR record for host, or host itself if the
// lookup fails or returns nothing.
func Lookup(host string) string {
	names, err := net.LookupAddr(host)
	if err != nil || len(names) == 0 {
		return host
	}
	return names[0]
}
