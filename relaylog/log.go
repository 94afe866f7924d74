// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relaylog implements C8: the append-only, first-seen-deduplicated
// record of every block this relay has ever forwarded.
package relaylog

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcrelay/relaynode/rdns"
)

// logger is the narrow surface relaylog needs from the ambient logging
// package.
type logger interface {
	Errorf(format string, args ...interface{})
}

// Log is the append-only blockrelay.log sink plus the process-lifetime
// first-seen set that backs P4 (a hash is appended at most once).
type Log struct {
	log logger

	mu      sync.Mutex
	file    *os.File
	relayed map[chainhash.Hash]struct{}
}

// Open opens (creating if necessary) the append-only log at path. Per
// spec §7, a failure to open or subsequently write to this file is fatal,
// so Open itself returns an error the caller is expected to treat as a
// startup bind-style failure.
func Open(path string, log logger) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("relaylog: open %s: %w", path, err)
	}
	return &Log{
		log:     log,
		file:    f,
		relayed: make(map[chainhash.Hash]struct{}),
	}, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// LogBlockFirstSeen records hash as relayed, tagging the entry with source
// (e.g. "p2p SPV", "relay SPV", "trusted inv", "relay peer") and the
// address it arrived from. It is a no-op if hash has already been logged
// once this process. Any additional statsLines are appended immediately
// below the hash line (used by C6 to attach the side channel's
// accumulated stats string). Returns whether this call was the first
// observation.
func (l *Log) LogBlockFirstSeen(hash chainhash.Hash, source, peerAddr string, statsLines ...string) bool {
	l.mu.Lock()
	if _, seen := l.relayed[hash]; seen {
		l.mu.Unlock()
		return false
	}
	l.relayed[hash] = struct{}{}
	l.mu.Unlock()

	host := peerAddr
	if h, _, err := net.SplitHostPort(peerAddr); err == nil {
		host = h
	}
	line := fmt.Sprintf(
		"%s %d %s from %s/%s\n",
		hash.String(), time.Now().UnixMilli(), source,
		peerAddr, rdns.Lookup(host),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeLocked(line); err != nil {
		l.fatal(err)
	}
	for _, s := range statsLines {
		if err := l.writeLocked(s + "\n"); err != nil {
			l.fatal(err)
		}
	}
	if err := l.file.Sync(); err != nil {
		l.fatal(err)
	}
	return true
}

func (l *Log) writeLocked(s string) error {
	_, err := l.file.WriteString(s)
	return err
}

// fatal matches spec §7: a log-file write failure is fatal. Swallowing it
// here would silently break P4/P3's durability guarantee, so we exit
// rather than continue in a state we can no longer observe.
func (l *Log) fatal(err error) {
	l.log.Errorf("blockrelay.log write failed, exiting: %v", err)
	os.Exit(1)
}
