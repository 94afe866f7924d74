// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package trustedpeer

import (
	"time"

	"github.com/lightninglabs/gozmq"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// zmqPollInterval bounds how long a single Receive call blocks, so a
// watcher can notice Stop promptly.
const zmqPollInterval = 20 * time.Second

const (
	topicHashBlock = "hashblock"
	topicHashTx    = "hashtx"
)

// zmqWatch subscribes to a trusted validator's own hashblock/hashtx ZMQ
// publisher, a best-effort secondary acceptance channel alongside the
// primary inbound P2P session (SPEC_FULL.md §4 C5 addition). gozmq only
// exposes a SUB client, so this never publishes anything of our own.
type zmqWatch struct {
	conn *gozmq.Conn

	onBlock func(hash chainhash.Hash)
	onTx    func(hash chainhash.Hash)

	log logger

	stop chan struct{}
}

// startZMQWatch dials endpoint and begins the subscriber loop on its own
// goroutine. A dial failure is logged at debug level and is otherwise
// inert: the dual P2P sessions are the only required acceptance path.
func startZMQWatch(endpoint string, onBlock, onTx func(hash chainhash.Hash), log logger) *zmqWatch {
	if endpoint == "" {
		return nil
	}

	conn, err := gozmq.NewConn(endpoint, zmqPollInterval)
	if err != nil {
		log.Debugf("trustedpeer: zmq dial %s failed: %v", endpoint, err)
		return nil
	}
	if err := conn.Subscribe(topicHashBlock); err != nil {
		log.Debugf("trustedpeer: zmq subscribe hashblock on %s failed: %v", endpoint, err)
	}
	if err := conn.Subscribe(topicHashTx); err != nil {
		log.Debugf("trustedpeer: zmq subscribe hashtx on %s failed: %v", endpoint, err)
	}

	w := &zmqWatch{conn: conn, onBlock: onBlock, onTx: onTx, log: log, stop: make(chan struct{})}
	go w.run()
	return w
}

func (w *zmqWatch) run() {
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		parts, err := w.conn.Receive()
		if err != nil {
			// Poll timeout or transient read error: just retry: this
			// channel is best-effort and never the sole acceptance
			// signal for a validator.
			continue
		}
		if len(parts) < 2 {
			continue
		}

		var hash chainhash.Hash
		if err := hash.SetBytes(reverseBytes(parts[1])); err != nil {
			continue
		}

		switch string(parts[0]) {
		case topicHashBlock:
			w.onBlock(hash)
		case topicHashTx:
			w.onTx(hash)
		}
	}
}

func (w *zmqWatch) Stop() {
	close(w.stop)
	w.conn.Close()
}

// reverseBytes copies and byte-reverses b: ZMQ hash topics carry
// natural-byte-order hashes, the opposite of chainhash's internal order.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
