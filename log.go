// Copyright (c) 2024 The relaynode developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// subsystem tags, one btclog.Logger per logical area of the relay. All four
// loggers are registered and leveled by setLogLevels, but main passes only
// logRLAY to node.New, which hands that one logger to every component;
// PEER, POOL and RELP receive no output.
const (
	subsystemRelay   = "RLAY" // node package and, via node.New, every component
	subsystemPeer    = "PEER"
	subsystemPool    = "POOL"
	subsystemRelPeer = "RELP"
)

var (
	backendLog = btclog.NewBackend(logWriter{})

	logRLAY = backendLog.Logger(subsystemRelay)
	logPEER = backendLog.Logger(subsystemPeer)
	logPOOL = backendLog.Logger(subsystemPool)
	logRELP = backendLog.Logger(subsystemRelPeer)

	subsystemLoggers = map[string]btclog.Logger{
		subsystemRelay:   logRLAY,
		subsystemPeer:    logPEER,
		subsystemPool:    logPOOL,
		subsystemRelPeer: logRELP,
	}
)

// logWriter implements an io.Writer that outputs to both stdout and the
// rotating log file, matching the teacher's ambient logging idiom.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var logRotator *rotator.Rotator

// initLogRotator opens a rotating log file at logFile (10 MiB rolls, 3
// backups kept), matching the common btcsuite-daemon convention. It must
// be called before the loggers are used for output to reach disk.
func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("main: create log directory %s: %w", logDir, err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("main: initialize log rotation: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevels sets every subsystem logger to levelStr (e.g. "debug",
// "info", "warn").
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("main: unknown log level %q", levelStr)
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
	return nil
}
