// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs wires up the node's subsystem loggers on top of
// btcsuite's btclog, the way the teacher repo's own daemon log.go does,
// with github.com/jrick/logrotate handling on-disk rotation for
// cmd/ddnsnode.
package logs

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
)

// backendLog is the shared backend every subsystem logger writes
// through. Defaults to stdout until SetWriter redirects it to a
// rotating file.
var backendLog = btclog.NewBackend(os.Stdout)

// Subsystem loggers, one per package that needs logging. Mirrors the
// btcsuite convention of a single log.go declaring a logger per
// subsystem tag and wiring it into every package via SetLogger-style
// calls at process start.
var (
	Transport  = backendLog.Logger("XPRT")
	Membership = backendLog.Logger("MEMB")
	Election   = backendLog.Logger("ELEC")
	Ledger     = backendLog.Logger("LEDG")
	Mempool    = backendLog.Logger("MPOL")
	Consensus  = backendLog.Logger("CONS")
	Applier    = backendLog.Logger("APPL")
	Node       = backendLog.Logger("NODE")
)

var allLoggers = map[string]btclog.Logger{
	"XPRT": Transport,
	"MEMB": Membership,
	"ELEC": Election,
	"LEDG": Ledger,
	"MPOL": Mempool,
	"CONS": Consensus,
	"APPL": Applier,
	"NODE": Node,
}

// SetLevel sets the logging level for every subsystem logger.
func SetLevel(level btclog.Level) {
	for _, l := range allLoggers {
		l.SetLevel(level)
	}
}

// SetWriter redirects every subsystem logger's backend to w. Used by
// cmd/ddnsnode to point logging at a logrotate.Rotator.
func SetWriter(w io.Writer) {
	backendLog = btclog.NewBackend(w)
	Transport = backendLog.Logger("XPRT")
	Membership = backendLog.Logger("MEMB")
	Election = backendLog.Logger("ELEC")
	Ledger = backendLog.Logger("LEDG")
	Mempool = backendLog.Logger("MPOL")
	Consensus = backendLog.Logger("CONS")
	Applier = backendLog.Logger("APPL")
	Node = backendLog.Logger("NODE")
	allLoggers = map[string]btclog.Logger{
		"XPRT": Transport, "MEMB": Membership, "ELEC": Election,
		"LEDG": Ledger, "MPOL": Mempool, "CONS": Consensus,
		"APPL": Applier, "NODE": Node,
	}
}
