// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

// Well-known ports and the multicast group, per spec.md §4.3/§6.
const (
	UDPPort          = 6969
	TCPDirectPort    = 6970
	TCPFilePort      = 6971
	MulticastGroupIP = "230.0.0.1"
)

// Config controls which addresses the listeners bind to and where
// received files are written.
type Config struct {
	// BindIP is the local address the listeners bind to. Empty means
	// all interfaces.
	BindIP string
	// ScratchDir is where incoming file transfers are written before
	// Sync is triggered (spec.md §4.3/§9).
	ScratchDir string
}

// Transport owns the three listeners and the shared handler registry.
type Transport struct {
	cfg Config
	reg registry

	udpConn   *net.UDPConn
	udpPacket *ipv4.PacketConn

	directListener net.Listener
	fileListener   net.Listener

	// OnFileReceived is invoked after a file transfer completes, with
	// the path it was written to. Wired by cmd/ddnsnode to the
	// applier's Sync entry point (spec.md §4.3: "Sync is triggered").
	OnFileReceived func(path string)

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Transport. Call Start to begin listening.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

// Register adds a handler that will receive every dispatched message.
func (t *Transport) Register(h Handler) {
	t.reg.Register(h)
}

// Start binds all three listeners and begins serving. It returns once
// the listeners are bound; serving continues on background goroutines
// until Stop is called.
func (t *Transport) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if err := t.startUDP(ctx); err != nil {
		cancel()
		return err
	}
	if err := t.startDirectTCP(ctx); err != nil {
		cancel()
		return err
	}
	if err := t.startFileTCP(ctx); err != nil {
		cancel()
		return err
	}
	return nil
}

// Stop tears down every listener and waits for in-flight handlers to
// return.
func (t *Transport) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.udpConn != nil {
		t.udpConn.Close()
	}
	if t.directListener != nil {
		t.directListener.Close()
	}
	if t.fileListener != nil {
		t.fileListener.Close()
	}
	t.wg.Wait()
}

func (t *Transport) bindAddr(port int) string {
	return fmt.Sprintf("%s:%d", t.cfg.BindIP, port)
}

// decodeAndDispatch parses a raw wire message and hands it to dispatch;
// malformed input is logged and dropped, never propagated, per the
// error-handling policy in spec.md §7.
func decodeAndDispatch(data []byte, dispatch func(*ddnswire.Message)) {
	msg, err := ddnswire.Unmarshal(data)
	if err != nil {
		Log.Debugf("dropping malformed message: %v", err)
		return
	}
	dispatch(msg)
}
