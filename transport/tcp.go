// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

const directReadTimeout = 10 * time.Second

// startDirectTCP binds the newline-delimited-JSON direct message
// listener on TCPDirectPort, modeled on the teacher's stratum server
// accept/handle split (spec.md §4.3).
func (t *Transport) startDirectTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.bindAddr(TCPDirectPort))
	if err != nil {
		return fmt.Errorf("transport: listen direct tcp %d: %w", TCPDirectPort, err)
	}
	t.directListener = ln

	t.wg.Add(1)
	go t.acceptDirect(ctx, ln)
	return nil
}

func (t *Transport) acceptDirect(ctx context.Context, ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				Log.Debugf("direct accept error: %v", err)
				continue
			}
		}
		t.wg.Add(1)
		go t.handleDirect(conn)
	}
}

// handleDirect reads a single newline-terminated JSON message per
// connection and dispatches it, then closes, matching the one-shot
// request/response shape of the wire protocol (spec.md §6).
func (t *Transport) handleDirect(conn net.Conn) {
	defer t.wg.Done()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(directReadTimeout))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		Log.Debugf("direct read error: %v", err)
		return
	}
	decodeAndDispatch(line, t.reg.dispatchDirect)
}

// SendDirect dials remoteIP on TCPDirectPort and writes a single
// newline-terminated message, then closes the connection.
func SendDirect(remoteIP string, msg *ddnswire.Message) error {
	data, err := marshalForWire(msg)
	if err != nil {
		return fmt.Errorf("transport: marshal direct message: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", remoteIP, TCPDirectPort)
	conn, err := net.DialTimeout("tcp", addr, directReadTimeout)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	data = append(data, '\n')
	conn.SetWriteDeadline(time.Now().Add(directReadTimeout))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("transport: write to %s: %w", addr, err)
	}
	return nil
}

// BroadcastRoles sends msg as a direct message to every IP in ips,
// continuing past individual dial/write failures and returning the
// first error encountered (if any) after attempting all of them. Used
// to fan a role-scoped message (e.g. PROMOTE_NODE) out to a known set
// of peers when UDP broadcast isn't selective enough (spec.md §4.5).
func BroadcastRoles(ips []string, msg *ddnswire.Message) error {
	var firstErr error
	for _, ip := range ips {
		if err := SendDirect(ip, msg); err != nil {
			Log.Warnf("direct send to %s failed: %v", ip, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
