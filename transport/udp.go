// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

const maxUDPDatagram = 64 * 1024

// startUDP binds a single UDP socket on UDPPort, joins the multicast
// group, and dispatches each datagram to either OnBroadcast or
// OnMulticast depending on whether it was addressed to the multicast
// group, per spec.md §4.3.
func (t *Transport) startUDP(ctx context.Context) error {
	laddr := &net.UDPAddr{IP: net.ParseIP(t.cfg.BindIP), Port: UDPPort}
	if t.cfg.BindIP == "" {
		laddr.IP = net.IPv4zero
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return fmt.Errorf("transport: listen udp %d: %w", UDPPort, err)
	}
	if err := setBroadcastAndReuse(conn); err != nil {
		Log.Warnf("socket option setup failed: %v", err)
	}

	pc := ipv4.NewPacketConn(conn)
	group := net.ParseIP(MulticastGroupIP)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
		conn.Close()
		return fmt.Errorf("transport: join multicast group %s: %w", MulticastGroupIP, err)
	}
	if err := pc.SetControlMessage(ipv4.FlagDst, true); err != nil {
		conn.Close()
		return fmt.Errorf("transport: enable dst control messages: %w", err)
	}

	t.udpConn = conn
	t.udpPacket = pc

	t.wg.Add(1)
	go t.udpLoop(ctx, pc)
	return nil
}

func (t *Transport) udpLoop(ctx context.Context, pc *ipv4.PacketConn) {
	defer t.wg.Done()
	buf := make([]byte, maxUDPDatagram)
	for {
		n, cm, _, err := pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				Log.Debugf("udp read error: %v", err)
				continue
			}
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		isMulticast := cm != nil && cm.Dst != nil && cm.Dst.IsMulticast()
		if isMulticast {
			decodeAndDispatch(data, t.reg.dispatchMulticast)
		} else {
			decodeAndDispatch(data, t.reg.dispatchBroadcast)
		}
	}
}

// setBroadcastAndReuse enables SO_BROADCAST (required on most platforms
// to send to a broadcast address) and SO_REUSEADDR (so several node
// instances can share a host during integration tests), using
// golang.org/x/sys/unix against the connection's raw file descriptor.
func setBroadcastAndReuse(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			sockErr = e
			return
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

// BroadcastUDP sends data to the local broadcast address on UDPPort.
func (t *Transport) BroadcastUDP(data []byte) error {
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: UDPPort}
	if _, err := t.udpPacket.WriteTo(data, nil, dst); err != nil {
		return fmt.Errorf("transport: broadcast udp: %w", err)
	}
	return nil
}

// Multicast sends data to the multicast group on UDPPort.
func (t *Transport) Multicast(data []byte) error {
	dst := &net.UDPAddr{IP: net.ParseIP(MulticastGroupIP), Port: UDPPort}
	if _, err := t.udpPacket.WriteTo(data, nil, dst); err != nil {
		return fmt.Errorf("transport: multicast: %w", err)
	}
	return nil
}

// marshalForWire is a small helper so callers can pass a *ddnswire.Message
// directly to the Broadcast*/SendDirect family.
func marshalForWire(msg *ddnswire.Message) ([]byte, error) {
	return msg.Marshal()
}
