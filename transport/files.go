// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const fileTransferTimeout = 60 * time.Second

// startFileTCP binds the file-transfer listener on TCPFilePort. Each
// connection carries exactly one file framed as
// uint16(len(name)) ∥ name ∥ int64(size) ∥ bytes (spec.md §4.3/§6).
func (t *Transport) startFileTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.bindAddr(TCPFilePort))
	if err != nil {
		return fmt.Errorf("transport: listen file tcp %d: %w", TCPFilePort, err)
	}
	t.fileListener = ln

	t.wg.Add(1)
	go t.acceptFiles(ctx, ln)
	return nil
}

func (t *Transport) acceptFiles(ctx context.Context, ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				Log.Debugf("file accept error: %v", err)
				continue
			}
		}
		t.wg.Add(1)
		go t.handleFile(conn)
	}
}

func (t *Transport) handleFile(conn net.Conn) {
	defer t.wg.Done()
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(fileTransferTimeout))

	name, size, err := readFileHeader(conn)
	if err != nil {
		Log.Debugf("file header read error: %v", err)
		return
	}

	scratchName := fmt.Sprintf("%s.%s.part", uuid.NewString(), filepath.Base(name))
	scratchPath := filepath.Join(t.cfg.ScratchDir, scratchName)

	f, err := os.Create(scratchPath)
	if err != nil {
		Log.Errorf("file create %s: %v", scratchPath, err)
		return
	}
	if _, err := io.CopyN(f, conn, size); err != nil {
		f.Close()
		os.Remove(scratchPath)
		Log.Errorf("file copy %s: %v", scratchPath, err)
		return
	}
	if err := f.Close(); err != nil {
		os.Remove(scratchPath)
		Log.Errorf("file close %s: %v", scratchPath, err)
		return
	}

	finalPath := filepath.Join(t.cfg.ScratchDir, filepath.Base(name))
	if err := os.Rename(scratchPath, finalPath); err != nil {
		Log.Errorf("file rename %s -> %s: %v", scratchPath, finalPath, err)
		return
	}

	if t.OnFileReceived != nil {
		t.OnFileReceived(finalPath)
	}
}

func readFileHeader(conn net.Conn) (name string, size int64, err error) {
	var nameLen uint16
	if err = binary.Read(conn, binary.BigEndian, &nameLen); err != nil {
		return "", 0, fmt.Errorf("read name length: %w", err)
	}
	nameBuf := make([]byte, nameLen)
	if _, err = io.ReadFull(conn, nameBuf); err != nil {
		return "", 0, fmt.Errorf("read name: %w", err)
	}
	if err = binary.Read(conn, binary.BigEndian, &size); err != nil {
		return "", 0, fmt.Errorf("read size: %w", err)
	}
	if size < 0 {
		return "", 0, fmt.Errorf("negative file size %d", size)
	}
	return string(nameBuf), size, nil
}

// SendFile opens path and streams it to remoteIP on TCPFilePort using
// the same framing handleFile expects. Used by the ledger snapshot
// exporter when bringing a new or lagging node up to date (spec.md §9).
func SendFile(remoteIP string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("transport: stat %s: %w", path, err)
	}

	addr := fmt.Sprintf("%s:%d", remoteIP, TCPFilePort)
	conn, err := net.DialTimeout("tcp", addr, fileTransferTimeout)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(fileTransferTimeout))

	name := filepath.Base(path)
	if len(name) > 0xFFFF {
		return fmt.Errorf("transport: file name too long: %s", name)
	}
	if err := binary.Write(conn, binary.BigEndian, uint16(len(name))); err != nil {
		return fmt.Errorf("transport: write name length: %w", err)
	}
	if _, err := conn.Write([]byte(name)); err != nil {
		return fmt.Errorf("transport: write name: %w", err)
	}
	if err := binary.Write(conn, binary.BigEndian, info.Size()); err != nil {
		return fmt.Errorf("transport: write size: %w", err)
	}
	if _, err := io.Copy(conn, f); err != nil {
		return fmt.Errorf("transport: write file contents: %w", err)
	}
	return nil
}
