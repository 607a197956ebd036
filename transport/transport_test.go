// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

type recordingHandler struct {
	mu        sync.Mutex
	broadcast []*ddnswire.Message
	direct    []*ddnswire.Message
	multicast []*ddnswire.Message
}

func (h *recordingHandler) OnBroadcast(msg *ddnswire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast = append(h.broadcast, msg)
}

func (h *recordingHandler) OnDirect(msg *ddnswire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.direct = append(h.direct, msg)
}

func (h *recordingHandler) OnMulticast(msg *ddnswire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.multicast = append(h.multicast, msg)
}

func (h *recordingHandler) directCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.direct)
}

func TestRegistryPanicIsolation(t *testing.T) {
	var reg registry
	called := false
	reg.Register(panicHandler{})
	reg.Register(funcHandler{onDirect: func(*ddnswire.Message) { called = true }})

	assert.NotPanics(t, func() {
		reg.dispatchDirect(&ddnswire.Message{})
	})
	assert.True(t, called, "second handler must still run after the first panics")
}

type panicHandler struct{}

func (panicHandler) OnBroadcast(*ddnswire.Message) { panic("boom") }
func (panicHandler) OnDirect(*ddnswire.Message)    { panic("boom") }
func (panicHandler) OnMulticast(*ddnswire.Message) { panic("boom") }

type funcHandler struct {
	onDirect func(*ddnswire.Message)
}

func (f funcHandler) OnBroadcast(*ddnswire.Message) {}
func (f funcHandler) OnDirect(msg *ddnswire.Message) {
	if f.onDirect != nil {
		f.onDirect(msg)
	}
}
func (f funcHandler) OnMulticast(*ddnswire.Message) {}

func TestDirectMessageRoundTrip(t *testing.T) {
	tr := New(Config{BindIP: "127.0.0.1", ScratchDir: t.TempDir()})
	h := &recordingHandler{}
	tr.Register(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	msg, err := ddnswire.Encode(ddnswire.FetchNodes, "127.0.0.1", "pubkey", struct{}{})
	require.NoError(t, err)

	require.NoError(t, SendDirect("127.0.0.1", msg))

	require.Eventually(t, func() bool { return h.directCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestFileTransferRoundTrip(t *testing.T) {
	scratch := t.TempDir()
	tr := New(Config{BindIP: "127.0.0.1", ScratchDir: scratch})

	received := make(chan string, 1)
	tr.OnFileReceived = func(path string) { received <- path }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "snapshot.bin")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello ledger snapshot"), 0o644))

	require.NoError(t, SendFile("127.0.0.1", srcPath))

	select {
	case path := <-received:
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello ledger snapshot", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for file transfer")
	}
}
