// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transport implements the node's three concurrent listeners
// (spec.md §4.3): UDP broadcast+multicast on port 6969, TCP direct
// messages on port 6970, and TCP file transfer on port 6971, plus the
// copy-on-write handler registry every other subsystem plugs into.
package transport

import (
	"sync"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/logs"
)

// Log is the transport subsystem's logger.
var Log = logs.Transport

// Handler is implemented by any subsystem that wants to observe inbound
// wire messages. Dispatch happens synchronously on the listener's
// goroutine, so implementations must be fast or hand work off to their
// own goroutine (spec.md §4.3).
type Handler interface {
	OnBroadcast(msg *ddnswire.Message)
	OnDirect(msg *ddnswire.Message)
	OnMulticast(msg *ddnswire.Message)
}

// registry is a copy-on-write handler list: registration is rare,
// dispatch is frequent and must not block on a writer, matching
// spec.md §4.3 and §5.
type registry struct {
	mu       sync.Mutex
	handlers []Handler
}

// Register adds h to the registry.
func (r *registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]Handler, len(r.handlers), len(r.handlers)+1)
	copy(next, r.handlers)
	r.handlers = append(next, h)
}

// snapshot returns the current handler slice without holding the lock
// during dispatch.
func (r *registry) snapshot() []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers
}

func (r *registry) dispatchBroadcast(msg *ddnswire.Message) {
	for _, h := range r.snapshot() {
		safeCall(func() { h.OnBroadcast(msg) })
	}
}

func (r *registry) dispatchDirect(msg *ddnswire.Message) {
	for _, h := range r.snapshot() {
		safeCall(func() { h.OnDirect(msg) })
	}
}

func (r *registry) dispatchMulticast(msg *ddnswire.Message) {
	for _, h := range r.snapshot() {
		safeCall(func() { h.OnMulticast(msg) })
	}
}

// safeCall recovers from a handler panic so one misbehaving handler
// can't take down a listener goroutine, matching the "wire handlers
// never throw across listeners" propagation policy (spec.md §7).
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Log.Errorf("handler panic recovered: %v", r)
		}
	}()
	fn()
}
