// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensus implements the rotating-leader block-production
// engine of spec.md §4.8: a circular leader queue, a liveness-timeout
// failover controller, and the round tick that ties them to the
// mempool and ledger. Grounded on a round-robin proof-of-authority
// reference pattern from the retrieved examples' fault-tolerance and
// high-availability failover controllers, adapted from arbitrary shard
// leaders to dDNS peer nodes.
package consensus

import (
	"sync"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

// QueueNode is one entry in the leader rotation, per spec.md §3.
type QueueNode struct {
	NodeConfig ddnswire.NodeConfig
	Sno        int
}

// CircularQueue is the leader rotation described in spec.md §4.8:
// unique by NodeConfig, ordered by a monotone sequence number assigned
// at first insertion. Every method holds a single sync.Mutex, which is
// not reentrant: a method must not be called while the lock is held.
type CircularQueue struct {
	mu       sync.Mutex
	nodes    []QueueNode
	head     int
	nextSno  int
}

// NewCircularQueue returns an empty queue.
func NewCircularQueue() *CircularQueue {
	return &CircularQueue{}
}

// Insert adds n to the queue if not already present (by NodeConfig).
// The new entry is assigned the next monotone sequence number and
// placed immediately after any existing entry with sno == newSno-1, or
// appended if none exists — preserving join order across a lagging
// insert (spec.md §4.8).
func (q *CircularQueue) Insert(n ddnswire.NodeConfig) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.nodes {
		if existing.NodeConfig.Equal(n) {
			return
		}
	}

	sno := q.nextSno
	q.nextSno++
	entry := QueueNode{NodeConfig: n, Sno: sno}

	insertAt := len(q.nodes)
	for i, existing := range q.nodes {
		if existing.Sno == sno-1 {
			insertAt = i + 1
			break
		}
	}
	q.nodes = append(q.nodes, QueueNode{})
	copy(q.nodes[insertAt+1:], q.nodes[insertAt:])
	q.nodes[insertAt] = entry
}

// Remove deletes the entry matching n's NodeConfig, if present.
func (q *CircularQueue) Remove(n ddnswire.NodeConfig) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.nodes {
		if existing.NodeConfig.Equal(n) {
			q.nodes = append(q.nodes[:i], q.nodes[i+1:]...)
			if q.head > i {
				q.head--
			}
			q.head = normalizeHead(q.head, len(q.nodes))
			return
		}
	}
}

func normalizeHead(head, length int) int {
	if length == 0 {
		return 0
	}
	if head >= length {
		return head % length
	}
	return head
}

// Peek returns the current leader, if the queue is non-empty.
func (q *CircularQueue) Peek() (QueueNode, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.nodes) == 0 {
		return QueueNode{}, false
	}
	return q.nodes[q.head%len(q.nodes)], true
}

// Rotate advances the head pointer by one, modulo the queue size.
func (q *CircularQueue) Rotate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.nodes) == 0 {
		return
	}
	q.head = (q.head + 1) % len(q.nodes)
}

// Len returns the number of entries currently queued.
func (q *CircularQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.nodes)
}

// Snapshot returns a copy of the queue contents in rotation order
// starting at head, for tests and diagnostics.
func (q *CircularQueue) Snapshot() []QueueNode {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueNode, len(q.nodes))
	for i := range q.nodes {
		out[i] = q.nodes[(q.head+i)%len(q.nodes)]
	}
	return out
}

// ResetWith clears the queue and repopulates it from nodes, sorted by
// Sno, per spec.md §4.8's resetWith contract (used after a sync brings
// in a fresh membership set).
func (q *CircularQueue) ResetWith(nodes []QueueNode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sorted := make([]QueueNode, len(nodes))
	copy(sorted, nodes)
	insertionSortBySno(sorted)

	q.nodes = sorted
	q.head = 0
	maxSno := -1
	for _, n := range sorted {
		if n.Sno > maxSno {
			maxSno = n.Sno
		}
	}
	q.nextSno = maxSno + 1
}

func insertionSortBySno(nodes []QueueNode) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].Sno < nodes[j-1].Sno; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}
