// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

func nc(pub string) ddnswire.NodeConfig {
	return ddnswire.NodeConfig{IP: "127.0.0.1", PublicKey: pub}
}

func TestInsertRejectsDuplicates(t *testing.T) {
	q := NewCircularQueue()
	q.Insert(nc("a"))
	q.Insert(nc("a"))
	assert.Equal(t, 1, q.Len())
}

func TestRotateAdvancesLeaderAndWraps(t *testing.T) {
	q := NewCircularQueue()
	q.Insert(nc("a"))
	q.Insert(nc("b"))
	q.Insert(nc("c"))

	leader, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, "a", leader.NodeConfig.PublicKey)

	q.Rotate()
	leader, _ = q.Peek()
	assert.Equal(t, "b", leader.NodeConfig.PublicKey)

	q.Rotate()
	q.Rotate()
	leader, _ = q.Peek()
	assert.Equal(t, "a", leader.NodeConfig.PublicKey, "rotation must wrap around")
}

func TestRemoveKeepsRotationConsistent(t *testing.T) {
	q := NewCircularQueue()
	q.Insert(nc("a"))
	q.Insert(nc("b"))
	q.Insert(nc("c"))
	q.Rotate() // head now at "b"

	q.Remove(nc("a"))

	leader, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, "b", leader.NodeConfig.PublicKey, "removing an entry before head must not shift the current leader")
}

func TestPeekOnEmptyQueue(t *testing.T) {
	q := NewCircularQueue()
	_, ok := q.Peek()
	assert.False(t, ok)
}

func TestResetWithSortsBySno(t *testing.T) {
	q := NewCircularQueue()
	q.ResetWith([]QueueNode{
		{NodeConfig: nc("c"), Sno: 2},
		{NodeConfig: nc("a"), Sno: 0},
		{NodeConfig: nc("b"), Sno: 1},
	})

	snap := q.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].NodeConfig.PublicKey, snap[1].NodeConfig.PublicKey, snap[2].NodeConfig.PublicKey})
}
