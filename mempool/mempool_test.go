// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

func TestAddIsIdempotentByHash(t *testing.T) {
	p := New()
	tx := ledgertypes.Transaction{Hash: "abc", SenderPublicKey: "pk"}
	p.Add(tx)
	p.Add(tx)
	assert.Equal(t, 1, p.Count())
}

func TestSnapshotIsSortedByHash(t *testing.T) {
	p := New()
	p.Add(ledgertypes.Transaction{Hash: "zzz"})
	p.Add(ledgertypes.Transaction{Hash: "aaa"})
	p.Add(ledgertypes.Transaction{Hash: "mmm"})

	snap := p.Snapshot()
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, []string{snap[0].Hash, snap[1].Hash, snap[2].Hash})
}

func TestRemoveManyClearsIncludedTransactions(t *testing.T) {
	p := New()
	p.Add(ledgertypes.Transaction{Hash: "a"})
	p.Add(ledgertypes.Transaction{Hash: "b"})
	p.Add(ledgertypes.Transaction{Hash: "c"})

	p.RemoveMany([]string{"a", "c", "does-not-exist"})

	assert.False(t, p.Has("a"))
	assert.True(t, p.Has("b"))
	assert.False(t, p.Has("c"))
	assert.Equal(t, 1, p.Count())
}
