// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the hash-keyed pending transaction set of
// spec.md §4.8. It is grounded on the teacher's TxPool (originally in
// this same file) for its overall shape — a lock-guarded map plus a
// handful of query/mutate methods — stripped of UTXO orphan tracking,
// fee estimation, and replace-by-fee, none of which exist in this
// domain: transactions here carry no inputs/outputs to conflict over.
package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

// Pool is a concurrent set of verified, not-yet-included transactions,
// keyed by hash. All methods are safe for concurrent use.
type Pool struct {
	mu          sync.RWMutex
	txs         map[string]ledgertypes.Transaction
	lastUpdated time.Time
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{txs: make(map[string]ledgertypes.Transaction)}
}

// Add inserts tx, keyed by its hash. Re-inserting an existing hash is a
// no-op (spec.md §3: "mempool deduplication are by hash").
func (p *Pool) Add(tx ledgertypes.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.txs[tx.Hash]; exists {
		return
	}
	p.txs[tx.Hash] = tx
	p.lastUpdated = time.Now()
}

// Remove deletes a transaction by hash, if present.
func (p *Pool) Remove(hash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.txs, hash)
}

// RemoveMany deletes every transaction named in hashes. Used after a
// block is applied, to clear the transactions it included (spec.md
// §4.8).
func (p *Pool) RemoveMany(hashes []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		delete(p.txs, h)
	}
}

// Has reports whether hash is currently pending.
func (p *Pool) Has(hash string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.txs[hash]
	return ok
}

// Count returns the number of pending transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Snapshot returns every pending transaction, sorted by hash ascending
// so that block construction is deterministic across replicas building
// from the same mempool contents (spec.md §5/§9).
func (p *Pool) Snapshot() []ledgertypes.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ledgertypes.Transaction, 0, len(p.txs))
	for _, tx := range p.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// LastUpdated reports when the pool was last mutated by Add.
func (p *Pool) LastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdated
}
