// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"
	"time"

	"github.com/toole-brendan/ddnsnode/applier"
	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/ledgertypes"
	"github.com/toole-brendan/ddnsnode/logs"
	"github.com/toole-brendan/ddnsnode/mempool"
	"github.com/toole-brendan/ddnsnode/transport"
)

var log = logs.Consensus

// Engine glues the mempool, leader queue, liveness controller, and
// ledger together into the round tick and message handlers of
// spec.md §4.8.
type Engine struct {
	self      ddnswire.NodeConfig
	selfKey   *keyid.PublicKey
	mempool   *mempool.Pool
	queue     *CircularQueue
	liveness  *LivenessController
	store     *ledger.Store
	transport *transport.Transport
}

// NewEngine constructs an Engine. selfKey is kept on the Engine;
// transaction verification, for this node's own transactions as for
// remote ones, uses each transaction's SenderPublicKey.
func NewEngine(self ddnswire.NodeConfig, selfKey *keyid.PublicKey, store *ledger.Store, tr *transport.Transport) *Engine {
	return &Engine{
		self:      self,
		selfKey:   selfKey,
		mempool:   mempool.New(),
		queue:     NewCircularQueue(),
		liveness:  NewLivenessController(time.Now()),
		store:     store,
		transport: tr,
	}
}

// Mempool exposes the underlying pool for read access (e.g. an HTTP
// façade reporting pending transaction counts).
func (e *Engine) Mempool() *mempool.Pool { return e.mempool }

// ReplaceStore swaps the ledger store the engine operates against,
// used after applier.Syncer imports a fresh snapshot (spec.md §4.9).
func (e *Engine) ReplaceStore(s *ledger.Store) {
	e.store = s
}

// Queue exposes the underlying leader queue.
func (e *Engine) Queue() *CircularQueue { return e.queue }

// EnrollSelf adds this node to the leader queue, called from
// applier.SetupNormalNode after a JOIN election accepts it.
func (e *Engine) EnrollSelf() {
	e.queue.Insert(e.self)
}

// PublishTransaction verifies and gossips tx, per spec.md §4.8. A
// transaction with an invalid signature is neither added to the mempool
// nor gossiped, and an error is returned to the caller.
func (e *Engine) PublishTransaction(tx ledgertypes.Transaction) error {
	if !verifyTransaction(tx) {
		log.Debugf("discarding transaction %s with invalid signature", tx.Hash)
		return fmt.Errorf("consensus: invalid transaction signature")
	}
	e.mempool.Add(tx)

	msg, err := ddnswire.Encode(ddnswire.TransactionPublish, e.self.IP, e.self.PublicKey, tx)
	if err != nil {
		return fmt.Errorf("consensus: encode transaction publish: %w", err)
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("consensus: marshal transaction publish: %w", err)
	}
	if err := e.transport.BroadcastUDP(data); err != nil {
		return fmt.Errorf("consensus: broadcast transaction: %w", err)
	}
	return nil
}

func verifyTransaction(tx ledgertypes.Transaction) bool {
	pk, err := keyid.DecodeKey(tx.SenderPublicKey)
	if err != nil {
		return false
	}
	hashBytes, err := hexDecodeHash(tx.Hash)
	if err != nil {
		return false
	}
	sig, err := base64DecodeSig(tx.Signature)
	if err != nil {
		return false
	}
	return keyid.VerifyHash(pk, hashBytes, sig)
}

// RunRound performs one periodic consensus tick, per spec.md §4.8/§5:
// check liveness, and if self is leader with a non-empty mempool,
// publish a block.
func (e *Engine) RunRound() {
	if e.liveness.ShouldSkip(time.Now(), e.mempool.Count() > 0) {
		e.queue.Rotate()
		e.liveness.ResetAt(time.Now())
	}

	leader, ok := e.queue.Peek()
	if !ok || !leader.NodeConfig.Equal(e.self) {
		return
	}
	if e.mempool.Count() == 0 {
		return
	}
	if err := e.PublishBlock(); err != nil {
		log.Errorf("publish block failed: %v", err)
	}
}

// PublishBlock builds a block from the current tip and mempool
// snapshot, broadcasts it, and applies it locally.
func (e *Engine) PublishBlock() error {
	tipHash, _, err := e.store.GetLatestBlockHash()
	if err != nil {
		return fmt.Errorf("consensus: get tip: %w", err)
	}

	txs := e.mempool.Snapshot()
	b := &ledgertypes.Block{
		PreviousHash: tipHash,
		Transactions: txs,
		Timestamp:    time.Now().Unix(),
	}
	b.SetHash()

	msg, err := ddnswire.Encode(ddnswire.BlockPublish, e.self.IP, e.self.PublicKey, b)
	if err != nil {
		return fmt.Errorf("consensus: encode block publish: %w", err)
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("consensus: marshal block publish: %w", err)
	}
	if err := e.transport.BroadcastUDP(data); err != nil {
		log.Warnf("broadcast block failed: %v", err)
	}

	return e.acceptBlock(b)
}

// OnBroadcast handles TRANSACTION_PUBLISH and BLOCK_PUBLISH gossip.
func (e *Engine) OnBroadcast(msg *ddnswire.Message) {
	switch msg.Type {
	case ddnswire.TransactionPublish:
		e.onTransactionPublish(msg)
	case ddnswire.BlockPublish:
		e.onBlockPublish(msg)
	}
}

// OnDirect is a no-op; consensus messages are broadcast-only.
func (e *Engine) OnDirect(*ddnswire.Message) {}

// OnMulticast is a no-op; consensus messages are broadcast-only.
func (e *Engine) OnMulticast(*ddnswire.Message) {}

func (e *Engine) onTransactionPublish(msg *ddnswire.Message) {
	var tx ledgertypes.Transaction
	if err := msg.DecodePayload(&tx); err != nil {
		log.Debugf("malformed TRANSACTION_PUBLISH: %v", err)
		return
	}
	if !verifyTransaction(tx) {
		log.Debugf("discarding remote transaction %s with invalid signature", tx.Hash)
		return
	}
	e.mempool.Add(tx)
}

func (e *Engine) onBlockPublish(msg *ddnswire.Message) {
	var b ledgertypes.Block
	if err := msg.DecodePayload(&b); err != nil {
		log.Debugf("malformed BLOCK_PUBLISH: %v", err)
		return
	}

	tipHash, _, err := e.store.GetLatestBlockHash()
	if err != nil {
		log.Errorf("get tip before accepting block: %v", err)
		return
	}
	if b.PreviousHash != tipHash {
		log.Debugf("rejecting block %s: previousHash %s != tip %s", b.Hash, b.PreviousHash, tipHash)
		return
	}

	if err := e.acceptBlock(&b); err != nil {
		log.Errorf("accept remote block %s: %v", b.Hash, err)
	}
}

// acceptBlock inserts b (idempotently), applies it into the DNS table,
// clears its transactions from the mempool, rotates the leader queue,
// and resets the liveness timer, per spec.md §4.8.
func (e *Engine) acceptBlock(b *ledgertypes.Block) error {
	if err := e.store.InsertBlock(b); err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	if err := applier.ApplyBlock(e.store, b); err != nil {
		return fmt.Errorf("apply block: %w", err)
	}

	hashes := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash
	}
	e.mempool.RemoveMany(hashes)

	e.queue.Rotate()
	e.liveness.ResetAt(time.Now())
	return nil
}
