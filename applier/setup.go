// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package applier

import (
	"fmt"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/transport"
)

// SetupNormalNode is invoked after a JOIN election resolves to
// ACCEPTED (spec.md §4.6/§4.9): it enrolls self into the leader queue
// and starts the consensus scheduler. The actual queue/scheduler are
// owned by the consensus package; this function is satisfied by a
// caller-supplied callback so applier stays free of a dependency on
// consensus (which itself depends on applier to apply blocks).
func SetupNormalNode(enroll func(), startScheduler func()) {
	if enroll != nil {
		enroll()
	}
	if startScheduler != nil {
		startScheduler()
	}
}

// CreatePromoteRequest broadcasts a PROMOTE_NODE message for self after
// a PROMOTE election resolves to ACCEPTED.
func CreatePromoteRequest(tr *transport.Transport, self ddnswire.NodeConfig) error {
	msg, err := ddnswire.Encode(ddnswire.PromoteNode, self.IP, self.PublicKey, ddnswire.NodePayload{Node: self})
	if err != nil {
		return fmt.Errorf("applier: encode promote request: %w", err)
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("applier: marshal promote request: %w", err)
	}
	if err := tr.BroadcastUDP(data); err != nil {
		return fmt.Errorf("applier: broadcast promote request: %w", err)
	}
	return nil
}

// RebuildDNSFromBlocks replays every block from genesis through tip, in
// chain order, into a freshly imported store's DNS table — used after
// Sync to re-derive DNS state deterministically (spec.md §4.9).
func RebuildDNSFromBlocks(store *ledger.Store) error {
	hash, ok, err := store.GetLatestBlockHash()
	if err != nil {
		return fmt.Errorf("applier: get tip for rebuild: %w", err)
	}
	if !ok {
		return nil
	}

	var chain []string
	for hash != "" {
		b, found, err := store.GetBlock(hash)
		if err != nil {
			return fmt.Errorf("applier: load block %s: %w", hash, err)
		}
		if !found {
			break
		}
		chain = append(chain, hash)
		if isGenesisHash(b.PreviousHash) {
			break
		}
		hash = b.PreviousHash
	}

	for i := len(chain) - 1; i >= 0; i-- {
		b, _, err := store.GetBlock(chain[i])
		if err != nil {
			return fmt.Errorf("applier: reload block %s: %w", chain[i], err)
		}
		if err := ApplyBlock(store, b); err != nil {
			return fmt.Errorf("applier: apply block %s: %w", chain[i], err)
		}
	}
	return nil
}

func isGenesisHash(prevHash string) bool {
	for _, c := range prevHash {
		if c != '0' {
			return false
		}
	}
	return true
}
