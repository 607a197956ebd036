// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package applier

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/nodestore"
	"github.com/toole-brendan/ddnsnode/transport"
)

// Syncer brings a lagging or new node's ledger up to date by
// requesting and applying a block-database snapshot from a known peer,
// per spec.md §4.9.
type Syncer struct {
	store      *ledger.Store
	nodeStore  *nodestore.Store
	self       ddnswire.NodeConfig
	scratchDir string

	// Replace swaps the active ledger.Store after an import completes.
	// cmd/ddnsnode wires this to update every component holding a
	// *ledger.Store reference.
	Replace func(newStore *ledger.Store)
}

// NewSyncer constructs a Syncer for the given ledger/node stores.
func NewSyncer(store *ledger.Store, nodeStore *nodestore.Store, self ddnswire.NodeConfig, scratchDir string) *Syncer {
	return &Syncer{store: store, nodeStore: nodeStore, self: self, scratchDir: scratchDir}
}

// RequestSync sends a SYNC_REQUEST to peerIP, asking it to transmit its
// current block database snapshot, per spec.md §4.9.
func (sy *Syncer) RequestSync(peerIP string) error {
	msg, err := ddnswire.Encode(ddnswire.SyncRequest, sy.self.IP, sy.self.PublicKey, struct{}{})
	if err != nil {
		return fmt.Errorf("applier: encode sync request: %w", err)
	}
	if err := transport.SendDirect(peerIP, msg); err != nil {
		return fmt.Errorf("applier: send sync request to %s: %w", peerIP, err)
	}
	return nil
}

// RespondToSyncRequest exports the current ledger to a unique scratch
// file and transmits it to requesterIP via file transfer, per
// spec.md §4.3/§9 (unique scratch filenames, no races between
// concurrent syncs).
func (sy *Syncer) RespondToSyncRequest(requesterIP string) error {
	snapshotPath := filepath.Join(sy.scratchDir, fmt.Sprintf("snapshot-%s.zip", uuid.NewString()))
	if err := sy.store.Export(snapshotPath); err != nil {
		return fmt.Errorf("applier: export snapshot: %w", err)
	}
	defer os.Remove(snapshotPath)

	if err := transport.SendFile(requesterIP, snapshotPath); err != nil {
		return fmt.Errorf("applier: send snapshot to %s: %w", requesterIP, err)
	}

	ack, err := ddnswire.Encode(ddnswire.SyncResponse, sy.self.IP, sy.self.PublicKey, struct{}{})
	if err != nil {
		return fmt.Errorf("applier: encode sync ack: %w", err)
	}
	if err := transport.SendDirect(requesterIP, ack); err != nil {
		return fmt.Errorf("applier: send sync ack to %s: %w", requesterIP, err)
	}
	return nil
}

// ImportReceivedSnapshot replaces the local ledger with the snapshot at
// snapshotPath, written by the file-transfer listener, and notifies
// Replace with the freshly opened store so dependents pick it up.
func (sy *Syncer) ImportReceivedSnapshot(snapshotPath string) error {
	dbPath := sy.store.Path()
	if err := sy.store.Close(); err != nil {
		return fmt.Errorf("applier: close ledger before import: %w", err)
	}

	newStore, err := ledger.ImportSnapshot(snapshotPath, dbPath)
	if err != nil {
		return fmt.Errorf("applier: import snapshot %s: %w", snapshotPath, err)
	}
	defer os.Remove(snapshotPath)

	sy.store = newStore
	if sy.Replace != nil {
		sy.Replace(newStore)
	}
	return nil
}
