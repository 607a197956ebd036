// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package applier replays accepted blocks into the materialized DNS
// table (spec.md §4.9) and brings a lagging or new node up to date via
// snapshot sync. It is the only package that mutates ledger.Store's DNS
// rows; consensus and membership only ever append blocks or nodes.
package applier

import (
	"fmt"

	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/ledgertypes"
	"github.com/toole-brendan/ddnsnode/logs"
)

var log = logs.Applier

// ApplyBlock walks every transaction in b and applies its DNS record
// mutations to store, per the ownership invariants in spec.md §3.
// Record-level invariant violations are logged and that single record
// is skipped; the rest of the block — and the block itself — is never
// rejected because of them (spec.md §3/§9).
func ApplyBlock(store *ledger.Store, b *ledgertypes.Block) error {
	for i := range b.Transactions {
		tx := &b.Transactions[i]
		for _, record := range tx.Payload {
			if err := applyRecord(store, tx.Type, tx.SenderPublicKey, record); err != nil {
				log.Debugf("skipping record %s/%d/%s in tx %s: %v", record.Name, record.Type, record.RData, tx.Hash, err)
			}
		}
	}
	return nil
}

func applyRecord(store *ledger.Store, txType ledgertypes.TxType, sender string, record ledgertypes.DNSModel) error {
	existing, exists, err := store.GetDNSRecord(record.Name, record.Type, record.RData)
	if err != nil {
		return fmt.Errorf("load existing record: %w", err)
	}

	switch txType {
	case ledgertypes.Register:
		if exists {
			return fmt.Errorf("record already exists")
		}
		return store.PutDNSRecord(record)

	case ledgertypes.UpdateRecords:
		if !exists {
			return fmt.Errorf("record does not exist")
		}
		if existing.Owner != sender {
			return fmt.Errorf("owner mismatch: record owned by %s", existing.Owner)
		}
		return store.PutDNSRecord(record)

	case ledgertypes.DeleteRecords:
		if !exists {
			return fmt.Errorf("record does not exist")
		}
		if existing.Owner != sender {
			return fmt.Errorf("owner mismatch: record owned by %s", existing.Owner)
		}
		return store.DeleteDNSRecord(record)

	default:
		return fmt.Errorf("unknown transaction type %v", txType)
	}
}
