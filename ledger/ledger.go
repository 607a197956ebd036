// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger implements the three logical tables of spec.md §4.7 —
// blocks, transactions, and the materialized DNS record set — as
// key-prefixed regions of a single embedded LevelDB database, the same
// pattern nodestore uses for config state and the teacher's blockchain
// package uses to layer extended chain state over a UTXO view.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

const (
	blockPrefix       = "block/"
	txPrefix          = "tx/"
	dnsPrefix         = "dns/"
	dnsByRDataPrefix  = "dnsrdata/"
	latestBlockHashKey = "meta/latestBlockHash"
)

// TxStatus records a transaction's position in the chain, exposed via
// Status for the HTTP façade's status(txHash) call (spec.md §6).
type TxStatus string

const (
	StatusPending  TxStatus = "PENDING"
	StatusIncluded TxStatus = "INCLUDED"
)

type storedTransaction struct {
	Tx        ledgertypes.Transaction `json:"tx"`
	BlockHash string                  `json:"blockHash"`
	Status    TxStatus                `json:"status"`
}

// Store persists the chain and the DNS table it replays into. Block
// insertion is append-only and keyed by hash; the DNS table is mutated
// record-by-record by the applier package.
type Store struct {
	mu   sync.Mutex
	db   *leveldb.DB
	path string
}

// Open opens (creating and seeding the genesis block if necessary) the
// ledger database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	s := &Store{db: db, path: path}

	if _, ok, err := s.GetLatestBlockHash(); err != nil {
		db.Close()
		return nil, err
	} else if !ok {
		genesis := ledgertypes.Genesis(0)
		if err := s.InsertBlock(genesis); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: seed genesis: %w", err)
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetLatestBlockHash returns the tip's hash. An empty store (before
// genesis seeding) reports ok=false; callers normally never observe
// this since Open seeds genesis immediately.
func (s *Store) GetLatestBlockHash() (string, bool, error) {
	v, err := s.db.Get([]byte(latestBlockHashKey), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: get latest block hash: %w", err)
	}
	return string(v), true, nil
}

// HasBlock reports whether a block with the given hash is already
// stored. InsertBlock makes the same check itself before writing.
func (s *Store) HasBlock(hash string) (bool, error) {
	ok, err := s.db.Has([]byte(blockPrefix+hash), nil)
	if err != nil {
		return false, fmt.Errorf("ledger: has block %s: %w", hash, err)
	}
	return ok, nil
}

// GetBlock returns the stored block with the given hash.
func (s *Store) GetBlock(hash string) (*ledgertypes.Block, bool, error) {
	raw, err := s.db.Get([]byte(blockPrefix+hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ledger: get block %s: %w", hash, err)
	}
	var b ledgertypes.Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, false, fmt.Errorf("ledger: unmarshal block %s: %w", hash, err)
	}
	return &b, true, nil
}

// InsertBlock appends b and its transactions, bumping the tip pointer.
// Duplicate insertion by hash is a no-op, matching the idempotent-reject
// contract of spec.md §4.8/§7.
func (s *Store) InsertBlock(b *ledgertypes.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Has([]byte(blockPrefix+b.Hash), nil)
	if err != nil {
		return fmt.Errorf("ledger: check existing block %s: %w", b.Hash, err)
	}
	if exists {
		return nil
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("ledger: marshal block %s: %w", b.Hash, err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(blockPrefix+b.Hash), raw)
	batch.Put([]byte(latestBlockHashKey), []byte(b.Hash))

	for i := range b.Transactions {
		tx := b.Transactions[i]
		st := storedTransaction{Tx: tx, BlockHash: b.Hash, Status: StatusIncluded}
		txRaw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("ledger: marshal tx %s: %w", tx.Hash, err)
		}
		batch.Put([]byte(txPrefix+tx.Hash), txRaw)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("ledger: write block %s: %w", b.Hash, err)
	}
	return nil
}

// GetTransaction returns a stored transaction and its chain status.
func (s *Store) GetTransaction(hash string) (*ledgertypes.Transaction, TxStatus, bool, error) {
	raw, err := s.db.Get([]byte(txPrefix+hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("ledger: get tx %s: %w", hash, err)
	}
	var st storedTransaction
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, "", false, fmt.Errorf("ledger: unmarshal tx %s: %w", hash, err)
	}
	return &st.Tx, st.Status, true, nil
}

// dnsKey returns the primary key for a DNS record, per spec.md §4.7's
// PRIMARY KEY(name,type,rdata).
func dnsKey(name string, recType ledgertypes.RecordType, rdata string) string {
	return fmt.Sprintf("%s%s|%d|%s", dnsPrefix, strings.ToLower(name), recType, rdata)
}

func rdataKey(rdata, name string, recType ledgertypes.RecordType) string {
	return fmt.Sprintf("%s%s|%s|%d", dnsByRDataPrefix, rdata, strings.ToLower(name), recType)
}

// GetDNSRecord returns the current record for (name,type,rdata), if any.
func (s *Store) GetDNSRecord(name string, recType ledgertypes.RecordType, rdata string) (*ledgertypes.DNSModel, bool, error) {
	raw, err := s.db.Get([]byte(dnsKey(name, recType, rdata)), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ledger: get dns record: %w", err)
	}
	var m ledgertypes.DNSModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("ledger: unmarshal dns record: %w", err)
	}
	return &m, true, nil
}

// PutDNSRecord stores or overwrites a record, maintaining the secondary
// rdata index used by reverse lookup.
func (s *Store) PutDNSRecord(m ledgertypes.DNSModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("ledger: marshal dns record: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte(dnsKey(m.Name, m.Type, m.RData)), raw)
	batch.Put([]byte(rdataKey(m.RData, m.Name, m.Type)), []byte(m.Name))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("ledger: write dns record: %w", err)
	}
	return nil
}

// DeleteDNSRecord removes a record and its rdata index entry.
func (s *Store) DeleteDNSRecord(m ledgertypes.DNSModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Delete([]byte(dnsKey(m.Name, m.Type, m.RData)))
	batch.Delete([]byte(rdataKey(m.RData, m.Name, m.Type)))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("ledger: delete dns record: %w", err)
	}
	return nil
}

// Lookup returns every record whose name matches, across all record
// types present, by scanning the name-prefixed key range.
func (s *Store) Lookup(name string) ([]ledgertypes.DNSModel, error) {
	prefix := dnsPrefix + strings.ToLower(name) + "|"
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var out []ledgertypes.DNSModel
	for iter.Next() {
		var m ledgertypes.DNSModel
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("ledger: iterate lookup %s: %w", name, err)
	}
	return out, nil
}

// Reverse returns every record whose rdata matches value, ordered by
// the rdata index key (lowercased name, then record type). The order is
// not insertion order.
func (s *Store) Reverse(value string) ([]ledgertypes.DNSModel, error) {
	prefix := dnsByRDataPrefix + value + "|"
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		names = append(names, string(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("ledger: iterate reverse %s: %w", value, err)
	}

	var out []ledgertypes.DNSModel
	for _, name := range names {
		records, err := s.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.RData == value {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// AllDNSRecords returns every record in the materialized table, sorted
// by natural key, for deterministic snapshot comparison in tests
// (spec.md §8: "their DNS tables are byte-equal after normalization").
func (s *Store) AllDNSRecords() ([]ledgertypes.DNSModel, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(dnsPrefix)), nil)
	defer iter.Release()

	var out []ledgertypes.DNSModel
	for iter.Next() {
		var m ledgertypes.DNSModel
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("ledger: iterate all dns records: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Path returns the on-disk location backing this store, used by
// Export/Import.
func (s *Store) Path() string {
	return s.path
}
