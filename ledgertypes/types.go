// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledgertypes defines the transaction, DNS record, and block
// shapes shared by the mempool, ledger, consensus, and applier packages,
// along with their canonical hashing rules (spec.md §3).
package ledgertypes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TxType enumerates the three transaction kinds a dDNS node can submit.
type TxType int

const (
	Register TxType = iota
	UpdateRecords
	DeleteRecords
)

var txTypeNames = []string{"REGISTER", "UPDATE_RECORDS", "DELETE_RECORDS"}

func (t TxType) String() string {
	if int(t) < 0 || int(t) >= len(txTypeNames) {
		return fmt.Sprintf("TxType(%d)", int(t))
	}
	return txTypeNames[t]
}

func (t TxType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TxType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range txTypeNames {
		if n == name {
			*t = TxType(i)
			return nil
		}
	}
	return fmt.Errorf("ledgertypes: unknown transaction type %q", name)
}

// RecordType is the RFC 1035 subset supported by the DNS table
// (spec.md §6): A, NS, CNAME, SOA, PTR, MX, TXT, AAAA.
type RecordType int

const (
	TypeA     RecordType = 1
	TypeNS    RecordType = 2
	TypeCNAME RecordType = 5
	TypeSOA   RecordType = 6
	TypePTR   RecordType = 12
	TypeMX    RecordType = 15
	TypeTXT   RecordType = 16
	TypeAAAA  RecordType = 28
)

// SupportedRecordTypes enumerates the only record types the table
// accepts.
var SupportedRecordTypes = map[RecordType]bool{
	TypeA: true, TypeNS: true, TypeCNAME: true, TypeSOA: true,
	TypePTR: true, TypeMX: true, TypeTXT: true, TypeAAAA: true,
}

// DNSModel is a single DNS resource record owned by the public key that
// created it. Natural key: (Name, Type, RData).
type DNSModel struct {
	Name            string     `json:"name"`
	Type            RecordType `json:"type"`
	TTL             int64      `json:"ttl"`
	RData           string     `json:"rdata"`
	Owner           string     `json:"owner"`
	TransactionHash string     `json:"transactionHash"`
}

// Key returns the natural key used for lookups and uniqueness checks.
func (d DNSModel) Key() string {
	return fmt.Sprintf("%s|%d|%s", strings.ToLower(d.Name), d.Type, d.RData)
}

// Transaction is a signed, hashed batch of DNS record operations
// submitted by a single owner.
type Transaction struct {
	SenderPublicKey string     `json:"senderPublicKey"`
	Type            TxType     `json:"type"`
	Payload         []DNSModel `json:"payload"`
	Timestamp       int64      `json:"timestamp"`
	Hash            string     `json:"hash"`
	Signature       string     `json:"signature"`
}

// canonicalPayload returns the payload re-marshaled with map-key-free,
// deterministic field order (Go's encoding/json already emits struct
// fields in declaration order, so this is stable across processes) after
// sorting entries by their natural key, so that two transactions built
// from the same record set hash identically regardless of slice order.
func canonicalPayload(payload []DNSModel) (string, error) {
	sorted := make([]DNSModel, len(payload))
	copy(sorted, payload)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })
	raw, err := json.Marshal(sorted)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ComputeHash returns the SHA-256 hex digest of
// senderPublicKey ∥ type ∥ sortedPayloadJson ∥ timestamp, per spec.md
// §3/§4.1.
func (t *Transaction) ComputeHash() (string, error) {
	payloadJSON, err := canonicalPayload(t.Payload)
	if err != nil {
		return "", fmt.Errorf("ledgertypes: canonicalize payload: %w", err)
	}
	buf := strings.Builder{}
	buf.WriteString(t.SenderPublicKey)
	buf.WriteString(t.Type.String())
	buf.WriteString(payloadJSON)
	fmt.Fprintf(&buf, "%d", t.Timestamp)
	sum := sha256.Sum256([]byte(buf.String()))
	return hex.EncodeToString(sum[:]), nil
}

// SetHash recomputes and stores the transaction's hash.
func (t *Transaction) SetHash() error {
	h, err := t.ComputeHash()
	if err != nil {
		return err
	}
	t.Hash = h
	return nil
}

// hashHexWidth is the width in hex characters of a SHA-256 digest.
const hashHexWidth = sha256.Size * 2

// GenesisPreviousHash is the sentinel previous-hash value for the first
// block in the chain: 64 '0' characters, matching a SHA-256 hex digest's
// width (spec.md §3).
var GenesisPreviousHash = strings.Repeat("0", hashHexWidth)

// Block groups an ordered set of transactions under a parent hash.
type Block struct {
	PreviousHash string        `json:"previousHash"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	Hash         string        `json:"hash"`
}

// SortTransactions orders transactions by hash ascending in place, so
// that replicas which observe the same transaction set before sealing a
// block always compute the same block hash, resolving the ambiguity
// noted in spec.md §9.
func SortTransactions(txs []Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].Hash < txs[j].Hash })
}

// ComputeHash returns the SHA-256 hex digest of
// previousHash ∥ deterministic tx-hash concatenation ∥ timestamp.
func (b *Block) ComputeHash() string {
	buf := strings.Builder{}
	buf.WriteString(b.PreviousHash)
	for _, tx := range b.Transactions {
		buf.WriteString(tx.Hash)
	}
	fmt.Fprintf(&buf, "%d", b.Timestamp)
	sum := sha256.Sum256([]byte(buf.String()))
	return hex.EncodeToString(sum[:])
}

// SetHash sorts the block's transactions deterministically and stores
// its computed hash.
func (b *Block) SetHash() {
	SortTransactions(b.Transactions)
	b.Hash = b.ComputeHash()
}

// Genesis returns the canonical empty genesis block.
func Genesis(timestamp int64) *Block {
	b := &Block{
		PreviousHash: GenesisPreviousHash,
		Transactions: nil,
		Timestamp:    timestamp,
	}
	b.SetHash()
	return b
}
