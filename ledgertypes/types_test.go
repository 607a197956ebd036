// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledgertypes_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

func sampleTx() ledgertypes.Transaction {
	return ledgertypes.Transaction{
		SenderPublicKey: "pk-1",
		Type:            ledgertypes.Register,
		Payload: []ledgertypes.DNSModel{
			{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: "pk-1"},
		},
		Timestamp: 1000,
	}
}

func TestTransactionHashStableAcrossJSONRoundTrip(t *testing.T) {
	tx := sampleTx()
	require.NoError(t, tx.SetHash())
	original := tx.Hash

	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	var decoded ledgertypes.Transaction
	require.NoError(t, json.Unmarshal(raw, &decoded))

	recomputed, err := decoded.ComputeHash()
	require.NoError(t, err)
	require.Equal(t, original, recomputed)
}

func TestTransactionHashIndependentOfPayloadOrder(t *testing.T) {
	tx1 := sampleTx()
	tx1.Payload = []ledgertypes.DNSModel{
		{Name: "a.com", Type: ledgertypes.TypeA, TTL: 60, RData: "1.1.1.1", Owner: "pk-1"},
		{Name: "b.com", Type: ledgertypes.TypeA, TTL: 60, RData: "2.2.2.2", Owner: "pk-1"},
	}
	tx2 := tx1
	tx2.Payload = []ledgertypes.DNSModel{tx1.Payload[1], tx1.Payload[0]}

	h1, err := tx1.ComputeHash()
	require.NoError(t, err)
	h2, err := tx2.ComputeHash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestBlockHashStableAfterJSONRoundTrip(t *testing.T) {
	tx := sampleTx()
	require.NoError(t, tx.SetHash())

	block := &ledgertypes.Block{
		PreviousHash: ledgertypes.GenesisPreviousHash,
		Transactions: []ledgertypes.Transaction{tx},
		Timestamp:    2000,
	}
	block.SetHash()
	original := block.Hash

	raw, err := json.Marshal(block)
	require.NoError(t, err)
	var decoded ledgertypes.Block
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, original, decoded.ComputeHash())
}

func TestBlockHashDeterministicRegardlessOfTxInsertionOrder(t *testing.T) {
	tx1 := sampleTx()
	tx1.Timestamp = 1
	require.NoError(t, tx1.SetHash())

	tx2 := sampleTx()
	tx2.Timestamp = 2
	require.NoError(t, tx2.SetHash())

	b1 := &ledgertypes.Block{PreviousHash: ledgertypes.GenesisPreviousHash, Transactions: []ledgertypes.Transaction{tx1, tx2}, Timestamp: 5000}
	b2 := &ledgertypes.Block{PreviousHash: ledgertypes.GenesisPreviousHash, Transactions: []ledgertypes.Transaction{tx2, tx1}, Timestamp: 5000}
	b1.SetHash()
	b2.SetHash()
	require.Equal(t, b1.Hash, b2.Hash)
}

func TestGenesisBlock(t *testing.T) {
	g := ledgertypes.Genesis(0)
	require.Equal(t, ledgertypes.GenesisPreviousHash, g.PreviousHash)
	require.Empty(t, g.Transactions)
	require.Len(t, g.PreviousHash, 64)
}

func TestDNSModelKeyLowercasesName(t *testing.T) {
	m := ledgertypes.DNSModel{Name: "Example.COM", Type: ledgertypes.TypeA, RData: "1.2.3.4"}
	require.Equal(t, "example.com|1|1.2.3.4", m.Key())
}
