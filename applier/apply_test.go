// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package applier

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

func openTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestApplyBlockRegisterThenSkipDuplicateRegister(t *testing.T) {
	s := openTestLedger(t)
	rec := ledgertypes.DNSModel{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: "owner-a"}

	b1 := &ledgertypes.Block{Transactions: []ledgertypes.Transaction{
		{SenderPublicKey: "owner-a", Type: ledgertypes.Register, Payload: []ledgertypes.DNSModel{rec}, Hash: "tx1"},
	}}
	require.NoError(t, ApplyBlock(s, b1))

	got, ok, err := s.GetDNSRecord("example.com", ledgertypes.TypeA, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "owner-a", got.Owner)

	// A second REGISTER of the same natural key must be skipped, not
	// overwrite the existing record.
	rec2 := rec
	rec2.Owner = "owner-b"
	b2 := &ledgertypes.Block{Transactions: []ledgertypes.Transaction{
		{SenderPublicKey: "owner-b", Type: ledgertypes.Register, Payload: []ledgertypes.DNSModel{rec2}, Hash: "tx2"},
	}}
	require.NoError(t, ApplyBlock(s, b2))

	got, ok, err = s.GetDNSRecord("example.com", ledgertypes.TypeA, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "owner-a", got.Owner, "duplicate register must not overwrite the original owner")
}

func TestApplyBlockUpdateByNonOwnerIsSkipped(t *testing.T) {
	s := openTestLedger(t)
	rec := ledgertypes.DNSModel{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: "owner-a"}
	require.NoError(t, s.PutDNSRecord(rec))

	updated := rec
	updated.TTL = 600
	b := &ledgertypes.Block{Transactions: []ledgertypes.Transaction{
		{SenderPublicKey: "owner-b", Type: ledgertypes.UpdateRecords, Payload: []ledgertypes.DNSModel{updated}, Hash: "tx3"},
	}}
	require.NoError(t, ApplyBlock(s, b))

	// The update names the existing (name,type,rdata), so only the owner
	// check can stop it: the original record must be untouched.
	got, ok, err := s.GetDNSRecord("example.com", ledgertypes.TypeA, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "owner-a", got.Owner)
	assert.Equal(t, int64(300), got.TTL, "non-owner update must not change the record")
}

func TestApplyBlockSkipsOneRecordButAppliesNeighbors(t *testing.T) {
	s := openTestLedger(t)
	owned := ledgertypes.DNSModel{Name: "a.example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.1.1.1", Owner: "owner-a"}
	require.NoError(t, s.PutDNSRecord(owned))

	badUpdate := owned
	badUpdate.TTL = 600
	newRegister := ledgertypes.DNSModel{Name: "b.example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "3.3.3.3", Owner: "owner-b"}

	b := &ledgertypes.Block{Transactions: []ledgertypes.Transaction{
		{SenderPublicKey: "owner-b", Type: ledgertypes.UpdateRecords, Payload: []ledgertypes.DNSModel{badUpdate}, Hash: "tx4"},
		{SenderPublicKey: "owner-b", Type: ledgertypes.Register, Payload: []ledgertypes.DNSModel{newRegister}, Hash: "tx5"},
	}}
	require.NoError(t, ApplyBlock(s, b))

	kept, ok, err := s.GetDNSRecord("a.example.com", ledgertypes.TypeA, "1.1.1.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), kept.TTL, "non-owner update must be skipped")

	got, ok, err := s.GetDNSRecord("b.example.com", ledgertypes.TypeA, "3.3.3.3")
	require.NoError(t, err)
	require.True(t, ok, "neighboring register in the same block must still apply")
	assert.Equal(t, "owner-b", got.Owner)
}

func TestApplyBlockDeleteRequiresOwnership(t *testing.T) {
	s := openTestLedger(t)
	rec := ledgertypes.DNSModel{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: "owner-a"}
	require.NoError(t, s.PutDNSRecord(rec))

	b := &ledgertypes.Block{Transactions: []ledgertypes.Transaction{
		{SenderPublicKey: "owner-b", Type: ledgertypes.DeleteRecords, Payload: []ledgertypes.DNSModel{rec}, Hash: "tx6"},
	}}
	require.NoError(t, ApplyBlock(s, b))

	_, ok, err := s.GetDNSRecord("example.com", ledgertypes.TypeA, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "delete by non-owner must be skipped")
}
