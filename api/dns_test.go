// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/consensus"
	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/ledgertypes"
	"github.com/toole-brendan/ddnsnode/transport"
)

func newTestDNS(t *testing.T) (*DNS, string) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sk, err := keyid.GenerateKeyPair()
	require.NoError(t, err)
	pubText, err := keyid.EncodeKey(keyid.DerivePublic(sk))
	require.NoError(t, err)

	self := ddnswire.NodeConfig{IP: "127.0.0.1", PublicKey: pubText}
	tr := transport.New(transport.Config{BindIP: "127.0.0.1", ScratchDir: t.TempDir()})
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(tr.Stop)

	engine := consensus.NewEngine(self, keyid.DerivePublic(sk), store, tr)
	return NewDNS(store, engine, sk), pubText
}

func TestCreateThenDuplicateCreateConflicts(t *testing.T) {
	d, pubText := newTestDNS(t)
	model := ledgertypes.DNSModel{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: pubText}

	result, err := d.Create(model)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.NotEmpty(t, result.TxHash)

	result2, err := d.Create(model)
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, result2.Status)
}

func TestCreateRejectsUnsupportedRecordType(t *testing.T) {
	d, pubText := newTestDNS(t)
	model := ledgertypes.DNSModel{Name: "example.com", Type: 99, TTL: 300, RData: "1.2.3.4", Owner: pubText}

	result, err := d.Create(model)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, result.Status)
}

func TestUpdateWithoutExistingRecordConflicts(t *testing.T) {
	d, pubText := newTestDNS(t)
	model := ledgertypes.DNSModel{Name: "example.com", Type: ledgertypes.TypeA, TTL: 300, RData: "1.2.3.4", Owner: pubText}

	result, err := d.Update(model)
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, result.Status)
}

func TestStatusUnknownTransaction(t *testing.T) {
	d, _ := newTestDNS(t)
	_, found, err := d.Status("does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)
}
