// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/election"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/membership"
	"github.com/toole-brendan/ddnsnode/nodestore"
)

func newTestMembership(t *testing.T) *Membership {
	t.Helper()
	store, err := nodestore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	self := ddnswire.NodeConfig{PublicKey: "self-pub"}
	mgr := membership.New(store, self)
	electionEngine := election.New(self)
	return NewMembership(store, mgr, electionEngine)
}

func TestJoinAsFirstNodeIsImmediatelyAccepted(t *testing.T) {
	m := newTestMembership(t)
	sk, err := keyid.GenerateKeyPair()
	require.NoError(t, err)
	skText, err := keyid.EncodePrivate(sk)
	require.NoError(t, err)

	require.NoError(t, m.Join("", skText))

	result, err := m.CheckFetchResult()
	require.NoError(t, err)
	assert.True(t, result.FirstNode)
	assert.True(t, result.Accepted)
	assert.False(t, result.Election)
}
