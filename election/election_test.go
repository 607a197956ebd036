// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

func TestHashPasswordDeterministic(t *testing.T) {
	a := HashPassword("hunter2")
	b := HashPassword("hunter2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashPassword("hunter3"))
	assert.Len(t, a, 64)
}

func newNominationForTest(id string, required int) *Nomination {
	return &Nomination{
		ID:           id,
		NodeConfig:   ddnswire.NodeConfig{IP: "127.0.0.1", PublicKey: "candidate"},
		ElectionType: Join,
		NodeName:     "node-2",
		ExpireTime:   time.Now().Unix() - 1, // already expired
		Voters:       make(map[string]bool),
		PasswordHash: HashPassword("secret"),
	}
}

func TestGetResultWrongPassword(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "candidate"})
	n := newNominationForTest("nom-1", 1)
	e.nominations[n.ID] = n
	e.createdByUs[n.ID] = true
	e.requiredVotes[n.ID] = 1

	assert.Equal(t, ResultWrongPassword, e.GetResult(n.ID, "wrong"))
}

func TestGetResultNoSessionForUnknownOrForeignNomination(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "candidate"})
	assert.Equal(t, ResultNoSession, e.GetResult("does-not-exist", "secret"))

	// A nomination we merely observed (not created) cannot be resolved
	// by us.
	n := newNominationForTest("nom-2", 1)
	e.nominations[n.ID] = n
	assert.Equal(t, ResultNoSession, e.GetResult(n.ID, "secret"))
}

func TestGetResultInProgressBeforeExpiry(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "candidate"})
	n := newNominationForTest("nom-3", 1)
	n.ExpireTime = time.Now().Unix() + 3600
	e.nominations[n.ID] = n
	e.createdByUs[n.ID] = true
	e.requiredVotes[n.ID] = 1

	assert.Equal(t, ResultInProgress, e.GetResult(n.ID, "secret"))
}

func TestGetResultAcceptedWithQuorum(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "candidate"})
	n := newNominationForTest("nom-4", 2)
	e.nominations[n.ID] = n
	e.createdByUs[n.ID] = true
	e.requiredVotes[n.ID] = 2

	accepted := make(chan *Nomination, 1)
	e.OnAccepted = func(n *Nomination) { accepted <- n }

	e.recordVote(n.ID, "voter-a", true)
	e.recordVote(n.ID, "voter-b", true)
	// duplicate vote by voter-a must not double-count
	e.recordVote(n.ID, "voter-a", true)

	require.Equal(t, ResultAccepted, e.GetResult(n.ID, "secret"))
	select {
	case got := <-accepted:
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("OnAccepted was not invoked")
	}
}

func TestGetResultRejectedWithoutQuorum(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "candidate"})
	n := newNominationForTest("nom-5", 2)
	e.nominations[n.ID] = n
	e.createdByUs[n.ID] = true
	e.requiredVotes[n.ID] = 2

	e.recordVote(n.ID, "voter-a", true)

	assert.Equal(t, ResultRejected, e.GetResult(n.ID, "secret"))
}

func TestOnBroadcastStoresNominationOnce(t *testing.T) {
	e := New(ddnswire.NodeConfig{PublicKey: "voter"})
	n := newNominationForTest("nom-6", 1)
	msg, err := ddnswire.Encode(ddnswire.NominationRequest, n.NodeConfig.IP, n.NodeConfig.PublicKey, n)
	require.NoError(t, err)

	e.OnBroadcast(msg)
	e.OnBroadcast(msg)

	assert.Len(t, e.GetNominations(), 1)
}
