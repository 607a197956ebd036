// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/election"
	"github.com/toole-brendan/ddnsnode/transport"
)

func newTestElection(t *testing.T) *Election {
	t.Helper()
	self := ddnswire.NodeConfig{IP: "127.0.0.1", PublicKey: "candidate-pub"}
	engine := election.New(self)

	tr := transport.New(transport.Config{BindIP: "127.0.0.1", ScratchDir: t.TempDir()})
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(tr.Stop)

	return NewElection(engine, tr)
}

func TestCastVoteByIndexOutOfRange(t *testing.T) {
	e := newTestElection(t)
	err := e.CastVote(0, true)
	assert.ErrorIs(t, err, errInvalidNominationIndex)
}

func TestCreateJoinElectionThenListed(t *testing.T) {
	e := newTestElection(t)
	_, status, err := e.CreateJoinElection("pw", "node-2", 1, "desc")
	require.NoError(t, err)
	assert.Equal(t, election.CreateOK, status)
	assert.Len(t, e.ListNominations(), 1)
}
