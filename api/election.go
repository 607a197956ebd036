// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"github.com/toole-brendan/ddnsnode/election"
	"github.com/toole-brendan/ddnsnode/transport"
)

// Election is a thin façade mapping 1:1 onto the election engine's
// operations, per spec.md §6.
type Election struct {
	engine *election.Engine
	tr     *transport.Transport
}

// NewElection constructs an Election façade.
func NewElection(engine *election.Engine, tr *transport.Transport) *Election {
	return &Election{engine: engine, tr: tr}
}

// CreateJoinElection creates a JOIN-type nomination for self.
func (e *Election) CreateJoinElection(password, nodeName string, timeMinutes int, description string) (*election.Nomination, election.CreateStatus, error) {
	return e.engine.CreateElection(e.tr, password, nodeName, timeMinutes, description, election.Join)
}

// CreatePromoteElection creates a PROMOTE-type nomination for self.
func (e *Election) CreatePromoteElection(password, nodeName string, timeMinutes int, description string) (*election.Nomination, election.CreateStatus, error) {
	return e.engine.CreateElection(e.tr, password, nodeName, timeMinutes, description, election.Promote)
}

// ListNominations returns every nomination known to this node.
func (e *Election) ListNominations() []*election.Nomination {
	return e.engine.GetNominations()
}

// CastVote sends an approving or rejecting vote for the nomination at
// the given index into ListNominations, per spec.md §6's index-based
// castVote(index) contract.
func (e *Election) CastVote(index int, approve bool) error {
	nominations := e.engine.GetNominations()
	if index < 0 || index >= len(nominations) {
		return errInvalidNominationIndex
	}
	return e.engine.CastVote(nominations[index].ID, approve)
}

// ElectionResult resolves a nomination this node created.
func (e *Election) ElectionResult(nominationID, password string) election.Result {
	return e.engine.GetResult(nominationID, password)
}
