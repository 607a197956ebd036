// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package election implements the JOIN/PROMOTE nomination and
// direct-vote protocol of spec.md §4.6, grounded on a round-robin
// proof-of-authority reference pattern from the retrieved examples:
// a small committee nominates and votes for new members rather than
// mining for block rights.
package election

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/logs"
	"github.com/toole-brendan/ddnsnode/transport"
)

var log = logs.Election

// Type distinguishes the two election kinds spec.md §4.6 defines.
type Type int

const (
	Join Type = iota
	Promote
)

func (t Type) String() string {
	if t == Promote {
		return "PROMOTE"
	}
	return "JOIN"
}

// Result is the outcome reported by GetResult.
type Result int

const (
	ResultInProgress Result = iota
	ResultAccepted
	ResultRejected
	ResultWrongPassword
	ResultNoSession
)

// CreateStatus is returned by CreateElection.
type CreateStatus int

const (
	CreateOK CreateStatus = iota
	CreateInvalidNodeName
	CreateInvalidDuration
	CreateInvalidType
)

// Nomination is a pending election entry for one candidate peer,
// matching the wire shape in spec.md §6.
type Nomination struct {
	ID           string               `json:"id"`
	NodeConfig   ddnswire.NodeConfig  `json:"nodeConfig"`
	ElectionType Type                 `json:"electionType"`
	NodeName     string               `json:"nodeName"`
	Description  string               `json:"description"`
	StartTime    int64                `json:"startTime"`
	ExpireTime   int64                `json:"expireTime"`
	VoteCount    int                  `json:"voteCount"`
	Voters       map[string]bool      `json:"voters"`
	PasswordHash string               `json:"passwordHash"`
}

// HashPassword returns the SHA-256 hex digest of password, the form
// persisted in PasswordHash (spec.md §4.6: "hashed (SHA-256) at
// creation").
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Engine owns the local nomination set, whether this node is the
// creator of a given nomination, and the tallying logic.
type Engine struct {
	mu          sync.Mutex
	self        ddnswire.NodeConfig
	nominations map[string]*Nomination
	// createdByUs tracks nominations this node originated, since only
	// the creator can resolve a result or receive votes for tallying.
	createdByUs map[string]bool
	// requiredVotes is fixed at creation time, per nomination, to the
	// number of currently accepted peers excluding self.
	requiredVotes map[string]int

	// AcceptedPeerCount returns the number of currently accepted peers
	// excluding self, used to fix the quorum at election creation.
	AcceptedPeerCount func() int

	// OnAccepted is invoked when a nomination this node created
	// resolves to ACCEPTED, so the caller can trigger setupNormalNode
	// (JOIN) or createPromoteRequest (PROMOTE) per spec.md §4.6.
	OnAccepted func(n *Nomination)
}

// New constructs an Engine for the given self identity.
func New(self ddnswire.NodeConfig) *Engine {
	return &Engine{
		self:          self,
		nominations:   make(map[string]*Nomination),
		createdByUs:   make(map[string]bool),
		requiredVotes: make(map[string]int),
	}
}

// CreateElection builds and broadcasts a Nomination for self, per
// spec.md §4.6.
func (e *Engine) CreateElection(tr *transport.Transport, password, nodeName string, timeMinutes int, description string, electionType Type) (*Nomination, CreateStatus, error) {
	if nodeName == "" {
		return nil, CreateInvalidNodeName, nil
	}
	if timeMinutes <= 0 {
		return nil, CreateInvalidDuration, nil
	}
	if electionType != Join && electionType != Promote {
		return nil, CreateInvalidType, nil
	}

	now := time.Now().Unix()
	n := &Nomination{
		ID:           uuid.NewString(),
		NodeConfig:   e.self,
		ElectionType: electionType,
		NodeName:     nodeName,
		Description:  description,
		StartTime:    now,
		ExpireTime:   now + int64(timeMinutes)*60,
		Voters:       make(map[string]bool),
		PasswordHash: HashPassword(password),
	}

	required := 0
	if e.AcceptedPeerCount != nil {
		required = e.AcceptedPeerCount()
	}

	e.mu.Lock()
	e.nominations[n.ID] = n
	e.createdByUs[n.ID] = true
	e.requiredVotes[n.ID] = required
	e.mu.Unlock()

	msg, err := ddnswire.Encode(ddnswire.NominationRequest, e.self.IP, e.self.PublicKey, n)
	if err != nil {
		return n, CreateOK, fmt.Errorf("election: encode nomination: %w", err)
	}
	data, err := msg.Marshal()
	if err != nil {
		return n, CreateOK, fmt.Errorf("election: marshal nomination: %w", err)
	}
	if err := tr.BroadcastUDP(data); err != nil {
		return n, CreateOK, fmt.Errorf("election: broadcast nomination: %w", err)
	}
	return n, CreateOK, nil
}

// GetNominations returns every nomination currently known to this node,
// whether created locally or received from a peer.
func (e *Engine) GetNominations() []*Nomination {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Nomination, 0, len(e.nominations))
	for _, n := range e.nominations {
		out = append(out, n)
	}
	return out
}

// CastVote sends a direct CAST_VOTE to the nomination's candidate,
// approving or rejecting it according to approve. Per spec.md §4.6, operators vote by index into
// GetNominations; the index-to-ID mapping is the caller's
// responsibility (the HTTP façade owns that, per §6).
func (e *Engine) CastVote(nominationID string, approve bool) error {
	e.mu.Lock()
	n, ok := e.nominations[nominationID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("election: unknown nomination %s", nominationID)
	}

	payload := ddnswire.CastVotePayload{
		NominationID: nominationID,
		Voter:        e.self.PublicKey,
		Approve:      approve,
	}
	msg, err := ddnswire.Encode(ddnswire.CastVote, e.self.IP, e.self.PublicKey, payload)
	if err != nil {
		return fmt.Errorf("election: encode vote: %w", err)
	}
	if err := transport.SendDirect(n.NodeConfig.IP, msg); err != nil {
		return fmt.Errorf("election: send vote to %s: %w", n.NodeConfig.IP, err)
	}
	return nil
}

// OnBroadcast handles NOMINATION_REQUEST gossip.
func (e *Engine) OnBroadcast(msg *ddnswire.Message) {
	if msg.Type != ddnswire.NominationRequest {
		return
	}
	var n Nomination
	if err := msg.DecodePayload(&n); err != nil {
		log.Debugf("malformed NOMINATION_REQUEST: %v", err)
		return
	}
	if n.Voters == nil {
		n.Voters = make(map[string]bool)
	}
	e.mu.Lock()
	if _, exists := e.nominations[n.ID]; !exists {
		e.nominations[n.ID] = &n
	}
	e.mu.Unlock()
}

// OnDirect handles CAST_VOTE messages addressed to this node as the
// candidate being tallied.
func (e *Engine) OnDirect(msg *ddnswire.Message) {
	if msg.Type != ddnswire.CastVote {
		return
	}
	var p ddnswire.CastVotePayload
	if err := msg.DecodePayload(&p); err != nil {
		log.Debugf("malformed CAST_VOTE: %v", err)
		return
	}
	e.recordVote(p.NominationID, p.Voter, p.Approve)
}

// OnMulticast is a no-op; elections use broadcast and direct channels
// only.
func (e *Engine) OnMulticast(*ddnswire.Message) {}

func (e *Engine) recordVote(nominationID, voter string, approve bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nominations[nominationID]
	if !ok || !e.createdByUs[nominationID] {
		return
	}
	if n.Voters[voter] {
		return // duplicate vote by the same peer, rejected silently
	}
	n.Voters[voter] = true
	if approve {
		n.VoteCount++
	}
}

// GetResult resolves the outcome of a nomination this node created, per
// spec.md §4.6. Wrong password never reveals the underlying state.
func (e *Engine) GetResult(nominationID, password string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nominations[nominationID]
	if !ok || !e.createdByUs[nominationID] {
		return ResultNoSession
	}
	if HashPassword(password) != n.PasswordHash {
		return ResultWrongPassword
	}

	if time.Now().Unix() <= n.ExpireTime {
		return ResultInProgress
	}

	required := e.requiredVotes[nominationID]
	if n.VoteCount >= required {
		if e.OnAccepted != nil {
			// OnAccepted runs on its own goroutine, so it never executes
			// while e.mu is held; it receives the stored *Nomination, not
			// a copy.
			go e.OnAccepted(n)
		}
		return ResultAccepted
	}
	return ResultRejected
}
