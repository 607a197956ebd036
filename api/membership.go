// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"fmt"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/election"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/membership"
	"github.com/toole-brendan/ddnsnode/nodestore"
)

// FetchResult is the shape checkfetchresult() returns, per spec.md §6.
type FetchResult struct {
	Election  bool `json:"election"`
	FirstNode bool `json:"firstNode"`
	Accepted  bool `json:"accepted"`
}

// Membership is the façade over identity bootstrap and the node's
// accepted/first-node status.
type Membership struct {
	store      *nodestore.Store
	manager    *membership.Manager
	electionEngine *election.Engine
}

// NewMembership constructs a Membership façade.
func NewMembership(store *nodestore.Store, manager *membership.Manager, electionEngine *election.Engine) *Membership {
	return &Membership{store: store, manager: manager, electionEngine: electionEngine}
}

// Join persists privateKey as this node's identity and triggers a
// fetch request to bootstrapIP, per spec.md §6.
func (m *Membership) Join(bootstrapIP, privateKeyText string) error {
	sk, err := keyid.DecodePrivate(privateKeyText)
	if err != nil {
		return fmt.Errorf("api: decode private key: %w", err)
	}
	pubText, err := keyid.EncodeKey(keyid.DerivePublic(sk))
	if err != nil {
		return fmt.Errorf("api: encode public key: %w", err)
	}

	if err := m.store.SaveKeys(privateKeyText); err != nil {
		return fmt.Errorf("api: save private key: %w", err)
	}
	existing, _, err := m.store.GetSelfNode()
	if err != nil {
		return fmt.Errorf("api: read self node: %w", err)
	}
	self := ddnswire.NodeConfig{IP: existing.IP, Role: existing.Role, PublicKey: pubText}
	if err := m.store.SetSelfNode(self); err != nil {
		return fmt.Errorf("api: save self node: %w", err)
	}
	if err := m.store.SaveBootstrapIP(bootstrapIP); err != nil {
		return fmt.Errorf("api: save bootstrap ip: %w", err)
	}

	if bootstrapIP == "" || bootstrapIP == self.IP {
		// First node in the network: nothing to fetch from, accept
		// immediately (spec.md §8 scenario 1).
		return m.store.SetAccepted()
	}

	return m.manager.CreateFetchRequest(bootstrapIP)
}

// CheckFetchResult reports this node's current membership state, per
// spec.md §6/§8.
func (m *Membership) CheckFetchResult() (FetchResult, error) {
	accepted, err := m.store.IsAccepted()
	if err != nil {
		return FetchResult{}, fmt.Errorf("api: read accepted flag: %w", err)
	}

	bootstrapIP, hasBootstrap, err := m.store.BootstrapIP()
	if err != nil {
		return FetchResult{}, fmt.Errorf("api: read bootstrap ip: %w", err)
	}
	self, _, err := m.store.GetSelfNode()
	if err != nil {
		return FetchResult{}, fmt.Errorf("api: read self node: %w", err)
	}
	firstNode := !hasBootstrap || bootstrapIP == self.IP

	nominations := m.electionEngine.GetNominations()

	return FetchResult{
		Election:  len(nominations) > 0 && !accepted,
		FirstNode: firstNode,
		Accepted:  accepted,
	}, nil
}
