// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package membership implements bootstrap peer discovery and idempotent
// propagation of node-set changes (spec.md §4.5), grounded on the
// teacher's addrmgr address-manager pattern: a local store of known
// peers kept in sync by gossip rather than a single source of truth.
package membership

import (
	"fmt"

	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/logs"
	"github.com/toole-brendan/ddnsnode/nodestore"
	"github.com/toole-brendan/ddnsnode/transport"
)

var log = logs.Membership

// Manager owns the local known-node set and reacts to the three
// membership wire messages. It implements transport.Handler so it can
// be registered directly with a Transport.
type Manager struct {
	store *nodestore.Store
	self  ddnswire.NodeConfig

	// OnPromoted is invoked when a PROMOTE_NODE message names this
	// node's own public key, so the consensus engine can enroll it as
	// a leader-eligible peer (spec.md §4.5: "does not itself grant
	// acceptance", so this only updates the role flag).
	OnPromoted func()
}

// New constructs a Manager backed by store, for the given self identity.
func New(store *nodestore.Store, self ddnswire.NodeConfig) *Manager {
	return &Manager{store: store, self: self}
}

// CreateFetchRequest sends a FETCH_NODES message directly to bootstrapIP
// carrying this node's own identity, per spec.md §4.5.
func (m *Manager) CreateFetchRequest(bootstrapIP string) error {
	msg, err := ddnswire.Encode(ddnswire.FetchNodes, m.self.IP, m.self.PublicKey, struct{}{})
	if err != nil {
		return fmt.Errorf("membership: encode fetch request: %w", err)
	}
	if err := transport.SendDirect(bootstrapIP, msg); err != nil {
		return fmt.Errorf("membership: send fetch request to %s: %w", bootstrapIP, err)
	}
	return nil
}

// RespondToFetch answers a FETCH_NODES request with every known peer,
// including the bootstrap node's own entry, so a new peer's first view
// of the network is complete.
func (m *Manager) RespondToFetch(requesterIP string) error {
	nodes, err := m.store.GetAllNodes()
	if err != nil {
		return fmt.Errorf("membership: load known nodes: %w", err)
	}
	payload := ddnswire.FetchNodesResponsePayload{Nodes: append(nodes, m.self)}
	msg, err := ddnswire.Encode(ddnswire.FetchNodesResponse, m.self.IP, m.self.PublicKey, payload)
	if err != nil {
		return fmt.Errorf("membership: encode fetch response: %w", err)
	}
	if err := transport.SendDirect(requesterIP, msg); err != nil {
		return fmt.Errorf("membership: send fetch response to %s: %w", requesterIP, err)
	}
	return nil
}

// BroadcastAddNode announces n to every known peer via UDP broadcast.
func (m *Manager) BroadcastAddNode(tr *transport.Transport, n ddnswire.NodeConfig) error {
	return m.broadcastNodeChange(tr, ddnswire.AddNode, n)
}

// BroadcastDeleteNode announces n's removal to every known peer.
func (m *Manager) BroadcastDeleteNode(tr *transport.Transport, n ddnswire.NodeConfig) error {
	return m.broadcastNodeChange(tr, ddnswire.DeleteNode, n)
}

// BroadcastPromoteNode announces a role change for n.
func (m *Manager) BroadcastPromoteNode(tr *transport.Transport, n ddnswire.NodeConfig) error {
	return m.broadcastNodeChange(tr, ddnswire.PromoteNode, n)
}

func (m *Manager) broadcastNodeChange(tr *transport.Transport, t ddnswire.MessageType, n ddnswire.NodeConfig) error {
	msg, err := ddnswire.Encode(t, m.self.IP, m.self.PublicKey, ddnswire.NodePayload{Node: n})
	if err != nil {
		return fmt.Errorf("membership: encode %s: %w", t, err)
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("membership: marshal %s: %w", t, err)
	}
	if err := tr.BroadcastUDP(data); err != nil {
		return fmt.Errorf("membership: broadcast %s: %w", t, err)
	}
	return nil
}

// OnBroadcast handles ADD_NODE/DELETE_NODE/PROMOTE_NODE gossip.
func (m *Manager) OnBroadcast(msg *ddnswire.Message) {
	switch msg.Type {
	case ddnswire.AddNode:
		m.handleAddNode(msg)
	case ddnswire.DeleteNode:
		m.handleDeleteNode(msg)
	case ddnswire.PromoteNode:
		m.handlePromoteNode(msg)
	}
}

// OnDirect handles FETCH_NODES and its response when delivered directly.
func (m *Manager) OnDirect(msg *ddnswire.Message) {
	switch msg.Type {
	case ddnswire.FetchNodes:
		if err := m.RespondToFetch(msg.SenderIP); err != nil {
			log.Warnf("fetch response failed: %v", err)
		}
	case ddnswire.FetchNodesResponse:
		m.handleFetchResponse(msg)
	}
}

// OnMulticast is a no-op for membership; nothing in this subsystem uses
// the multicast channel.
func (m *Manager) OnMulticast(*ddnswire.Message) {}

func (m *Manager) handleAddNode(msg *ddnswire.Message) {
	var p ddnswire.NodePayload
	if err := msg.DecodePayload(&p); err != nil {
		log.Debugf("malformed ADD_NODE: %v", err)
		return
	}
	if err := m.store.AddNode(p.Node); err != nil {
		log.Errorf("store add node: %v", err)
	}
}

func (m *Manager) handleDeleteNode(msg *ddnswire.Message) {
	var p ddnswire.NodePayload
	if err := msg.DecodePayload(&p); err != nil {
		log.Debugf("malformed DELETE_NODE: %v", err)
		return
	}
	if err := m.store.RemoveNode(p.Node.PublicKey); err != nil {
		log.Errorf("store remove node: %v", err)
	}
}

func (m *Manager) handlePromoteNode(msg *ddnswire.Message) {
	var p ddnswire.NodePayload
	if err := msg.DecodePayload(&p); err != nil {
		log.Debugf("malformed PROMOTE_NODE: %v", err)
		return
	}
	if err := m.store.AddNode(p.Node); err != nil {
		log.Errorf("store update node role: %v", err)
		return
	}
	if p.Node.PublicKey == m.self.PublicKey {
		if err := m.store.SaveRole(p.Node.Role); err != nil {
			log.Errorf("store save role: %v", err)
		}
		if m.OnPromoted != nil {
			m.OnPromoted()
		}
	}
}

func (m *Manager) handleFetchResponse(msg *ddnswire.Message) {
	var p ddnswire.FetchNodesResponsePayload
	if err := msg.DecodePayload(&p); err != nil {
		log.Debugf("malformed FETCH_NODES_RESPONSE: %v", err)
		return
	}
	for _, n := range p.Nodes {
		if n.PublicKey == m.self.PublicKey {
			continue
		}
		if err := m.store.AddNode(n); err != nil {
			log.Errorf("store merge fetched node: %v", err)
		}
	}
}
