// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ddnswire

import "encoding/json"

// Role classifies a NodeConfig. NONE is the default for every peer;
// the legacy GENESIS value must still parse, mapping to NONE, per
// spec.md §3 and the open question in spec.md §9.
type Role int

const (
	RoleNone Role = iota
	RoleBootstrap
)

var roleNames = []string{"NONE", "BOOTSTRAP"}

func (r Role) String() string {
	if int(r) < 0 || int(r) >= len(roleNames) {
		return "NONE"
	}
	return roleNames[r]
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts "NONE", "BOOTSTRAP", and the deprecated
// "GENESIS" (mapped to NONE), plus the two legacy values
// "LEADER_NODE"/"NORMAL_NODE" (also mapped to NONE) that spec.md §9
// notes may still appear on the wire from old peers.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "BOOTSTRAP":
		*r = RoleBootstrap
	case "NONE", "GENESIS", "LEADER_NODE", "NORMAL_NODE":
		*r = RoleNone
	default:
		*r = RoleNone
	}
	return nil
}

// NodeConfig identifies a peer: its advertised IPv4, its role, and its
// public key. Equality uses all three fields (spec.md §3).
type NodeConfig struct {
	IP        string `json:"ip"`
	Role      Role   `json:"role"`
	PublicKey string `json:"publicKey"`
}

// Equal reports whether two NodeConfigs describe the same peer entry.
func (n NodeConfig) Equal(o NodeConfig) bool {
	return n.IP == o.IP && n.Role == o.Role && n.PublicKey == o.PublicKey
}

// FetchNodesResponsePayload is the payload of a FETCH_NODES_RESPONSE
// message.
type FetchNodesResponsePayload struct {
	Nodes []NodeConfig `json:"nodes"`
}

// NodePayload wraps a single NodeConfig, used by ADD_NODE, DELETE_NODE,
// and PROMOTE_NODE messages.
type NodePayload struct {
	Node NodeConfig `json:"node"`
}

// CastVotePayload is the payload of a CAST_VOTE message.
type CastVotePayload struct {
	NominationID string `json:"nominationId"`
	Voter        string `json:"voter"`
	Approve      bool   `json:"approve"`
}
