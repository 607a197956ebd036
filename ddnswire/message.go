// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ddnswire defines the wire envelope and typed payloads exchanged
// between dDNS nodes, per spec.md §4.4 and §6.
package ddnswire

import (
	"encoding/json"
	"fmt"
)

// MessageType enumerates every message kind a node may send or receive.
// The authoritative list is spec.md §4.4.
type MessageType int

const (
	FetchNodes MessageType = iota
	FetchNodesResponse
	AddNode
	DeleteNode
	PromoteNode
	SyncRequest
	SyncResponse
	NominationRequest
	CastVote
	TransactionPublish
	BlockPublish
)

var messageTypeNames = []string{
	"FETCH_NODES",
	"FETCH_NODES_RESPONSE",
	"ADD_NODE",
	"DELETE_NODE",
	"PROMOTE_NODE",
	"SYNC_REQUEST",
	"SYNC_RESPONSE",
	"NOMINATION_REQUEST",
	"CAST_VOTE",
	"TRANSACTION_PUBLISH",
	"BLOCK_PUBLISH",
}

// String returns the MessageType in its wire (and human-readable) form.
func (t MessageType) String() string {
	if int(t) < 0 || int(t) >= len(messageTypeNames) {
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
	return messageTypeNames[t]
}

// MarshalJSON encodes the type using its wire name rather than its
// numeric value.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a wire name back into a MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range messageTypeNames {
		if n == name {
			*t = MessageType(i)
			return nil
		}
	}
	return fmt.Errorf("ddnswire: unknown message type %q", name)
}

// Message is the envelope carried by every wire message except raw file
// transfer bytes. Payload is itself JSON, embedded as a string so the
// envelope stays type-neutral across message kinds (spec.md §6).
type Message struct {
	Type            MessageType `json:"type"`
	SenderIP        string      `json:"senderIp"`
	SenderPublicKey string      `json:"senderPublicKey"`
	Payload         string      `json:"payload"`
	Signature       string      `json:"signature,omitempty"`
}

// Encode marshals v into the Message's Payload field as embedded JSON
// text.
func Encode(t MessageType, senderIP, senderPublicKey string, v interface{}) (*Message, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ddnswire: encode payload: %w", err)
	}
	return &Message{
		Type:            t,
		SenderIP:        senderIP,
		SenderPublicKey: senderPublicKey,
		Payload:         string(raw),
	}, nil
}

// DecodePayload unmarshals the Message's embedded payload string into v.
// Unknown fields are ignored and missing optional fields default to their
// zero value, matching the relaxed codec contract of spec.md §4.4.
func (m *Message) DecodePayload(v interface{}) error {
	if m.Payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(m.Payload), v); err != nil {
		return fmt.Errorf("ddnswire: decode payload: %w", err)
	}
	return nil
}

// Marshal serializes the envelope as a single line of JSON, suitable for
// a newline-terminated TCP direct send or a UDP datagram.
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal parses a single envelope from wire bytes.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ddnswire: decode message: %w", err)
	}
	return &m, nil
}
