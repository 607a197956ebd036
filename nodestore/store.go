// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package nodestore implements the node's persistent self/config state
// (spec.md §4.2): identity, bootstrap IP, role, acceptance flag, session
// fields, and the set of known peers. It is backed by a single-writer,
// multi-reader embedded LevelDB database — the pack's closest equivalent
// to the spec's "SQLite-compatible" local store — the way
// `addrmgr`'s address manager persists a peer set for the teacher's
// node.
package nodestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/toole-brendan/ddnsnode/ddnswire"
)

// Key prefixes and fixed keys used in the underlying LevelDB keyspace.
const (
	keyBootstrapIP   = "self/bootstrapIp"
	keySelfNode      = "self/node"
	keyPrivateKey    = "self/privateKey"
	keyIsAccepted    = "self/isAccepted"
	keySessionToken  = "self/sessionToken"
	keySessionExpiry = "self/sessionExpiresAt"
	keyRole          = "self/role"
	nodePrefix       = "node/"
)

// Store is a single-writer, multi-reader key/value store for node
// configuration and membership state. Reads never block each other;
// writes serialize behind mu, matching spec.md §4.2's concurrency
// contract. All operations are idempotent.
type Store struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Open opens (creating if necessary) the LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("nodestore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutString idempotently stores a string value.
func (s *Store) PutString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put([]byte(key), []byte(value), nil)
}

// GetString returns the string stored at key, or ("", false) if absent.
func (s *Store) GetString(key string) (string, bool, error) {
	v, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("nodestore: get %s: %w", key, err)
	}
	return string(v), true, nil
}

// PutInt idempotently stores an integer value.
func (s *Store) PutInt(key string, value int64) error {
	return s.PutString(key, strconv.FormatInt(value, 10))
}

// GetInt returns the integer stored at key, or (0, false) if absent.
func (s *Store) GetInt(key string) (int64, bool, error) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("nodestore: parse int %s: %w", key, err)
	}
	return v, true, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete([]byte(key), nil)
}

// SaveBootstrapIP persists the bootstrap peer's IP.
func (s *Store) SaveBootstrapIP(ip string) error {
	return s.PutString(keyBootstrapIP, ip)
}

// BootstrapIP returns the persisted bootstrap IP, if any.
func (s *Store) BootstrapIP() (string, bool, error) {
	return s.GetString(keyBootstrapIP)
}

// SaveKeys persists the node's base64-encoded private key.
func (s *Store) SaveKeys(encodedPrivateKey string) error {
	return s.PutString(keyPrivateKey, encodedPrivateKey)
}

// PrivateKey returns the persisted base64-encoded private key, if any.
func (s *Store) PrivateKey() (string, bool, error) {
	return s.GetString(keyPrivateKey)
}

// SetSelfNode persists this node's own NodeConfig.
func (s *Store) SetSelfNode(n ddnswire.NodeConfig) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("nodestore: marshal self node: %w", err)
	}
	return s.PutString(keySelfNode, string(raw))
}

// GetSelfNode returns this node's own NodeConfig, if set.
func (s *Store) GetSelfNode() (ddnswire.NodeConfig, bool, error) {
	raw, ok, err := s.GetString(keySelfNode)
	if err != nil || !ok {
		return ddnswire.NodeConfig{}, ok, err
	}
	var n ddnswire.NodeConfig
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return ddnswire.NodeConfig{}, false, fmt.Errorf("nodestore: unmarshal self node: %w", err)
	}
	return n, true, nil
}

// SaveRole persists the self node's role flag.
func (s *Store) SaveRole(r ddnswire.Role) error {
	return s.PutInt(keyRole, int64(r))
}

// GetRole returns the self node's role flag, defaulting to RoleNone.
func (s *Store) GetRole() (ddnswire.Role, error) {
	v, ok, err := s.GetInt(keyRole)
	if err != nil {
		return ddnswire.RoleNone, err
	}
	if !ok {
		return ddnswire.RoleNone, nil
	}
	return ddnswire.Role(v), nil
}

// IsAccepted reports whether this node is currently accepted into the
// consensus membership.
func (s *Store) IsAccepted() (bool, error) {
	v, ok, err := s.GetInt(keyIsAccepted)
	if err != nil {
		return false, err
	}
	return ok && v == 1, nil
}

// SetAccepted transitions the acceptance flag. Per spec.md §3,
// isAccepted only ever moves 0→1; once set, further calls are no-ops so
// that acceptance never regresses.
func (s *Store) SetAccepted() error {
	accepted, err := s.IsAccepted()
	if err != nil {
		return err
	}
	if accepted {
		return nil
	}
	return s.PutInt(keyIsAccepted, 1)
}

// SaveSession persists the HTTP façade's session token and expiry. These
// fields are only ever consumed by the external API layer (spec.md §3);
// the core merely stores and returns them.
func (s *Store) SaveSession(token string, expiresAt int64) error {
	if err := s.PutString(keySessionToken, token); err != nil {
		return err
	}
	return s.PutInt(keySessionExpiry, expiresAt)
}

// Session returns the persisted session token and expiry, if any.
func (s *Store) Session() (token string, expiresAt int64, ok bool, err error) {
	token, ok, err = s.GetString(keySessionToken)
	if err != nil || !ok {
		return "", 0, ok, err
	}
	expiresAt, _, err = s.GetInt(keySessionExpiry)
	return token, expiresAt, true, err
}

// nodeKey returns the storage key for a known peer entry, keyed by its
// public key (the node's stable identifier per spec.md §3).
func nodeKey(publicKey string) string {
	return nodePrefix + publicKey
}

// AddNode idempotently stores or updates a known peer entry.
func (s *Store) AddNode(n ddnswire.NodeConfig) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("nodestore: marshal node: %w", err)
	}
	return s.PutString(nodeKey(n.PublicKey), string(raw))
}

// RemoveNode idempotently deletes a known peer entry by public key.
func (s *Store) RemoveNode(publicKey string) error {
	return s.Delete(nodeKey(publicKey))
}

// GetAllNodes returns every known peer entry.
func (s *Store) GetAllNodes() ([]ddnswire.NodeConfig, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(nodePrefix)), nil)
	defer iter.Release()

	var nodes []ddnswire.NodeConfig
	for iter.Next() {
		var n ddnswire.NodeConfig
		if err := json.Unmarshal(iter.Value(), &n); err != nil {
			continue
		}
		nodes = append(nodes, n)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("nodestore: iterate nodes: %w", err)
	}
	return nodes, nil
}

// GetNode returns a single known peer entry by public key.
func (s *Store) GetNode(publicKey string) (ddnswire.NodeConfig, bool, error) {
	raw, ok, err := s.GetString(nodeKey(publicKey))
	if err != nil || !ok {
		return ddnswire.NodeConfig{}, ok, err
	}
	var n ddnswire.NodeConfig
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return ddnswire.NodeConfig{}, false, fmt.Errorf("nodestore: unmarshal node: %w", err)
	}
	return n, true, nil
}
