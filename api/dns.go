// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package api is the programmatic façade spec.md §6 says the HTTP JSON
// layer wraps. It is referenced-only per spec.md §2 (C10): the HTTP
// server itself is explicitly out of scope, but the shapes it would
// call are defined here the way the teacher's rpc package defines
// typed Cmd/Result pairs for its JSON-RPC handlers.
package api

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/toole-brendan/ddnsnode/consensus"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/ledgertypes"
)

// CreateStatus mirrors the DNS CRUD status codes spec.md §6 describes
// for create/update/delete.
type CreateStatus string

const (
	StatusOK       CreateStatus = "OK"
	StatusConflict CreateStatus = "CONFLICT"
	StatusInvalid  CreateStatus = "INVALID"
)

// CreateResult is the shape create/update/delete return, per spec.md §6.
type CreateResult struct {
	Status  CreateStatus `json:"status"`
	Message string       `json:"message"`
	TxHash  string       `json:"txHash,omitempty"`
}

// DNS is the façade over ledger lookups and consensus-engine transaction
// submission for record CRUD.
type DNS struct {
	store  *ledger.Store
	engine *consensus.Engine
	selfSK *keyid.PrivateKey
}

// NewDNS constructs a DNS façade. selfSK signs every transaction this
// node submits on the caller's behalf.
func NewDNS(store *ledger.Store, engine *consensus.Engine, selfSK *keyid.PrivateKey) *DNS {
	return &DNS{store: store, engine: engine, selfSK: selfSK}
}

// Create builds, signs, and submits a REGISTER transaction for model,
// per spec.md §6.
func (d *DNS) Create(model ledgertypes.DNSModel) (CreateResult, error) {
	return d.submit(ledgertypes.Register, model)
}

// Update builds, signs, and submits an UPDATE_RECORDS transaction.
func (d *DNS) Update(model ledgertypes.DNSModel) (CreateResult, error) {
	return d.submit(ledgertypes.UpdateRecords, model)
}

// Delete builds, signs, and submits a DELETE_RECORDS transaction.
func (d *DNS) Delete(model ledgertypes.DNSModel) (CreateResult, error) {
	return d.submit(ledgertypes.DeleteRecords, model)
}

func (d *DNS) submit(txType ledgertypes.TxType, model ledgertypes.DNSModel) (CreateResult, error) {
	if !ledgertypes.SupportedRecordTypes[model.Type] {
		return CreateResult{Status: StatusInvalid, Message: "unsupported record type"}, nil
	}
	if model.TTL <= 0 {
		return CreateResult{Status: StatusInvalid, Message: "ttl must be positive"}, nil
	}

	if txType == ledgertypes.Register {
		if _, exists, err := d.store.GetDNSRecord(model.Name, model.Type, model.RData); err != nil {
			return CreateResult{}, fmt.Errorf("api: check existing record: %w", err)
		} else if exists {
			return CreateResult{Status: StatusConflict, Message: "record already exists"}, nil
		}
	} else {
		existing, exists, err := d.store.GetDNSRecord(model.Name, model.Type, model.RData)
		if err != nil {
			return CreateResult{}, fmt.Errorf("api: check existing record: %w", err)
		}
		if !exists {
			return CreateResult{Status: StatusConflict, Message: "record does not exist"}, nil
		}
		if existing.Owner != model.Owner {
			return CreateResult{Status: StatusInvalid, Message: "not the record owner"}, nil
		}
	}

	tx := ledgertypes.Transaction{
		SenderPublicKey: model.Owner,
		Type:            txType,
		Payload:         []ledgertypes.DNSModel{model},
		Timestamp:       time.Now().Unix(),
	}
	if err := tx.SetHash(); err != nil {
		return CreateResult{}, fmt.Errorf("api: hash transaction: %w", err)
	}

	hashBytes, err := hex.DecodeString(tx.Hash)
	if err != nil {
		return CreateResult{}, fmt.Errorf("api: decode transaction hash: %w", err)
	}
	sig, err := keyid.SignHash(d.selfSK, hashBytes)
	if err != nil {
		return CreateResult{}, fmt.Errorf("api: sign transaction: %w", err)
	}
	tx.Signature = base64.StdEncoding.EncodeToString(sig)

	if err := d.engine.PublishTransaction(tx); err != nil {
		return CreateResult{Status: StatusInvalid, Message: err.Error()}, nil
	}
	return CreateResult{Status: StatusOK, Message: "submitted", TxHash: tx.Hash}, nil
}

// Lookup returns every record matching name.
func (d *DNS) Lookup(name string) ([]ledgertypes.DNSModel, error) {
	return d.store.Lookup(name)
}

// Reverse returns every record whose rdata equals value.
func (d *DNS) Reverse(value string) ([]ledgertypes.DNSModel, error) {
	return d.store.Reverse(value)
}

// Status reports a transaction's chain status, per spec.md §6.
func (d *DNS) Status(txHash string) (string, bool, error) {
	_, status, found, err := d.store.GetTransaction(txHash)
	if err != nil {
		return "", false, fmt.Errorf("api: get transaction %s: %w", txHash, err)
	}
	if !found {
		return "", false, nil
	}
	return string(status), true, nil
}
