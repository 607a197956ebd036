// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command ddnsnode runs a single decentralized DNS node: transport,
// membership, election, consensus, and ledger wired together per
// spec.md §2, behind the go-flags-parsed config in this package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toole-brendan/ddnsnode/applier"
	"github.com/toole-brendan/ddnsnode/consensus"
	"github.com/toole-brendan/ddnsnode/ddnswire"
	"github.com/toole-brendan/ddnsnode/election"
	"github.com/toole-brendan/ddnsnode/keyid"
	"github.com/toole-brendan/ddnsnode/ledger"
	"github.com/toole-brendan/ddnsnode/logs"
	"github.com/toole-brendan/ddnsnode/membership"
	"github.com/toole-brendan/ddnsnode/nodestore"
	"github.com/toole-brendan/ddnsnode/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ddnsnode:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogRotator(cfg.logFilePath(), cfg.LogLevel); err != nil {
		return err
	}
	defer logRotator.Close()

	nodeStore, err := nodestore.Open(cfg.nodeStoreDir())
	if err != nil {
		return fmt.Errorf("open node store: %w", err)
	}
	defer nodeStore.Close()

	ledgerStore, err := ledger.Open(cfg.ledgerDir())
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { ledgerStore.Close() }()

	self, sk, err := ensureIdentity(nodeStore, cfg.BindIP)
	if err != nil {
		return fmt.Errorf("ensure identity: %w", err)
	}

	tr := transport.New(transport.Config{BindIP: cfg.BindIP, ScratchDir: cfg.scratchDir()})

	membershipManager := membership.New(nodeStore, self)
	electionEngine := election.New(self)
	electionEngine.AcceptedPeerCount = func() int {
		nodes, err := nodeStore.GetAllNodes()
		if err != nil {
			logs.Node.Errorf("count accepted peers: %v", err)
			return 0
		}
		return len(nodes)
	}

	consensusEngine := consensus.NewEngine(self, keyid.DerivePublic(sk), ledgerStore, tr)

	electionEngine.OnAccepted = func(n *election.Nomination) {
		switch n.ElectionType {
		case election.Join:
			if err := nodeStore.SetAccepted(); err != nil {
				logs.Node.Errorf("set accepted after join election: %v", err)
				return
			}
			applier.SetupNormalNode(consensusEngine.EnrollSelf, func() {})
		case election.Promote:
			self.Role = ddnswire.RoleBootstrap
			if err := nodeStore.SaveRole(self.Role); err != nil {
				logs.Node.Errorf("save role after promote election: %v", err)
				return
			}
			if err := applier.CreatePromoteRequest(tr, self); err != nil {
				logs.Node.Errorf("broadcast promote request: %v", err)
			}
		}
	}

	syncer := applier.NewSyncer(ledgerStore, nodeStore, self, cfg.scratchDir())
	syncer.Replace = func(s *ledger.Store) {
		ledgerStore = s
		consensusEngine.ReplaceStore(s)
	}
	tr.OnFileReceived = func(path string) {
		if err := syncer.ImportReceivedSnapshot(path); err != nil {
			logs.Node.Errorf("import received snapshot %s: %v", path, err)
			return
		}
		if err := applier.RebuildDNSFromBlocks(ledgerStore); err != nil {
			logs.Node.Errorf("rebuild dns state after sync: %v", err)
		}
	}

	tr.Register(membershipManager)
	tr.Register(electionEngine)
	tr.Register(consensusEngine)
	tr.Register(syncer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := tr.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer tr.Stop()

	accepted, err := nodeStore.IsAccepted()
	if err != nil {
		return fmt.Errorf("read accepted flag: %w", err)
	}
	if accepted {
		consensusEngine.EnrollSelf()
	} else if cfg.BootstrapIP != "" {
		if err := syncer.RequestSync(cfg.BootstrapIP); err != nil {
			logs.Node.Warnf("initial sync request failed: %v", err)
		}
	}

	// The HTTP JSON façade that would wrap api.DNS/api.Membership/
	// api.Election is explicitly out of scope (spec.md §1); this
	// process runs the core state machine only.
	logs.Node.Infof("ddnsnode started: ip=%s publicKey=%s", self.IP, self.PublicKey)

	runScheduler(ctx, consensusEngine, time.Duration(cfg.RoundSeconds)*time.Second)
	return nil
}

// ensureIdentity loads this node's persisted identity, generating and
// persisting a new key pair on first boot (spec.md §3: "keys created
// at join-time, persisted once").
func ensureIdentity(store *nodestore.Store, bindIP string) (ddnswire.NodeConfig, *keyid.PrivateKey, error) {
	if encoded, ok, err := store.PrivateKey(); err != nil {
		return ddnswire.NodeConfig{}, nil, err
	} else if ok {
		sk, err := keyid.DecodePrivate(encoded)
		if err != nil {
			return ddnswire.NodeConfig{}, nil, fmt.Errorf("decode persisted private key: %w", err)
		}
		self, _, err := store.GetSelfNode()
		if err != nil {
			return ddnswire.NodeConfig{}, nil, err
		}
		return self, sk, nil
	}

	sk, err := keyid.GenerateKeyPair()
	if err != nil {
		return ddnswire.NodeConfig{}, nil, fmt.Errorf("generate key pair: %w", err)
	}
	skText, err := keyid.EncodePrivate(sk)
	if err != nil {
		return ddnswire.NodeConfig{}, nil, err
	}
	pubText, err := keyid.EncodeKey(keyid.DerivePublic(sk))
	if err != nil {
		return ddnswire.NodeConfig{}, nil, err
	}
	if err := store.SaveKeys(skText); err != nil {
		return ddnswire.NodeConfig{}, nil, err
	}

	self := ddnswire.NodeConfig{IP: bindIP, PublicKey: pubText}
	if err := store.SetSelfNode(self); err != nil {
		return ddnswire.NodeConfig{}, nil, err
	}
	return self, sk, nil
}

// runScheduler drives the periodic consensus tick until ctx is
// cancelled, per spec.md §5's "single-threaded periodic scheduler
// running runRound() every 3 seconds (configurable)".
func runScheduler(ctx context.Context, engine *consensus.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.RunRound()
		}
	}
}
