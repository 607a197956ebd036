// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

const (
	defaultDataDir    = "data"
	defaultLogFile    = "ddnsnode.log"
	defaultRoundEvery = 3 // seconds, per spec.md §5
)

// config mirrors the shape of the teacher's own daemon flags: a single
// struct tagged for go-flags, parsed once at startup.
type config struct {
	BindIP       string `short:"b" long:"bindip" description:"Local address to bind the P2P listeners to" default:""`
	BootstrapIP  string `long:"bootstrap" description:"Bootstrap peer IP to fetch known nodes from; empty means this is the first node"`
	DataDir      string `short:"d" long:"datadir" description:"Directory for node state and the ledger" default:"data"`
	LogLevel     string `long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}" default:"info"`
	RoundSeconds int    `long:"roundseconds" description:"Consensus round tick interval in seconds" default:"3"`
}

// loadConfig parses command-line flags into a config, following the
// teacher's own fail-fast pattern: a parse error is fatal at startup.
func loadConfig() (*config, error) {
	cfg := config{
		DataDir:      defaultDataDir,
		LogLevel:     "info",
		RoundSeconds: defaultRoundEvery,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create data dir %s: %w", cfg.DataDir, err)
	}
	return &cfg, nil
}

func (c *config) logFilePath() string {
	return filepath.Join(c.DataDir, "logs", defaultLogFile)
}

func (c *config) nodeStoreDir() string {
	return filepath.Join(c.DataDir, "utility.db")
}

func (c *config) ledgerDir() string {
	return filepath.Join(c.DataDir, "block.bin")
}

func (c *config) scratchDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}
