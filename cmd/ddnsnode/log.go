// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/toole-brendan/ddnsnode/logs"
)

var logRotator *rotator.Rotator

// initLogRotator opens/creates logFile and its containing directory and
// points every subsystem logger at it, following the same
// rotator.New(logFile, maxRollBytes, false, maxRolls) pattern the
// teacher's own daemon uses ahead of btclog.
func initLogRotator(logFile string, level string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return fmt.Errorf("log: create log dir: %w", err)
	}

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("log: create rotator: %w", err)
	}
	logRotator = r

	logs.SetWriter(r)

	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		lvl = btclog.LevelInfo
	}
	logs.SetLevel(lvl)
	return nil
}
