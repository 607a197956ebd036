// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sync"
	"time"
)

// LivenessTimeout bounds how long a single leader may withhold a block
// before the remaining peers force a rotation, per spec.md §4.8/§5.
const LivenessTimeout = 15 * time.Second

// LivenessController tracks the last time a block was accepted and
// decides, given a clock reading and mempool occupancy, whether the
// current leader should be skipped. It is expressed as a pure
// tick(now) state machine so tests can drive it without real time
// (spec.md §9).
type LivenessController struct {
	mu          sync.Mutex
	lastBlockAt time.Time
}

// NewLivenessController returns a controller initialized as if a block
// had just been accepted at now.
func NewLivenessController(now time.Time) *LivenessController {
	return &LivenessController{lastBlockAt: now}
}

// ResetAt records that a block was just accepted at now.
func (l *LivenessController) ResetAt(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastBlockAt = now
}

// ShouldSkip reports whether, given now and whether the mempool is
// non-empty, the current leader has overstayed its turn and must be
// skipped (spec.md §4.8: "if now - lastBlockAt > T AND M is non-empty").
func (l *LivenessController) ShouldSkip(now time.Time, mempoolNonEmpty bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return mempoolNonEmpty && now.Sub(l.lastBlockAt) > LivenessTimeout
}
