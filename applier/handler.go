// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package applier

import "github.com/toole-brendan/ddnsnode/ddnswire"

// OnBroadcast is a no-op; sync is driven by direct messages and file
// transfer only.
func (sy *Syncer) OnBroadcast(*ddnswire.Message) {}

// OnDirect answers SYNC_REQUEST by exporting and transmitting a
// snapshot; SYNC_RESPONSE is an ack the requester doesn't need to act
// on beyond logging, since the actual payload arrives over the file
// listener (spec.md §4.3/§4.9).
func (sy *Syncer) OnDirect(msg *ddnswire.Message) {
	if msg.Type != ddnswire.SyncRequest {
		return
	}
	if err := sy.RespondToSyncRequest(msg.SenderIP); err != nil {
		log.Errorf("respond to sync request from %s: %v", msg.SenderIP, err)
	}
}

// OnMulticast is a no-op; sync uses broadcast-free, direct and
// file-transfer channels only.
func (sy *Syncer) OnMulticast(*ddnswire.Message) {}
