// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"encoding/base64"
	"encoding/hex"
)

func hexDecodeHash(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func base64DecodeSig(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
