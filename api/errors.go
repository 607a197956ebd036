// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import "errors"

var errInvalidNominationIndex = errors.New("api: nomination index out of range")
