// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyid_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/toole-brendan/ddnsnode/keyid"
)

// TestEncodeDecodeRoundTrip asserts decode(encode(pk)) == pk and that
// DerivePublic reproduces the original public key bit-exactly, for 100
// fresh key pairs, per spec.md §8.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		sk, err := keyid.GenerateKeyPair()
		require.NoError(t, err)

		derived := keyid.DerivePublic(sk)
		require.True(t, keyid.Equal(derived, &sk.PublicKey), "iteration %d: derived public key mismatch", i)

		text, err := keyid.EncodeKey(&sk.PublicKey)
		require.NoError(t, err)

		decoded, err := keyid.DecodeKey(text)
		require.NoError(t, err)
		require.True(t, keyid.Equal(decoded, &sk.PublicKey), "iteration %d: round-trip mismatch", i)
	}
}

func TestSignVerify(t *testing.T) {
	sk, err := keyid.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("example.com A record")
	sig, err := keyid.Sign(sk, msg)
	require.NoError(t, err)
	require.True(t, keyid.Verify(&sk.PublicKey, msg, sig))

	other, err := keyid.GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, keyid.Verify(&other.PublicKey, msg, sig))

	require.False(t, keyid.Verify(&sk.PublicKey, []byte("tampered"), sig))
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	sk, err := keyid.GenerateKeyPair()
	require.NoError(t, err)

	text, err := keyid.EncodePrivate(sk)
	require.NoError(t, err)

	decoded, err := keyid.DecodePrivate(text)
	require.NoError(t, err)
	require.True(t, keyid.Equal(keyid.DerivePublic(decoded), &sk.PublicKey))
}

// TestVerifyRapid fuzzes arbitrary byte payloads through sign/verify to
// make sure every signature verifies against the message it was made
// for.
func TestVerifyRapid(t *testing.T) {
	sk, err := keyid.GenerateKeyPair()
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(t, "msg")
		sig, err := keyid.Sign(sk, msg)
		require.NoError(t, err)
		require.True(t, keyid.Verify(&sk.PublicKey, msg, sig))
	})
}
