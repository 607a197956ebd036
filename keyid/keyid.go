// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keyid implements the node's identity primitives: secp256r1
// (NIST P-256) key generation, signing, verification, and the canonical
// base64 text encoding used on the wire and in persistent storage.
package keyid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// Curve is the curve used for all node identities.
var Curve = elliptic.P256()

var (
	// ErrInvalidKey is returned when a key fails to decode or does not
	// sit on Curve.
	ErrInvalidKey = errors.New("keyid: invalid key encoding")

	// ErrInvalidSignature names a signature whose bytes cannot be
	// parsed. Verify and VerifyHash do not return it; they report such a
	// signature as false.
	ErrInvalidSignature = errors.New("keyid: invalid signature encoding")
)

// PublicKey is a thin alias kept so callers don't need to import
// crypto/ecdsa directly.
type PublicKey = ecdsa.PublicKey

// PrivateKey is a thin alias kept so callers don't need to import
// crypto/ecdsa directly.
type PrivateKey = ecdsa.PrivateKey

// GenerateKeyPair creates a fresh secp256r1 key pair.
func GenerateKeyPair() (*PrivateKey, error) {
	sk, err := ecdsa.GenerateKey(Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keyid: generate key: %w", err)
	}
	return sk, nil
}

// DerivePublic recomputes the public key Q = d*G from the scalar held by
// sk. It must reproduce the original public key bit-exactly so that a key
// imported by its text form can re-sign as the same identity.
func DerivePublic(sk *PrivateKey) *PublicKey {
	x, y := Curve.ScalarBaseMult(sk.D.Bytes())
	return &PublicKey{Curve: Curve, X: x, Y: y}
}

// Sign computes the SHA-256 hash of data and signs it with sk, returning
// the ASN.1 DER-encoded signature.
func Sign(sk *PrivateKey, data []byte) ([]byte, error) {
	h := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, sk, h[:])
	if err != nil {
		return nil, fmt.Errorf("keyid: sign: %w", err)
	}
	return sig, nil
}

// SignHash signs an already-computed digest directly (used when the
// caller has a precomputed hash, e.g. a transaction hash).
func SignHash(sk *PrivateKey, hash []byte) ([]byte, error) {
	sig, err := ecdsa.SignASN1(rand.Reader, sk, hash)
	if err != nil {
		return nil, fmt.Errorf("keyid: sign hash: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over SHA-256(data) by
// pk.
func Verify(pk *PublicKey, data, sig []byte) bool {
	h := sha256.Sum256(data)
	return VerifyHash(pk, h[:], sig)
}

// VerifyHash reports whether sig is a valid signature over an
// already-computed digest by pk.
func VerifyHash(pk *PublicKey, hash, sig []byte) bool {
	if pk == nil || len(sig) == 0 {
		return false
	}
	return ecdsa.VerifyASN1(pk, hash, sig)
}

// EncodeKey returns the canonical base64 text form of a public key: the
// standard library's X.509/PKIX DER encoding, base64-std encoded.
func EncodeKey(pk *PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pk)
	if err != nil {
		return "", fmt.Errorf("keyid: marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// DecodeKey parses the canonical base64 text form produced by EncodeKey.
func DecodeKey(text string) (*PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an EC public key", ErrInvalidKey)
	}
	return ecPub, nil
}

// EncodePrivate returns the canonical base64 text form of a private key:
// PKCS8 DER, base64-std encoded. Used only by join-time persistence.
func EncodePrivate(sk *PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		return "", fmt.Errorf("keyid: marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// DecodePrivate parses the canonical base64 text form produced by
// EncodePrivate.
func DecodePrivate(text string) (*PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an EC private key", ErrInvalidKey)
	}
	return ecKey, nil
}

// Equal reports whether two public keys represent the same point.
func Equal(a, b *PublicKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.X.Cmp(b.X) == 0 && a.Y.Cmp(b.Y) == 0
}
