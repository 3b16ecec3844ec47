// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// Errors returned by signers and verifiers.
var (
	// ErrUnavailable means verification could not be attempted. It is
	// never returned for a signature that was checked and failed.
	ErrUnavailable = errors.New("signing: verification unavailable")

	// ErrMalformedKey is returned for a public or private key that is
	// not valid hex of the expected length.
	ErrMalformedKey = errors.New("signing: malformed key")

	// ErrInvalidSignature is available to callers that need an error
	// value for a signature that verified false.
	ErrInvalidSignature = errors.New("signing: invalid Ed25519 signature")
)

// Sign returns the hex-encoded Ed25519 signature of payload. Ed25519
// is deterministic: the same payload and key always give the same
// signature.
func Sign(payload []byte, privateKey ed25519.PrivateKey) (string, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: private key has %d bytes, want %d", ErrMalformedKey, len(privateKey), ed25519.PrivateKeySize)
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, payload)), nil
}

// Verify reports whether signatureHex is a valid signature of payload
// under publicKey. Any structural problem (bad hex, wrong length,
// wrong key size) yields false.
func Verify(payload []byte, signatureHex string, publicKey ed25519.PublicKey) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, payload, signature)
}

// Verifier checks signatures given hex-encoded keys, as they appear in
// ledger entries.
type Verifier interface {
	// Verify returns (valid, nil) when a check was performed,
	// ErrMalformedKey when the public key cannot be decoded, and
	// ErrUnavailable when no check is possible.
	Verify(payload []byte, signatureHex, publicKeyHex string) (bool, error)
}

// Ed25519Verifier is the standard Verifier.
type Ed25519Verifier struct{}

// Verify implements Verifier.
func (Ed25519Verifier) Verify(payload []byte, signatureHex, publicKeyHex string) (bool, error) {
	publicKey, err := ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return false, err
	}
	return Verify(payload, signatureHex, publicKey), nil
}

// UnavailableVerifier is a Verifier for deployments where signature
// checking is deliberately disabled or cannot be provided. Every call
// returns ErrUnavailable.
type UnavailableVerifier struct {
	// Reason is included in the returned error.
	Reason string
}

// Verify implements Verifier.
func (v UnavailableVerifier) Verify([]byte, string, string) (bool, error) {
	if v.Reason == "" {
		return false, ErrUnavailable
	}
	return false, fmt.Errorf("%w: %s", ErrUnavailable, v.Reason)
}

// Signer produces signatures over canonical payloads.
type Signer interface {
	Sign(payload []byte) (string, error)
	PublicKeyHex() string
}

// KeySigner is a Signer holding an Ed25519 private key in memory.
type KeySigner struct {
	privateKey ed25519.PrivateKey
	publicHex  string
}

// NewKeySigner wraps privateKey. The key is copied.
func NewKeySigner(privateKey ed25519.PrivateKey) (*KeySigner, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key has %d bytes, want %d", ErrMalformedKey, len(privateKey), ed25519.PrivateKeySize)
	}
	keyCopy := make(ed25519.PrivateKey, len(privateKey))
	copy(keyCopy, privateKey)
	publicKey := keyCopy.Public().(ed25519.PublicKey)
	return &KeySigner{
		privateKey: keyCopy,
		publicHex:  hex.EncodeToString(publicKey),
	}, nil
}

// Sign implements Signer.
func (s *KeySigner) Sign(payload []byte) (string, error) {
	return Sign(payload, s.privateKey)
}

// PublicKeyHex implements Signer.
func (s *KeySigner) PublicKeyHex() string {
	return s.publicHex
}
