// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// ParsePublicKeyHex decodes a hex-encoded 32-byte Ed25519 public key.
func ParsePublicKeyHex(publicKeyHex string) (ed25519.PublicKey, error) {
	decoded, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key has %d bytes, want %d", ErrMalformedKey, len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// ParsePrivateKey decodes an operator-supplied private key. Accepted
// forms:
//
//   - hex of a 32-byte seed
//   - hex of a 64-byte Ed25519 private key (seed || public key)
//   - an unencrypted OpenSSH private key of type ssh-ed25519
//
// Surrounding whitespace is ignored.
func ParsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	trimmed := bytes.TrimSpace(data)

	if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		raw, err := ssh.ParseRawPrivateKey(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing OpenSSH key: %v", ErrMalformedKey, err)
		}
		switch key := raw.(type) {
		case ed25519.PrivateKey:
			return key, nil
		case *ed25519.PrivateKey:
			return *key, nil
		default:
			return nil, fmt.Errorf("%w: OpenSSH key is %T, want ed25519", ErrMalformedKey, raw)
		}
	}

	decoded, err := hex.DecodeString(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	switch len(decoded) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	case ed25519.PrivateKeySize:
		key := ed25519.PrivateKey(decoded)
		// The trailing half must be the public key of the seed, or
		// signatures would verify against a different key than the
		// one published.
		derived := ed25519.NewKeyFromSeed(decoded[:ed25519.SeedSize])
		if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("%w: public half does not match seed", ErrMalformedKey)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: private key has %d bytes, want %d or %d",
			ErrMalformedKey, len(decoded), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}

// LoadPrivateKey reads and parses a private key file. Key files should
// be mode 0600; a group- or world-readable file is rejected.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("signing key %s has permissions %v, want 0600", path, info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

// PublicKeyHex returns the hex encoding of the public half of key.
func PublicKeyHex(key ed25519.PrivateKey) string {
	return hex.EncodeToString(key.Public().(ed25519.PublicKey))
}

// InsecureTestKeypair derives a keypair from label. The derivation is
// public, so anyone who knows the label knows the private key. Use it
// only in tests and fixtures.
func InsecureTestKeypair(label string) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := sha256.Sum256([]byte("dnaledger insecure test key: " + label))
	private := ed25519.NewKeyFromSeed(seed[:])
	return private.Public().(ed25519.PublicKey), private
}
