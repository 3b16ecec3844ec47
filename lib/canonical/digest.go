// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DigestLength is the length of a full hex-encoded SHA-256 digest.
const DigestLength = 64

// ZeroDigest is the all-zero digest used as the previous hash of a
// genesis block.
const ZeroDigest = "0000000000000000000000000000000000000000000000000000000000000000"

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashValue returns Digest(Marshal(value)).
func HashValue(value any) (string, error) {
	encoded, err := Marshal(value)
	if err != nil {
		return "", err
	}
	return Digest(encoded), nil
}

// ShortDigest returns the first n hex characters of HashValue(value).
// It exists for human-readable names; prefixes shorter than 16
// characters must not be treated as unique.
func ShortDigest(value any, n int) (string, error) {
	if n <= 0 || n > DigestLength {
		return "", fmt.Errorf("canonical: short digest length %d out of range (1..%d)", n, DigestLength)
	}
	digest, err := HashValue(value)
	if err != nil {
		return "", err
	}
	return digest[:n], nil
}

// IsDigest reports whether s is a full lowercase hex SHA-256 digest.
func IsDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
