// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing signs and verifies ledger payloads with Ed25519.
//
// Payloads are always canonical bytes (see lib/canonical), so a
// signature produced here verifies in any implementation that
// reproduces the canonical form. Signatures and public keys travel as
// lowercase hex (128 and 64 characters).
//
// Verification has three outcomes, and callers must keep them apart:
//
//   - true: the signature is valid for the payload and key.
//   - false: the signature is malformed or does not verify. This is
//     an answer, not an error.
//   - [ErrUnavailable]: the verifier cannot answer at all. A report
//     built on this outcome must say "unverified", never "invalid".
//
// A malformed public key is reported as [ErrMalformedKey]; the record
// carrying it is wrong, but no signature check took place.
//
// Keys are supplied by the operator out of band. [ParsePrivateKey]
// accepts a hex seed, a hex 64-byte key, or an OpenSSH ed25519 private
// key. This package never generates keys for production use;
// [InsecureTestKeypair] derives keys from a label and exists for tests
// only.
package signing
