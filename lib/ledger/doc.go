// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger provides write-once access to provenance entries.
//
// An [Entry] records one training outcome: the model, its DNA
// fingerprint, the datasets and weights it was built from, and an
// optional Ed25519 signature. Its identifier is its immutable_hash,
// the SHA-256 of the canonical entry without the hash and signature
// fields. Because the identifier is derived from content, storage is
// write-once: a second write of an entry with the same hash is
// rejected with [ErrDuplicateEntry], never merged or overwritten.
//
// [Client] is the access interface. Two implementations share its
// contract:
//
//   - [Local] stores each entry as one block of a lib/chain chain.
//   - [HTTP] talks to a remote ledger service. [NewHandler] serves
//     that protocol for any Client, so a Local can be exposed over
//     HTTP and an HTTP client pointed at it behaves like the Local
//     itself.
//
// Errors carry a [Kind] (see [KindOf]) that separates expected
// rejections (duplicate, not found, invalid) from faults (I/O,
// network, remote server errors).
//
// Handles are constructed explicitly and passed to whatever needs
// them; this package keeps no global ledger.
package ledger
