// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package certify records a completed training run.
//
// [Certifier.Certify] takes a training [Event] through the whole
// provenance path:
//
//  1. hash every dataset and the serialized weights
//  2. build the compact DNA and the content-derived directory name
//  3. create the directory with metadata status "pending" and write
//     dna.json
//  4. build the ledger entry, sign it when a signer is configured, and
//     write it through the ledger client
//  5. write ledger_proof.json and add the entry to the proof index
//  6. seal the directory (status "completed")
//  7. point "current" at the new directory
//
// Each step's output is durable before the next begins. A run
// interrupted after step 4 can be repeated with the same event: the
// entry's content, and so its immutable hash, is unchanged, and a
// duplicate-entry rejection from the ledger is accepted as proof that
// step 4 already happened.
//
// Events are authored as JSONC files (JSON with comments and trailing
// commas) and loaded with [LoadEvent].
package certify
