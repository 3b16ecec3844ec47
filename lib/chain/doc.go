// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chain implements the append-only, hash-linked block log that
// backs the provenance ledger.
//
// A chain lives in one directory as a single JSON file, ledger.json:
//
//	{"blocks": [...], "last_updated": "...", "block_count": N}
//
// Block 0 is the genesis block, with previous_hash set to 64 zeros.
// Every later block links to its predecessor through previous_hash, and
// carries
//
//	current_hash = SHA256(decimal(block_id) || timestamp || previous_hash || data_hash)
//	data_hash    = SHA256(canonical(data))
//
// with data_hash stored under signatures.data_hash. Because data is
// kept as canonical JSON bytes, these hashes are reproducible by any
// implementation of the same canonical form.
//
// Every [Chain.Append] rewrites the whole file through
// lib/atomicfile. There is no partial append, so a crash leaves either
// the previous chain or the new one. The price is that each append
// costs O(chain length); [DefaultMaxBlocks] caps the chain well below
// the point where that matters.
//
// A ledger file that cannot be parsed is never silently discarded.
// [Open] renames it to ledger.<UTC timestamp>.corrupted.bak, logs a
// warning, and starts a fresh chain with a new genesis block.
// [Chain.Recovered] reports the backup path. Parseable files with
// broken hashes are a different matter: they load normally, and
// [Chain.Verify] reports every damaged block. Integrity violations are
// reported, never repaired.
//
// One process at a time may write a chain directory. [Options.Lock]
// enforces this with an flock(2) on ledger.lock where the platform
// supports it.
package chain
