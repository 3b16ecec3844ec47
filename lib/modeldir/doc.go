// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package modeldir manages certified model directories and the
// "current" pointer that selects the active one.
//
// A certified directory is named by its DNA (see lib/dna
// DirectoryName) and lives directly under a models root:
//
//	<root>/
//	  current                       -> M.v1.0.en.dsCivic.1a2b....9c8d...
//	  ledger_proof_index.cbor
//	  M.v1.0.en.dsCivic.1a2b....9c8d.../
//	    dna.json
//	    ledger_proof.json
//	    metadata.json
//	    <model artifacts>
//
// Directory contents are written once. metadata.json moves from
// status "pending" to "completed" when certification finishes, after
// which every record write in the directory fails with [ErrSealed].
//
// current is the only mutable entity. [Pointer.Update] replaces it
// atomically: normally with a symlink created beside it and renamed
// over it, or, on filesystems without symlinks, with a marker file
// holding the directory name, written to a temporary file and renamed
// over it. [ReadCurrent] accepts either form. A crash never leaves
// current empty or half-written.
//
// [ProofIndex] is a convenience lookup from DNA to directory and
// ledger entry. The ledger chain remains the source of truth.
package modeldir
