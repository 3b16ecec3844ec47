// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package integrity checks that a certified model directory still
// agrees with its own provenance records.
//
// Three sources are read independently: the directory's dna.json, its
// ledger_proof.json (the entry recorded in the ledger), and the
// datasets the entry names. [Verifier.Verify] compares them and
// produces a [Report] with one status per source and an overall
// verdict. Checks stop at the first disagreement that makes further
// checks meaningless: a missing record file, a DNA mismatch, or a
// ledger entry that fails its hash or signature. Every stop is
// explained in Report.Details.
//
// "Could not check" is never reported as "checked and failed". A
// signature verifier that is unavailable, or a ledger service that
// cannot be reached, yields [LedgerUnverified], which does not by
// itself make the overall verdict invalid.
package integrity
