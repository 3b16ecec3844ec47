// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive moves a ledger between machines as a single
// compressed, checksummed file.
//
// Layout:
//
//	offset  size  field
//	0       4     magic "DNLA"
//	4       1     format version (1)
//	5       1     compression tag (0 none, 1 lz4, 2 zstd)
//	6       8     uncompressed body length, big-endian
//	14      n     body, compressed per the tag
//	14+n    32    BLAKE3 keyed hash of the uncompressed body
//
// The body is the canonical JSON encoding of a chain.LedgerFile. The
// trailer uses BLAKE3 keyed mode with the domain key
// "dnaledger.archive", so an archive checksum can never be confused
// with a hash from another context.
//
// The checksum only proves the archive was not damaged in transit.
// Whether the ledger inside is intact is a separate question:
// callers run chain.VerifyBlocks on the imported file, and
// chain.Restore refuses a ledger that fails it.
package archive
