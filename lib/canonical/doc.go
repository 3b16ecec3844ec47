// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canonical implements the deterministic JSON encoding that
// every hash and signature in dnaledger is computed over.
//
// Two semantically equal values always encode to byte-identical
// output:
//
//   - Object keys are sorted byte-wise on their UTF-8 encoding, at
//     every nesting level.
//   - No insignificant whitespace: "," and ":" separators only.
//   - Text is emitted as raw UTF-8. Only '"', '\\' and control
//     characters are escaped, using the same escapes as Python's
//     json.dumps(ensure_ascii=False, separators=(",", ":"),
//     sort_keys=True), so ledger files written by either
//     implementation hash identically.
//   - Numbers are encoded by value, as Python writes them. Integers
//     are plain decimal. Floats, whether Go floats or literals with a
//     fraction or exponent, use Python's float repr (1.0, 1.5, 1e-05,
//     1.5e+16), so 1.50 and 1.5 encode alike and an integral float
//     keeps its ".0".
//
// NaN, infinities, invalid UTF-8, non-string map keys and cyclic
// structures are rejected. Go structs are normalised through their
// json struct tags before encoding.
//
// [Digest] is plain SHA-256 with no salt or domain prefix: the output
// must be reproducible by any implementation that knows only the
// canonical form. [ShortDigest] truncates for display; truncations
// below 16 hex characters are not collision resistant and are never
// used as identifiers.
package canonical
