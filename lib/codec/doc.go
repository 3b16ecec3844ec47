// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for on-disk binary
// records.
//
// The ledger itself is JSON: the file format is shared with other
// implementations and every hash is defined over canonical JSON (see
// lib/canonical). CBOR is used only for secondary local state that no
// other implementation reads, currently the proof index kept next to
// certified model directories. That index is a CBOR sequence (RFC
// 8742): records are appended one after another with no framing, so an
// append is a single write and a crash can at worst leave a truncated
// tail, which [ReadSequence] tolerates.
//
// Types shared with JSON use `json` struct tags only; fxamacker/cbor
// reads them as a fallback, so one tag controls naming in both
// formats.
package codec
