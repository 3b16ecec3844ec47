// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes SHA-256 content hashes of dataset and model
// weight files.
//
// These hashes are what a certified model directory records about its
// inputs, and what the integrity verifier recomputes later to decide
// whether a dataset is unchanged, modified or missing. Files are
// streamed, so hashing a multi-gigabyte weights file uses constant
// memory. Digests are returned as lowercase hex, the same form the
// ledger stores.
//
// This package has no dependencies on other dnaledger packages.
package binhash
