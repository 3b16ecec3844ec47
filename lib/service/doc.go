// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the scaffolding shared by dnaledger
// binaries: turning a loaded [config.Config] into a ledger client, a
// signer, and a signature verifier, and serving the ledger HTTP
// protocol with graceful shutdown.
//
// Binaries compose these pieces in their own main() rather than
// subclassing a framework. The package provides building blocks, not
// a runtime.
package service
