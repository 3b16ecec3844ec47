// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework shared by the dnaledger
// binaries: a command tree with typo suggestions, struct-tag flag
// binding over pflag, JSON output helpers, and exit-code signalling.
package cli
