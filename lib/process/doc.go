// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the dnaledger
// binaries: reporting an error that occurs before the structured
// logger exists, and mapping a returned error to a process exit code.
package process
