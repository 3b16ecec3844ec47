// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for dnaledger
// binaries.
//
// Configuration is loaded from a single file specified by either the
// DNALEDGER_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no automatic file
// search. Binaries run without a config file use [Default] plus their
// flags.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: the
// ledger writer lock is taken and entries must be signed.
//
// Variable expansion is performed on path and URL fields after
// loading: ${HOME}, ${DNALEDGER_ROOT}, and ${VAR:-default} patterns
// are expanded.
//
// This package depends on no other dnaledger packages.
package config
