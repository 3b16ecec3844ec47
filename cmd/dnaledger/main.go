// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// dnaledger is the operator CLI for the model provenance ledger:
// certifying training runs, inspecting and archiving the block chain,
// reading and writing entries, and serving the ledger over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/dnaledger/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(ctx, os.Stdout, os.Stderr).root().Execute(os.Args[1:])
	stop()
	process.Exit(err)
}
