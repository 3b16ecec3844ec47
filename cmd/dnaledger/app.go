// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/clock"
	"github.com/bureau-foundation/dnaledger/lib/config"
	"github.com/bureau-foundation/dnaledger/lib/version"
)

// app carries what every command needs from its environment. Tests
// build one around buffers and a fake clock.
type app struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	clock  clock.Clock

	// newLogger builds the command logger.
	newLogger func(verbose bool) *slog.Logger
}

func newApp(ctx context.Context, stdout, stderr io.Writer) *app {
	return &app{
		ctx:       ctx,
		stdout:    stdout,
		stderr:    stderr,
		clock:     clock.Real(),
		newLogger: cli.NewCommandLogger,
	}
}

// commonParams are the flags every command that touches the ledger
// or models root accepts.
type commonParams struct {
	ConfigFile string `json:"-" flag:"config" desc:"configuration file (default: $DNALEDGER_CONFIG)"`
	LedgerDir  string `json:"-" flag:"ledger" desc:"local ledger directory (overrides paths.ledger and selects the local backend)"`
	ModelsDir  string `json:"-" flag:"models" desc:"models root (overrides paths.models)"`
	Verbose    bool   `json:"-" flag:"verbose,v" desc:"log debug detail"`
}

// loadConfig reads the configuration named by --config or
// DNALEDGER_CONFIG, falling back to defaults when neither is set, and
// applies the path flags.
func (a *app) loadConfig(params *commonParams) (*config.Config, error) {
	path := params.ConfigFile
	if path == "" {
		path = os.Getenv("DNALEDGER_CONFIG")
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
	}

	if params.LedgerDir != "" {
		cfg.Paths.Ledger = params.LedgerDir
		cfg.Ledger.Backend = config.BackendLocal
	}
	if params.ModelsDir != "" {
		cfg.Paths.Models = params.ModelsDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) logger(params *commonParams, command string) *slog.Logger {
	return a.newLogger(params.Verbose).With("command", command)
}

// requireLocal rejects configurations whose ledger is remote, for
// commands that operate on the chain file itself.
func requireLocal(cfg *config.Config, command string) error {
	if cfg.Ledger.Backend != config.BackendLocal {
		return fmt.Errorf("%s needs the local ledger backend (configured: %s)", command, cfg.Ledger.Backend)
	}
	return nil
}

// expectArgs returns a usage error unless exactly n positional
// arguments were given.
func expectArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return cli.Usagef("usage: %s", usage)
	}
	return nil
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name: "dnaledger",
		Description: `dnaledger: provenance ledger for model training artifacts.

Certifies finished training runs into sealed model directories, records
each certification as a signed entry on a hash-chained ledger, and
inspects, archives and serves that ledger.`,
		Subcommands: []*cli.Command{
			a.certifyCommand(),
			a.currentCommand(),
			a.proofsCommand(),
			a.chainCommand(),
			a.entryCommand(),
			a.serveCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					_, err := fmt.Fprintf(a.stdout, "dnaledger %s\n", version.Full())
					return err
				},
			},
		},
		Examples: []cli.Example{
			{Description: "Certify a finished training run", Command: "dnaledger certify --key ~/.config/dnaledger/signing.key run.jsonc"},
			{Description: "Check every block of the local chain", Command: "dnaledger chain verify"},
			{Description: "Archive the chain with zstd compression", Command: "dnaledger chain export ledger.dnla"},
		},
	}
}

// abbreviate shortens long hex identifiers for table output.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
