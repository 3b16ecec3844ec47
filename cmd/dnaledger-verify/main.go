// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// dnaledger-verify checks a certified model directory against its DNA,
// its ledger proof and the datasets it was trained on.
//
// The JSON report goes to stdout and a short summary to stderr. The
// exit status is 0 when the overall verdict is VALID, 1 when it is
// INVALID or the check could not run, and 2 for usage errors.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/config"
	"github.com/bureau-foundation/dnaledger/lib/integrity"
	"github.com/bureau-foundation/dnaledger/lib/process"
	"github.com/bureau-foundation/dnaledger/lib/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := command(ctx, os.Stdout, os.Stderr, cli.NewCommandLogger).Execute(os.Args[1:])
	stop()
	process.Exit(err)
}

type verifyParams struct {
	ConfigFile  string `json:"-" flag:"config" desc:"configuration file (default: $DNALEDGER_CONFIG)"`
	DatasetRoot string `json:"-" flag:"dataset-root" desc:"base for relative dataset paths (overrides paths.datasets)"`
	LedgerDir   string `json:"-" flag:"ledger" desc:"cross-check against this local ledger directory"`
	Offline     bool   `json:"-" flag:"offline" desc:"skip the ledger cross-check"`
	Quiet       bool   `json:"-" flag:"quiet,q" desc:"omit the summary on stderr"`
	Verbose     bool   `json:"-" flag:"verbose,v" desc:"log debug detail"`
}

func command(ctx context.Context, stdout, stderr io.Writer, newLogger func(verbose bool) *slog.Logger) *cli.Command {
	var params verifyParams
	return &cli.Command{
		Name: "dnaledger-verify",
		Description: `Verify a certified model directory.

Checks that dna.json and ledger_proof.json agree, that the proof's
immutable hash and signature are intact, that the configured ledger
still holds the entry, and that every recorded dataset still hashes to
its recorded value. Prints the JSON report on stdout and a summary on
stderr.

Exit status: 0 VALID, 1 INVALID or not checked, 2 usage error.`,
		Usage: "dnaledger-verify [flags] MODEL_DIR",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dnaledger-verify", &params)
		},
		Examples: []cli.Example{
			{Description: "Verify the current model", Command: "dnaledger-verify ~/.cache/dnaledger/models/current"},
			{Description: "Verify without consulting the ledger", Command: "dnaledger-verify --offline --dataset-root /data models/M.v1.0.en.dsCivic.1a2b3c4d"},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usagef("usage: dnaledger-verify [flags] MODEL_DIR")
			}
			return run(ctx, &params, args[0], stdout, stderr, newLogger(params.Verbose))
		},
	}
}

func run(ctx context.Context, params *verifyParams, directory string, stdout, stderr io.Writer, logger *slog.Logger) error {
	cfg, err := loadConfig(params)
	if err != nil {
		return err
	}

	verifier := &integrity.Verifier{
		DatasetRoot:     cfg.Paths.Datasets,
		SigningVerifier: service.SigningVerifier(cfg),
		Logger:          logger,
	}
	if !params.Offline {
		opened, err := service.OpenLedger(cfg, service.LedgerOptions{ReadOnly: true, Logger: logger})
		if err != nil {
			// The directory can still be checked on its own; the
			// report simply carries no cross-check.
			logger.Warn("ledger unavailable, skipping cross-check", "error", err)
		} else {
			defer opened.Close()
			if opened.Chain != nil && opened.Chain.Len() == 0 {
				logger.Warn("local ledger is empty, skipping cross-check", "path", cfg.Paths.Ledger)
			} else {
				verifier.Ledger = opened.Client
			}
		}
	}

	report, err := verifier.Verify(ctx, directory)
	if err != nil {
		return err
	}
	if err := cli.WriteJSON(stdout, report); err != nil {
		return err
	}
	if !params.Quiet {
		if err := report.WriteSummary(stderr); err != nil {
			return err
		}
	}
	if !report.Valid() {
		return &cli.ExitError{Code: cli.ExitFailure}
	}
	return nil
}

func loadConfig(params *verifyParams) (*config.Config, error) {
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
	if params.DatasetRoot != "" {
		cfg.Paths.Datasets = params.DatasetRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
