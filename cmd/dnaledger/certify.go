// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/certify"
	"github.com/bureau-foundation/dnaledger/lib/modeldir"
	"github.com/bureau-foundation/dnaledger/lib/service"
)

type certifyParams struct {
	commonParams
	cli.JSONOutput
	KeyFile     string `json:"-" flag:"key" desc:"Ed25519 signing key file (overrides signing.key_file)"`
	DatasetRoot string `json:"-" flag:"dataset-root" desc:"base for relative dataset paths (overrides paths.datasets)"`
}

func (a *app) certifyCommand() *cli.Command {
	var params certifyParams
	return &cli.Command{
		Name:    "certify",
		Summary: "Certify a finished training run",
		Description: `Certify a finished training run described by a JSON or JSONC event file.

Hashes the datasets and weights, builds the model DNA, creates the
model directory, records a signed ledger entry, writes the ledger proof,
seals the directory and points "current" at it. Re-running a
certification that was interrupted after the ledger write resumes it.`,
		Usage: "dnaledger certify [flags] EVENT_FILE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("certify", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger certify [flags] EVENT_FILE"); err != nil {
				return err
			}
			return a.runCertify(&params, args[0])
		},
	}
}

func (a *app) runCertify(params *certifyParams, eventFile string) error {
	cfg, err := a.loadConfig(&params.commonParams)
	if err != nil {
		return err
	}
	if params.KeyFile != "" {
		cfg.Signing.KeyFile = params.KeyFile
	}
	if params.DatasetRoot != "" {
		cfg.Paths.Datasets = params.DatasetRoot
	}
	logger := a.logger(&params.commonParams, "certify")

	event, err := certify.LoadEvent(eventFile)
	if err != nil {
		return err
	}
	signer, err := service.Signer(cfg)
	if err != nil {
		return err
	}
	if signer == nil {
		logger.Warn("no signing key configured, recording an unsigned entry")
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	opened, err := service.OpenLedger(cfg, service.LedgerOptions{Clock: a.clock, Logger: logger})
	if err != nil {
		return err
	}
	defer opened.Close()

	certifier := &certify.Certifier{
		Root:        cfg.Paths.Models,
		DatasetRoot: cfg.Paths.Datasets,
		Ledger:      opened.Client,
		Signer:      signer,
		Pointer:     &modeldir.Pointer{Logger: logger},
		Clock:       a.clock,
		Logger:      logger,
	}
	result, err := certifier.Certify(a.ctx, event)
	if err != nil {
		return err
	}

	if done, err := params.EmitJSON(a.stdout, result); done {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "certified %s\n  dna:            %s\n  immutable_hash: %s\n  signed:         %t\n",
		filepath.Base(result.Directory), result.DNA, result.ImmutableHash, result.Entry.Signed())
	return err
}
