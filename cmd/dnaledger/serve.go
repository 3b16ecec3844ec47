// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/service"
)

type serveParams struct {
	commonParams
	Listen string `json:"-" flag:"listen" desc:"TCP listen address (overrides server.listen)"`
}

func (a *app) serveCommand() *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Serve the local ledger over HTTP",
		Description: `Serve the local chain with the ledger HTTP protocol, so other hosts can
use it as their "http" ledger backend:

  POST /entries, GET /entries, GET /entries/{id},
  GET /entries/{id}/verify, GET /health

Runs until interrupted, then drains in-flight requests.`,
		Usage: "dnaledger serve [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("serve", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 0, "dnaledger serve [flags]"); err != nil {
				return err
			}
			cfg, err := a.loadConfig(&params.commonParams)
			if err != nil {
				return err
			}
			if err := requireLocal(cfg, "serve"); err != nil {
				return err
			}
			if params.Listen != "" {
				cfg.Server.Listen = params.Listen
			}
			logger := a.logger(&params.commonParams, "serve")

			opened, err := service.OpenLedger(cfg, service.LedgerOptions{Clock: a.clock, Logger: logger})
			if err != nil {
				return err
			}
			defer opened.Close()

			server, err := service.NewServer(service.ServerConfig{
				Address: cfg.Server.Listen,
				Ledger:  opened.Client,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			return server.Serve(a.ctx)
		},
	}
}
