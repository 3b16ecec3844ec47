// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/clock"
	"github.com/bureau-foundation/dnaledger/lib/modeldir"
)

type currentParams struct {
	commonParams
	cli.JSONOutput
}

type currentResult struct {
	Name      string             `json:"name"`
	Directory string             `json:"directory"`
	Metadata  *modeldir.Metadata `json:"metadata"`
}

func (a *app) currentCommand() *cli.Command {
	var params currentParams
	return &cli.Command{
		Name:    "current",
		Summary: "Show the most recently certified model directory",
		Usage:   "dnaledger current [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("current", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 0, "dnaledger current [flags]"); err != nil {
				return err
			}
			cfg, err := a.loadConfig(&params.commonParams)
			if err != nil {
				return err
			}

			name, err := modeldir.ReadCurrent(cfg.Paths.Models)
			if err != nil {
				return err
			}
			directory := filepath.Join(cfg.Paths.Models, name)
			metadata, err := modeldir.ReadMetadata(directory)
			if err != nil && !errors.Is(err, modeldir.ErrMissingArtifact) {
				return err
			}

			if done, err := params.EmitJSON(a.stdout, currentResult{Name: name, Directory: directory, Metadata: metadata}); done {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, name)
			return err
		},
	}
}

type proofsParams struct {
	commonParams
	cli.JSONOutput
}

func (a *app) proofsCommand() *cli.Command {
	var params proofsParams
	return &cli.Command{
		Name:    "proofs",
		Summary: "List the proof index, or look up one DNA",
		Description: `List the records of the models root's proof index, oldest first.

With a DNA argument, print only the latest record for that DNA. The
index is a convenience for finding directories; the ledger remains the
source of truth.`,
		Usage: "dnaledger proofs [flags] [DNA]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("proofs", &params)
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return cli.Usagef("usage: dnaledger proofs [flags] [DNA]")
			}
			cfg, err := a.loadConfig(&params.commonParams)
			if err != nil {
				return err
			}
			index := modeldir.OpenProofIndex(cfg.Paths.Models)

			var records []modeldir.ProofRecord
			if len(args) == 1 {
				record, found, err := index.Lookup(args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no proof recorded for DNA %s", args[0])
				}
				records = []modeldir.ProofRecord{record}
			} else if records, err = index.All(); err != nil {
				return err
			}

			if done, err := params.EmitJSON(a.stdout, records); done {
				return err
			}
			writer := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "DIRECTORY\tDNA\tIMMUTABLE HASH\tRECORDED")
			for _, record := range records {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", record.Directory, record.DNA, abbreviate(record.ImmutableHash, 16), clock.Timestamp(record.RecordedAt))
			}
			return writer.Flush()
		},
	}
}
