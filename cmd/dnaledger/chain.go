// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/archive"
	"github.com/bureau-foundation/dnaledger/lib/atomicfile"
	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/service"
)

func (a *app) chainCommand() *cli.Command {
	return &cli.Command{
		Name:    "chain",
		Summary: "Verify, list, export and restore the local block chain",
		Subcommands: []*cli.Command{
			a.chainVerifyCommand(),
			a.chainListCommand(),
			a.chainExportCommand(),
			a.chainImportCommand(),
		},
	}
}

// openChainReadOnly opens the configured local chain for inspection.
func (a *app) openChainReadOnly(params *commonParams, command string) (*chain.Chain, error) {
	cfg, err := a.loadConfig(params)
	if err != nil {
		return nil, err
	}
	if err := requireLocal(cfg, command); err != nil {
		return nil, err
	}
	return service.OpenChain(cfg, service.LedgerOptions{
		ReadOnly: true,
		Clock:    a.clock,
		Logger:   a.logger(params, command),
	})
}

type chainVerifyParams struct {
	commonParams
	cli.JSONOutput
}

func (a *app) chainVerifyCommand() *cli.Command {
	var params chainVerifyParams
	return &cli.Command{
		Name:    "verify",
		Summary: "Check the hashes and linkage of every block",
		Description: `Check every block of the local chain: block ids, data hashes, block
hashes, genesis placement and previous-hash linkage. Every damaged block
is reported once. Exits 1 when any block fails.`,
		Usage: "dnaledger chain verify [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("chain verify", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 0, "dnaledger chain verify [flags]"); err != nil {
				return err
			}
			opened, err := a.openChainReadOnly(&params.commonParams, "chain verify")
			if err != nil {
				return err
			}
			defer opened.Close()

			report := opened.Verify()
			if done, err := params.EmitJSON(a.stdout, report); done {
				if err == nil && !report.Valid {
					err = &cli.ExitError{Code: cli.ExitFailure}
				}
				return err
			}

			for _, blockError := range report.Errors {
				fmt.Fprintln(a.stdout, blockError.Error())
			}
			if !report.Valid {
				fmt.Fprintf(a.stdout, "chain INVALID: %d of %d blocks damaged\n", len(report.Errors), report.TotalBlocks)
				return &cli.ExitError{Code: cli.ExitFailure}
			}
			_, err = fmt.Fprintf(a.stdout, "chain valid: %d of %d blocks verified\n", report.VerifiedBlocks, report.TotalBlocks)
			return err
		},
	}
}

type chainListParams struct {
	commonParams
	cli.JSONOutput
	EventType string `json:"-" flag:"event" desc:"only blocks of this event type"`
	Limit     int    `json:"-" flag:"limit" desc:"newest blocks to show (0 for all)" default:"20"`
}

func (a *app) chainListCommand() *cli.Command {
	var params chainListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List blocks, newest last",
		Usage:   "dnaledger chain list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("chain list", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 0, "dnaledger chain list [flags]"); err != nil {
				return err
			}
			opened, err := a.openChainReadOnly(&params.commonParams, "chain list")
			if err != nil {
				return err
			}
			defer opened.Close()

			blocks := opened.Blocks(chain.Filter{EventType: params.EventType, Limit: params.Limit})
			if done, err := params.EmitJSON(a.stdout, blocks); done {
				return err
			}

			writer := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "BLOCK\tTIMESTAMP\tEVENT\tVALIDATOR\tHASH")
			for _, block := range blocks {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", block.BlockID, block.Timestamp, block.EventType,
					abbreviate(block.Signatures.Validator, 16), abbreviate(block.CurrentHash, 16))
			}
			return writer.Flush()
		},
	}
}

type chainExportParams struct {
	commonParams
	Compression string `json:"-" flag:"compression" desc:"body compression: none, lz4 or zstd" default:"zstd"`
}

func (a *app) chainExportCommand() *cli.Command {
	var params chainExportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Write the chain to a checksummed archive",
		Description: `Write a snapshot of the local chain to an archive file. The archive
carries the canonical ledger body, optionally compressed, and a keyed
BLAKE3 checksum. Use "-" to write to stdout.`,
		Usage: "dnaledger chain export [flags] FILE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("chain export", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger chain export [flags] FILE"); err != nil {
				return err
			}
			compression, err := archive.ParseCompression(params.Compression)
			if err != nil {
				return cli.Usagef("%v", err)
			}
			opened, err := a.openChainReadOnly(&params.commonParams, "chain export")
			if err != nil {
				return err
			}
			defer opened.Close()

			snapshot := opened.Snapshot()
			if len(snapshot.Blocks) == 0 {
				return fmt.Errorf("ledger %s has no blocks to export", opened.Path())
			}

			var buffer bytes.Buffer
			if err := archive.Export(&buffer, snapshot, compression); err != nil {
				return err
			}
			if args[0] == "-" {
				_, err := a.stdout.Write(buffer.Bytes())
				return err
			}
			if err := atomicfile.Write(args[0], buffer.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing archive: %w", err)
			}
			a.logger(&params.commonParams, "chain export").Info("chain exported",
				"path", args[0],
				"blocks", len(snapshot.Blocks),
				"compression", compression.String(),
				"bytes", buffer.Len(),
			)
			return nil
		},
	}
}

type chainImportParams struct {
	commonParams
}

func (a *app) chainImportCommand() *cli.Command {
	var params chainImportParams
	return &cli.Command{
		Name:    "import",
		Summary: "Restore the chain from an archive into an empty ledger directory",
		Description: `Read an archive written by "chain export", check its checksum and every
block, and write it as the ledger of the configured directory. The
directory must not already hold a ledger. Use "-" to read from stdin.`,
		Usage: "dnaledger chain import [flags] FILE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("chain import", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger chain import [flags] FILE"); err != nil {
				return err
			}
			cfg, err := a.loadConfig(&params.commonParams)
			if err != nil {
				return err
			}
			if err := requireLocal(cfg, "chain import"); err != nil {
				return err
			}
			logger := a.logger(&params.commonParams, "chain import")

			file, err := readArchive(args[0])
			if err != nil {
				return err
			}
			if report := chain.VerifyBlocks(file.Blocks); !report.Valid {
				for _, blockError := range report.Errors {
					fmt.Fprintln(a.stderr, blockError.Error())
				}
				return fmt.Errorf("archive %s: %w: %d of %d blocks damaged", args[0], chain.ErrInvalidChain, len(report.Errors), report.TotalBlocks)
			}

			restored, err := chain.Restore(cfg.Paths.Ledger, file, chain.Options{
				Clock:     a.clock,
				Logger:    logger,
				MaxBlocks: cfg.Ledger.MaxBlocks,
				Lock:      cfg.Ledger.Lock,
			})
			if err != nil {
				return err
			}
			defer restored.Close()

			logger.Info("chain restored", "path", restored.Path(), "blocks", restored.Len())
			_, err = fmt.Fprintf(a.stdout, "restored %d blocks into %s\n", restored.Len(), cfg.Paths.Ledger)
			return err
		},
	}
}

func readArchive(path string) (chain.LedgerFile, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return chain.LedgerFile{}, fmt.Errorf("opening archive: %w", err)
		}
		defer file.Close()
		reader = file
	}
	ledgerFile, err := archive.Import(reader)
	if err != nil {
		return chain.LedgerFile{}, fmt.Errorf("reading archive %s: %w", path, err)
	}
	return ledgerFile, nil
}
