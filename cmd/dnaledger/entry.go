// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/dnaledger/cmd/dnaledger/cli"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
	"github.com/bureau-foundation/dnaledger/lib/service"
)

func (a *app) entryCommand() *cli.Command {
	return &cli.Command{
		Name:    "entry",
		Summary: "Write, read, verify and list ledger entries",
		Description: `Operate on ledger entries through the configured ledger client: the
local chain or a remote ledger service.`,
		Subcommands: []*cli.Command{
			a.entryWriteCommand(),
			a.entryReadCommand(),
			a.entryVerifyCommand(),
			a.entryListCommand(),
		},
	}
}

// openLedger opens the configured ledger client. Read-only callers
// never take the writer lock.
func (a *app) openLedger(params *commonParams, command string, readOnly bool) (*service.Ledger, error) {
	cfg, err := a.loadConfig(params)
	if err != nil {
		return nil, err
	}
	return service.OpenLedger(cfg, service.LedgerOptions{
		ReadOnly: readOnly,
		Clock:    a.clock,
		Logger:   a.logger(params, command),
	})
}

type entryWriteParams struct {
	commonParams
	cli.JSONOutput
	KeyFile string `json:"-" flag:"key" desc:"sign the entry with this Ed25519 key file (overrides signing.key_file)"`
}

type entryWriteResult struct {
	EntryID string `json:"entry_id"`
	Signed  bool   `json:"signed"`
}

func (a *app) entryWriteCommand() *cli.Command {
	var params entryWriteParams
	return &cli.Command{
		Name:    "write",
		Summary: "Record an entry from a JSON file",
		Description: `Record the entry in a JSON or JSONC file. A missing immutable_hash is
computed; a present one must match the content. Unsigned entries are
signed when a key is configured. Use "-" to read from stdin.`,
		Usage: "dnaledger entry write [flags] FILE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("entry write", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger entry write [flags] FILE"); err != nil {
				return err
			}
			entry, err := readEntryFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig(&params.commonParams)
			if err != nil {
				return err
			}
			if params.KeyFile != "" {
				cfg.Signing.KeyFile = params.KeyFile
			}
			if !entry.Signed() {
				signer, err := service.Signer(cfg)
				if err != nil {
					return err
				}
				if signer != nil {
					if err := entry.Sign(signer); err != nil {
						return err
					}
				}
			}
			if err := entry.Validate(); err != nil {
				return err
			}

			opened, err := service.OpenLedger(cfg, service.LedgerOptions{
				Clock:  a.clock,
				Logger: a.logger(&params.commonParams, "entry write"),
			})
			if err != nil {
				return err
			}
			defer opened.Close()

			id, err := opened.Client.WriteEntry(a.ctx, entry)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.stdout, entryWriteResult{EntryID: id, Signed: entry.Signed()}); done {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, id)
			return err
		},
	}
}

func readEntryFile(path string) (*ledger.Entry, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry: %w", err)
	}
	var entry ledger.Entry
	if err := json.Unmarshal(jsonc.ToJSON(data), &entry); err != nil {
		return nil, fmt.Errorf("parsing entry %s: %w", path, err)
	}
	return &entry, nil
}

type entryReadParams struct {
	commonParams
}

func (a *app) entryReadCommand() *cli.Command {
	var params entryReadParams
	return &cli.Command{
		Name:    "read",
		Summary: "Print an entry as JSON",
		Usage:   "dnaledger entry read [flags] ENTRY_ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("entry read", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger entry read [flags] ENTRY_ID"); err != nil {
				return err
			}
			opened, err := a.openLedger(&params.commonParams, "entry read", true)
			if err != nil {
				return err
			}
			defer opened.Close()

			entry, err := opened.Client.ReadEntry(a.ctx, args[0])
			if err != nil {
				return err
			}
			return cli.WriteJSON(a.stdout, entry)
		},
	}
}

type entryVerifyParams struct {
	commonParams
	cli.JSONOutput
}

type entryVerifyResult struct {
	EntryID string `json:"entry_id"`
	Valid   bool   `json:"valid"`
}

func (a *app) entryVerifyCommand() *cli.Command {
	var params entryVerifyParams
	return &cli.Command{
		Name:    "verify",
		Summary: "Check an entry's hash, block and signature",
		Description: `Ask the ledger whether the entry still verifies: its immutable hash
matches its content, its block is intact, and its signature (when
present) is valid. Exits 1 when it does not.`,
		Usage: "dnaledger entry verify [flags] ENTRY_ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("entry verify", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 1, "dnaledger entry verify [flags] ENTRY_ID"); err != nil {
				return err
			}
			opened, err := a.openLedger(&params.commonParams, "entry verify", true)
			if err != nil {
				return err
			}
			defer opened.Close()

			valid, err := opened.Client.VerifyEntry(a.ctx, args[0])
			if err != nil {
				return err
			}
			result := entryVerifyResult{EntryID: args[0], Valid: valid}
			if done, err := params.EmitJSON(a.stdout, result); done {
				if err != nil {
					return err
				}
			} else {
				verdict := "valid"
				if !valid {
					verdict = "INVALID"
				}
				if _, err := fmt.Fprintf(a.stdout, "%s: %s\n", args[0], verdict); err != nil {
					return err
				}
			}
			if !valid {
				return &cli.ExitError{Code: cli.ExitFailure}
			}
			return nil
		},
	}
}

type entryListParams struct {
	commonParams
	cli.JSONOutput
	Limit int `json:"-" flag:"limit" desc:"newest entries to show (0 for all)" default:"20"`
}

func (a *app) entryListCommand() *cli.Command {
	var params entryListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List entries, oldest first",
		Usage:   "dnaledger entry list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("entry list", &params)
		},
		Run: func(args []string) error {
			if err := expectArgs(args, 0, "dnaledger entry list [flags]"); err != nil {
				return err
			}
			opened, err := a.openLedger(&params.commonParams, "entry list", true)
			if err != nil {
				return err
			}
			defer opened.Close()

			entries, err := opened.Client.ListEntries(a.ctx, params.Limit)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.stdout, entries); done {
				return err
			}

			writer := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "ENTRY\tMODEL\tVERSION\tDNA\tSIGNED\tTIMESTAMP")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%t\t%s\n", abbreviate(entry.ImmutableHash, 16),
					entry.Model, entry.Version, entry.DNA, entry.Signed(), entry.Timestamp)
			}
			return writer.Flush()
		},
	}
}
