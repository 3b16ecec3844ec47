// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dnaledger/lib/process"
)

func TestCommand_Execute_Dispatch(t *testing.T) {
	var called string
	root := &Command{
		Name:       "dnaledger",
		HelpOutput: io.Discard,
		Subcommands: []*Command{
			{
				Name: "chain",
				Subcommands: []*Command{
					{Name: "verify", Run: func(args []string) error { called = "chain verify"; return nil }},
					{Name: "list", Run: func(args []string) error { called = "chain list"; return nil }},
				},
			},
		},
	}

	if err := root.Execute([]string{"chain", "list"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "chain list" {
		t.Errorf("called = %q, want %q", called, "chain list")
	}
}

func TestCommand_Execute_FlagsAndArgs(t *testing.T) {
	var output string
	var target string

	command := &Command{
		Name: "export",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("export", pflag.ContinueOnError)
			flagSet.StringVar(&output, "compression", "zstd", "body compression")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--compression", "lz4", "ledger.dnla"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if output != "lz4" {
		t.Errorf("compression = %q, want %q", output, "lz4")
	}
	if target != "ledger.dnla" {
		t.Errorf("target = %q, want %q", target, "ledger.dnla")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "verify",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.Bool("offline", false, "skip the ledger cross-check")
			flagSet.String("dataset-root", "", "dataset root")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--ofline"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	message := err.Error()
	if !strings.Contains(message, "did you mean --offline") {
		t.Errorf("error = %q, want suggestion for '--offline'", message)
	}
	if !strings.Contains(message, "ofline") {
		t.Errorf("error = %q, should mention the bad flag", message)
	}
	if !strings.Contains(message, "--help") {
		t.Errorf("error = %q, should point to --help", message)
	}
	var usage *UsageError
	if !errors.As(err, &usage) || usage.ExitCode() != ExitUsage {
		t.Errorf("error = %#v, want *UsageError", err)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "verify",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.Bool("offline", false, "skip the ledger cross-check")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "dnaledger",
		Subcommands: []*Command{
			{Name: "certify"},
			{Name: "chain"},
			{Name: "entry"},
		},
	}

	err := root.Execute([]string{"chian"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "chain"`) {
		t.Errorf("error = %q, want suggestion for 'chain'", err.Error())
	}

	err = root.Execute([]string{"zzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want error without suggestion", err)
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			var buffer bytes.Buffer
			root := &Command{
				Name:       "dnaledger",
				Summary:    "Model provenance ledger",
				HelpOutput: &buffer,
				Subcommands: []*Command{
					{Name: "chain", Summary: "Block chain operations"},
				},
			}

			if err := root.Execute([]string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
			if !strings.Contains(buffer.String(), "Block chain operations") {
				t.Errorf("help output = %q, want subcommand listing", buffer.String())
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name:       "dnaledger",
		HelpOutput: io.Discard,
		Subcommands: []*Command{
			{Name: "chain", Summary: "Block chain operations"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Errorf("error = %T, want *UsageError", err)
	}
}

func TestCommand_Execute_HelpOutputInherited(t *testing.T) {
	var buffer bytes.Buffer
	root := &Command{
		Name:       "dnaledger",
		HelpOutput: &buffer,
		Subcommands: []*Command{
			{Name: "chain", Subcommands: []*Command{{Name: "verify", Summary: "Verify every block"}}},
		},
	}

	if err := root.Execute([]string{"chain", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(buffer.String(), "dnaledger chain <command>") {
		t.Errorf("help output = %q, want full command path", buffer.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	var exportCompression string
	command := &Command{
		Name:        "dnaledger",
		Description: "Certify model lineage on a hash-chained ledger.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dnaledger", pflag.ContinueOnError)
			flagSet.StringVar(&exportCompression, "config", "", "configuration file")
			return flagSet
		},
		Subcommands: []*Command{
			{Name: "certify", Summary: "Certify a training run"},
			{Name: "chain", Summary: "Block chain operations"},
		},
		Examples: []Example{
			{Description: "Verify the chain", Command: "dnaledger chain verify"},
			{Command: "dnaledger current"},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Certify model lineage on a hash-chained ledger.",
		"Usage:",
		"dnaledger <command> [flags]",
		"Commands:",
		"certify",
		"Certify a training run",
		"Flags:",
		"--config",
		"Examples:",
		"# Verify the chain",
		"dnaledger current",
		"Run 'dnaledger <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		output string
	}{
		{"nil", nil, ExitOK, ""},
		{"silent exit", &ExitError{Code: ExitFailure}, ExitFailure, ""},
		{"exit with message", &ExitError{Code: 3, Message: "chain invalid"}, 3, "error: chain invalid\n"},
		{"usage", Usagef("expected %d argument", 1), ExitUsage, "error: expected 1 argument\n"},
		{"plain", errors.New("boom"), ExitFailure, "error: boom\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buffer bytes.Buffer
			code := process.Report(&buffer, test.err)
			if code != test.code || buffer.String() != test.output {
				t.Errorf("Report(%v) = %d, %q; want %d, %q", test.err, code, buffer.String(), test.code, test.output)
			}
		})
	}
}

func TestEmitJSON(t *testing.T) {
	var buffer bytes.Buffer
	output := JSONOutput{}
	done, err := output.EmitJSON(&buffer, []string{"x"})
	if done || err != nil || buffer.Len() != 0 {
		t.Fatalf("EmitJSON without --json = (%v, %v), wrote %q", done, err, buffer.String())
	}

	output.OutputJSON = true
	var empty []string
	done, err = output.EmitJSON(&buffer, empty)
	if !done || err != nil {
		t.Fatalf("EmitJSON = (%v, %v)", done, err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice emitted as %q, want []", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(&buffer, false, false)
	logger.Debug("hidden")
	logger.Info("shown", "block", 3)
	output := buffer.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("debug record written at info level: %q", output)
	}
	if !strings.Contains(output, `"block":3`) {
		t.Errorf("output = %q, want JSON attribute", output)
	}

	buffer.Reset()
	NewLogger(&buffer, true, true).Debug("detail")
	if !strings.Contains(buffer.String(), "msg=detail") {
		t.Errorf("verbose text output = %q", buffer.String())
	}
}
