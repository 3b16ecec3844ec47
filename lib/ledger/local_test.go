// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/clock"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chainOptions() chain.Options {
	fake := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	fake.AutoStep(time.Millisecond)
	return chain.Options{Clock: fake, Logger: discardLogger()}
}

func newLocal(t *testing.T, directory string) *Local {
	t.Helper()
	ledgerChain, err := chain.Open(directory, chainOptions())
	if err != nil {
		t.Fatalf("chain.Open: %v", err)
	}
	t.Cleanup(func() { ledgerChain.Close() })
	return NewLocal(ledgerChain, LocalOptions{Logger: discardLogger()})
}

func TestLocalUnsignedEntryRoundTrip(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx := context.Background()

	entry := sampleEntry()
	id, err := local.WriteEntry(ctx, entry)
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if id != entry.ImmutableHash {
		t.Errorf("id %s is not the immutable hash %s", id, entry.ImmutableHash)
	}

	read, err := local.ReadEntry(ctx, id)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if read.DNA != entry.DNA || read.ImmutableHash != id || read.Signed() {
		t.Errorf("ReadEntry = %+v", read)
	}
	valid, err := local.VerifyEntry(ctx, id)
	if err != nil || !valid {
		t.Errorf("VerifyEntry = %v, %v; want true", valid, err)
	}

	block, _ := local.Chain().Head()
	if block.EventType != EventTrainingComplete || block.Signatures.Validator != chain.DefaultValidator {
		t.Errorf("block event_type %q validator %q", block.EventType, block.Signatures.Validator)
	}
}

func TestLocalWriteOnce(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx := context.Background()

	first := sampleEntry()
	id, err := local.WriteEntry(ctx, first)
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	// Same content, now signed: same immutable hash, different payload.
	second := sampleEntry()
	if err := second.Sign(testSigner(t, "writer")); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := local.WriteEntry(ctx, second); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("second WriteEntry error = %v, want ErrDuplicateEntry", err)
	}

	read, err := local.ReadEntry(ctx, id)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if read.Signed() {
		t.Error("ReadEntry returned the rejected second payload")
	}
	if local.Chain().Len() != 2 {
		t.Errorf("chain Len = %d, want 2", local.Chain().Len())
	}
}

func TestLocalSignedEntry(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx := context.Background()
	signer := testSigner(t, "writer")

	entry := sampleEntry()
	if err := entry.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	id, err := local.WriteEntry(ctx, entry)
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	valid, err := local.VerifyEntry(ctx, id)
	if err != nil || !valid {
		t.Errorf("VerifyEntry = %v, %v; want true", valid, err)
	}
	block, _ := local.Chain().Head()
	if block.Signatures.Validator != signer.PublicKeyHex() {
		t.Errorf("validator = %q, want signer public key", block.Signatures.Validator)
	}

	unavailable := NewLocal(local.Chain(), LocalOptions{
		Verifier: signing.UnavailableVerifier{Reason: "verification disabled"},
		Logger:   discardLogger(),
	})
	if _, err := unavailable.VerifyEntry(ctx, id); !errors.Is(err, signing.ErrUnavailable) {
		t.Errorf("VerifyEntry with unavailable verifier error = %v, want ErrUnavailable", err)
	}
}

func TestLocalRejectsForgedHash(t *testing.T) {
	local := newLocal(t, t.TempDir())
	entry := sampleEntry()
	entry.ImmutableHash = "0000000000000000000000000000000000000000000000000000000000000000"
	if _, err := local.WriteEntry(context.Background(), entry); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("WriteEntry error = %v, want ErrInvalidEntry", err)
	}
}

func TestLocalNotFound(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx := context.Background()
	if _, err := local.ReadEntry(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadEntry error = %v, want ErrNotFound", err)
	}
	if _, err := local.VerifyEntry(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("VerifyEntry error = %v, want ErrNotFound", err)
	}
}

func TestLocalListEntries(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx := context.Background()
	for _, version := range []string{"1.0", "1.1", "1.2"} {
		entry := sampleEntry()
		entry.Version = version
		if _, err := local.WriteEntry(ctx, entry); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}
	// Non-entry blocks are not listed.
	if _, err := local.Chain().Append("note", map[string]any{"text": "hello"}, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}

	all, err := local.ListEntries(ctx, 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListEntries(0) = %d entries, want 3", len(all))
	}
	newest, err := local.ListEntries(ctx, 2)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(newest) != 2 || newest[0].Version != "1.1" || newest[1].Version != "1.2" {
		t.Errorf("ListEntries(2) versions = %v", []string{newest[0].Version, newest[1].Version})
	}
}

func TestLocalIndexRebuiltOnReopen(t *testing.T) {
	directory := t.TempDir()
	ctx := context.Background()

	ledgerChain, err := chain.Open(directory, chainOptions())
	if err != nil {
		t.Fatalf("chain.Open: %v", err)
	}
	id, err := NewLocal(ledgerChain, LocalOptions{Logger: discardLogger()}).WriteEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	ledgerChain.Close()

	reopened := newLocal(t, directory)
	if _, err := reopened.ReadEntry(ctx, id); err != nil {
		t.Fatalf("ReadEntry after reopen: %v", err)
	}
	if _, err := reopened.WriteEntry(ctx, sampleEntry()); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("WriteEntry after reopen error = %v, want ErrDuplicateEntry", err)
	}
}

func TestLocalVerifyDetectsTampering(t *testing.T) {
	directory := t.TempDir()
	ctx := context.Background()

	ledgerChain, err := chain.Open(directory, chainOptions())
	if err != nil {
		t.Fatalf("chain.Open: %v", err)
	}
	id, err := NewLocal(ledgerChain, LocalOptions{Logger: discardLogger()}).WriteEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	ledgerChain.Close()

	path := filepath.Join(directory, chain.LedgerFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := bytes.Replace(data, []byte(`"model": "M"`), []byte(`"model": "X"`), 1)
	if bytes.Equal(tampered, data) {
		t.Fatal("test fixture did not find the model field to tamper with")
	}
	if err := os.WriteFile(path, tampered, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reopened := newLocal(t, directory)
	valid, err := reopened.VerifyEntry(ctx, id)
	if err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
	if valid {
		t.Error("tampered entry verified as valid")
	}
}

func TestLocalCanceledContext(t *testing.T) {
	local := newLocal(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := local.WriteEntry(ctx, sampleEntry()); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteEntry error = %v, want context.Canceled", err)
	}
}

func TestLocalStoresEntryAsBlockData(t *testing.T) {
	local := newLocal(t, t.TempDir())
	entry := sampleEntry()
	if _, err := local.WriteEntry(context.Background(), entry); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	block, _ := local.Chain().Head()
	var stored map[string]any
	if err := json.Unmarshal(block.Data, &stored); err != nil {
		t.Fatalf("block data: %v", err)
	}
	if stored["immutable_hash"] != entry.ImmutableHash {
		t.Errorf("block data immutable_hash = %v", stored["immutable_hash"])
	}
}
