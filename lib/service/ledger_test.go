// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/config"
	"github.com/bureau-foundation/dnaledger/lib/dna"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Root = root
	cfg.Paths.Ledger = filepath.Join(root, "ledger")
	cfg.Paths.Models = filepath.Join(root, "models")
	return cfg
}

func sampleEntry() *ledger.Entry {
	return &ledger.Entry{
		Event:   ledger.EventTrainingComplete,
		Model:   "M",
		Version: "1.0",
		DNA:     "M.v1.0.aaaaaaaa.bbbbbbbb.cccccccc",
		DatasetHashes: []dna.DatasetHash{
			{Path: "data/civic.jsonl", Hash: canonical.Digest([]byte("civic"))},
		},
		FinalWeights: map[string]float64{"a": 0.6, "b": 0.4},
		Timestamp:    "2025-01-01T00:00:00Z",
	}
}

func TestOpenLedgerLocal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Lock = true
	cfg.Ledger.Validator = "trainer-01"

	opened, err := OpenLedger(cfg, LedgerOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer opened.Close()
	if opened.Chain == nil {
		t.Fatal("local backend returned no chain")
	}

	id, err := opened.Client.WriteEntry(context.Background(), sampleEntry())
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	head, _ := opened.Chain.Head()
	if head.Signatures.Validator != "trainer-01" {
		t.Errorf("validator = %q, want the configured name", head.Signatures.Validator)
	}
	if valid, err := opened.Client.VerifyEntry(context.Background(), id); err != nil || !valid {
		t.Errorf("VerifyEntry = %v, %v", valid, err)
	}

	// The writer lock excludes a second writer but not a reader.
	if _, err := OpenLedger(cfg, LedgerOptions{Logger: discardLogger()}); !errors.Is(err, chain.ErrLocked) {
		t.Errorf("second writer: err = %v, want ErrLocked", err)
	}
	reader, err := OpenLedger(cfg, LedgerOptions{ReadOnly: true, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("read-only OpenLedger: %v", err)
	}
	defer reader.Close()
	if _, err := reader.Client.ReadEntry(context.Background(), id); err != nil {
		t.Errorf("read-only ReadEntry: %v", err)
	}
}

func TestOpenLedgerHTTP(t *testing.T) {
	backing := testConfig(t)
	local, err := OpenLedger(backing, LedgerOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer local.Close()
	server := httptest.NewServer(ledger.NewHandler(local.Client, discardLogger()))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Ledger.Backend = config.BackendHTTP
	cfg.Ledger.URL = server.URL
	remote, err := OpenLedger(cfg, LedgerOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenLedger(http): %v", err)
	}
	if remote.Chain != nil {
		t.Error("http backend returned a chain")
	}
	if err := remote.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	id, err := remote.Client.WriteEntry(context.Background(), sampleEntry())
	if err != nil {
		t.Fatalf("WriteEntry over http: %v", err)
	}
	if _, err := local.Client.ReadEntry(context.Background(), id); err != nil {
		t.Errorf("entry not in backing chain: %v", err)
	}
}

func TestOpenLedgerRejects(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Backend = "sqlite"
	if _, err := OpenLedger(cfg, LedgerOptions{}); err == nil {
		t.Error("unknown backend accepted")
	}

	cfg = testConfig(t)
	cfg.Ledger.Backend = config.BackendHTTP
	cfg.Ledger.URL = "ftp://ledger"
	if _, err := OpenLedger(cfg, LedgerOptions{}); err == nil {
		t.Error("non-http URL accepted")
	}

	cfg = testConfig(t)
	cfg.Ledger.Backend = config.BackendHTTP
	cfg.Ledger.URL = "http://ledger.example"
	cfg.Ledger.Timeout = "soon"
	if _, err := OpenLedger(cfg, LedgerOptions{}); err == nil {
		t.Error("bad timeout accepted")
	}

	cfg = testConfig(t)
	cfg.Paths.Ledger = ""
	if _, err := OpenLedger(cfg, LedgerOptions{}); err == nil {
		t.Error("local backend without paths.ledger accepted")
	}
}

func TestSigner(t *testing.T) {
	cfg := testConfig(t)
	signer, err := Signer(cfg)
	if err != nil || signer != nil {
		t.Errorf("no key, optional: Signer = %v, %v; want nil, nil", signer, err)
	}

	cfg.Signing.Require = true
	if _, err := Signer(cfg); !errors.Is(err, ErrSigningRequired) {
		t.Errorf("no key, required: err = %v, want ErrSigningRequired", err)
	}

	publicKey, privateKey := signing.InsecureTestKeypair("service")
	keyFile := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(privateKey.Seed())+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Signing.KeyFile = keyFile
	signer, err = Signer(cfg)
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if signer.PublicKeyHex() != hex.EncodeToString(publicKey) {
		t.Errorf("public key = %s, want %x", signer.PublicKeyHex(), publicKey)
	}

	cfg.Signing.KeyFile = filepath.Join(t.TempDir(), "absent.key")
	if _, err := Signer(cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("absent key: err = %v, want ErrNotExist", err)
	}
}

func TestSigningVerifier(t *testing.T) {
	cfg := testConfig(t)
	if _, ok := SigningVerifier(cfg).(signing.Ed25519Verifier); !ok {
		t.Errorf("default verifier is %T, want Ed25519Verifier", SigningVerifier(cfg))
	}

	cfg.Signing.Verifier = config.VerifierNone
	_, err := SigningVerifier(cfg).Verify([]byte("payload"), "", "")
	if !errors.Is(err, signing.ErrUnavailable) {
		t.Errorf("disabled verifier: err = %v, want ErrUnavailable", err)
	}
}
