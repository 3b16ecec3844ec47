// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/clock"
)

func testLedger(t *testing.T, appends int) chain.LedgerFile {
	t.Helper()
	fake := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	fake.AutoStep(time.Second)
	ledgerChain, err := chain.Open(t.TempDir(), chain.Options{
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("chain.Open: %v", err)
	}
	defer ledgerChain.Close()
	for i := range appends {
		data := map[string]any{"event": "training_complete", "run": i, "note": "repetitive payload for compression"}
		if _, err := ledgerChain.Append("training_complete", data, ""); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return ledgerChain.Snapshot()
}

func TestRoundTrip(t *testing.T) {
	ledger := testLedger(t, 20)
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			var buffer bytes.Buffer
			if err := Export(&buffer, ledger, compression); err != nil {
				t.Fatalf("Export: %v", err)
			}
			data := buffer.Bytes()
			if Compression(data[5]) != compression {
				t.Errorf("header compression = %s, want %s", Compression(data[5]), compression)
			}

			imported, err := Import(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if len(imported.Blocks) != len(ledger.Blocks) {
				t.Fatalf("imported %d blocks, want %d", len(imported.Blocks), len(ledger.Blocks))
			}
			for i := range ledger.Blocks {
				if imported.Blocks[i].CurrentHash != ledger.Blocks[i].CurrentHash {
					t.Errorf("block %d hash changed", i)
				}
			}
			if report := chain.VerifyBlocks(imported.Blocks); !report.Valid {
				t.Errorf("imported chain does not verify: %v", report.Errors)
			}
		})
	}
}

func TestCompressionShrinksRepetitiveLedgers(t *testing.T) {
	ledger := testLedger(t, 50)
	var plain, packed bytes.Buffer
	if err := Export(&plain, ledger, CompressionNone); err != nil {
		t.Fatal(err)
	}
	if err := Export(&packed, ledger, CompressionZstd); err != nil {
		t.Fatal(err)
	}
	if packed.Len() >= plain.Len() {
		t.Errorf("zstd archive is %d bytes, uncompressed %d", packed.Len(), plain.Len())
	}
}

func TestImportRejectsDamage(t *testing.T) {
	ledger := testLedger(t, 3)
	var buffer bytes.Buffer
	if err := Export(&buffer, ledger, CompressionNone); err != nil {
		t.Fatal(err)
	}
	archive := buffer.Bytes()

	damage := func(mutate func([]byte) []byte) []byte {
		return mutate(append([]byte(nil), archive...))
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", damage(func(b []byte) []byte { b[0] = 'X'; return b }), ErrNotArchive},
		{"future version", damage(func(b []byte) []byte { b[4] = 9; return b }), ErrVersion},
		{"unknown compression", damage(func(b []byte) []byte { b[5] = 7; return b }), ErrCompression},
		{"flipped body byte", damage(func(b []byte) []byte { b[headerSize+10] ^= 0x01; return b }), ErrChecksum},
		{"flipped trailer byte", damage(func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }), ErrChecksum},
		{"cut short", damage(func(b []byte) []byte { return b[:len(b)-40] }), ErrTruncated},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Import(bytes.NewReader(test.data))
			if !errors.Is(err, test.want) {
				t.Errorf("Import = %v, want %v", err, test.want)
			}
		})
	}
}

func TestImportThenRestore(t *testing.T) {
	ledger := testLedger(t, 5)
	var buffer bytes.Buffer
	if err := Export(&buffer, ledger, CompressionLZ4); err != nil {
		t.Fatal(err)
	}
	imported, err := Import(&buffer)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	restored, err := chain.Restore(filepath.Join(t.TempDir(), "restored"), imported, chain.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer restored.Close()
	if restored.Len() != 6 {
		t.Errorf("restored chain has %d blocks, want 6", restored.Len())
	}
	if !restored.Verify().Valid {
		t.Error("restored chain does not verify")
	}
}

func TestParseCompression(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		parsed, err := ParseCompression(compression.String())
		if err != nil || parsed != compression {
			t.Errorf("ParseCompression(%q) = %v, %v", compression, parsed, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
	if got := fmt.Sprint(Compression(9)); got != "unknown(9)" {
		t.Errorf("Compression(9) = %q", got)
	}
}

func TestChecksumIsDomainSeparated(t *testing.T) {
	body := []byte("ledger")
	first := Checksum(body)
	if first != Checksum(body) {
		t.Error("Checksum is not deterministic")
	}
	if first == Checksum([]byte("ledgeR")) {
		t.Error("different bodies share a checksum")
	}
}
