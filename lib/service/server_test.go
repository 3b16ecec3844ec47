// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
)

func localClient(t *testing.T) ledger.Client {
	t.Helper()
	opened, err := chain.Open(t.TempDir(), chain.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("chain.Open: %v", err)
	}
	t.Cleanup(func() { opened.Close() })
	return ledger.NewLocal(opened, ledger.LocalOptions{Logger: discardLogger()})
}

func TestServerLifecycle(t *testing.T) {
	server, err := NewServer(ServerConfig{
		Address:         "127.0.0.1:0",
		Ledger:          localClient(t),
		ShutdownTimeout: 2 * time.Second,
		Logger:          discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
	case <-t.Context().Done():
		t.Fatal("server did not become ready before test deadline")
	}

	remote, err := ledger.NewHTTP(ledger.HTTPConfig{
		BaseURL: "http://" + server.Addr().String(),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	entry := sampleEntry()
	id, err := remote.WriteEntry(ctx, entry)
	if err != nil {
		t.Fatalf("WriteEntry over HTTP: %v", err)
	}
	if valid, err := remote.VerifyEntry(ctx, id); err != nil || !valid {
		t.Errorf("VerifyEntry = %v, %v; want true", valid, err)
	}

	cancel()
	select {
	case err := <-serveDone:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-t.Context().Done():
		t.Fatal("server did not shut down before test deadline")
	}
}

func TestServerAccessLog(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	server, err := NewServer(ServerConfig{Address: ":0", Ledger: localClient(t), Logger: logger})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	for _, path := range []string{"/health", "/entries/" + strings.Repeat("0", 64)} {
		recorder := httptest.NewRecorder()
		server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if path == "/health" && recorder.Code != http.StatusOK {
			t.Errorf("GET /health status = %d", recorder.Code)
		}
	}

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d access records at info, want 1 (health is debug):\n%s", len(lines), logs.String())
	}
	var record struct {
		Msg       string `json:"msg"`
		Method    string `json:"method"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("access record is not JSON: %v", err)
	}
	if record.Msg != "ledger request" || record.Method != http.MethodGet || record.Status != http.StatusNotFound || record.RequestID == "" {
		t.Errorf("access record = %+v", record)
	}
}

func TestServerListenError(t *testing.T) {
	server, err := NewServer(ServerConfig{Address: "not-an-address", Ledger: localClient(t), Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("Serve() = nil, want listen error")
	}
}

func TestNewServerRejectsIncompleteConfig(t *testing.T) {
	client := localClient(t)
	tests := []struct {
		name   string
		config ServerConfig
	}{
		{"missing_address", ServerConfig{Ledger: client, Logger: discardLogger()}},
		{"missing_ledger", ServerConfig{Address: ":0", Logger: discardLogger()}},
		{"missing_logger", ServerConfig{Address: ":0", Ledger: client}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.config); err == nil {
				t.Error("NewServer succeeded")
			}
		})
	}
}
