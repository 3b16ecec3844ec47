// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errors.New("simulated read failure") }

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"entry_id":"abc"}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"entry_id":"abc"}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestDecodeResponseKeepsNumberText(t *testing.T) {
	var result map[string]any
	if err := DecodeResponse(strings.NewReader(`{"weight":0.1000,"count":42}`), &result); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	number, ok := result["weight"].(json.Number)
	if !ok {
		t.Fatalf("weight decoded as %T, want json.Number", result["weight"])
	}
	if number.String() != "0.1000" {
		t.Errorf("weight = %s, want literal 0.1000", number)
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	if err := DecodeResponse(strings.NewReader(`not json`), &struct{}{}); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := DecodeResponse(failReader{}, &struct{}{}); err == nil {
		t.Error("expected error from failing reader")
	}
}

func TestErrorBodyTruncates(t *testing.T) {
	long := strings.Repeat("x", int(MaxErrorBody)+100)
	if got := ErrorBody(strings.NewReader(long)); int64(len(got)) != MaxErrorBody {
		t.Errorf("ErrorBody length = %d, want %d", len(got), MaxErrorBody)
	}
	if got := ErrorBody(failReader{}); got != "" {
		t.Errorf("ErrorBody(failing) = %q, want empty", got)
	}
}

func TestWriteJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	if err := WriteJSON(recorder, http.StatusCreated, map[string]string{"entry_id": "abc"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if recorder.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := strings.TrimSpace(recorder.Body.String()); got != `{"entry_id":"abc"}` {
		t.Errorf("body = %q", got)
	}
}

func TestWriteError(t *testing.T) {
	recorder := httptest.NewRecorder()
	_ = WriteError(recorder, http.StatusNotFound, "entry not found")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"error":"entry not found"`) {
		t.Errorf("body = %q", recorder.Body.String())
	}
}
