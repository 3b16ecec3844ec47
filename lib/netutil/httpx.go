// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP I/O helpers for the remote
// ledger client and the ledger HTTP service.
//
// Response and request bodies are read through a limit so that a
// misbehaving peer cannot exhaust memory. JSON is decoded with
// UseNumber: ledger payloads carry numbers whose exact textual form
// feeds hashes, and a float64 round trip could change that text.
package netutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseSize bounds JSON body reads: 64 MB. A full ledger of the
// maximum block count fits comfortably.
const MaxResponseSize int64 = 64 << 20

// MaxErrorBody bounds how much of an error response is kept for
// diagnostic messages.
const MaxErrorBody int64 = 4 << 10

// ReadResponse reads a JSON body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON body (up to MaxResponseSize bytes) and
// decodes it into v, keeping numbers as json.Number where v holds any.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ErrorBody reads an error response body and returns it as a string
// for diagnostic messages. Read errors are ignored; a partial or empty
// body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBody))
	return string(bytes.TrimSpace(data))
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return fmt.Errorf("encoding response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteError writes {"error": message} with the given status code.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, map[string]string{"error": message})
}
