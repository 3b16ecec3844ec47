// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bureau-foundation/dnaledger/lib/netutil"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// maxEntryBody bounds POST /entries request bodies.
const maxEntryBody = 4 << 20

// NewHandler serves the ledger HTTP protocol for client:
//
//	POST /entries                 -> 201 {"entry_id"} | 409 | 400
//	GET  /entries?limit=N         -> 200 {"entries": [...]}
//	GET  /entries/{id}            -> 200 entry | 404
//	GET  /entries/{id}/verify     -> 200 {"valid"} | 404
//	GET  /health                  -> 200
//
// Mount it under the base URL the HTTP client is configured with.
func NewHandler(client Client, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{client: client, logger: logger}

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Route("/entries", func(entries chi.Router) {
		entries.Post("/", h.write)
		entries.Get("/", h.list)
		entries.Get("/{id}", h.read)
		entries.Get("/{id}/verify", h.verify)
	})
	return router
}

type handler struct {
	client Client
	logger *slog.Logger
}

func (h *handler) write(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEntryBody))
	if err != nil {
		netutil.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var entry Entry
	if err := decoder.Decode(&entry); err != nil {
		netutil.WriteError(w, http.StatusBadRequest, "decoding entry: "+err.Error())
		return
	}

	id, err := h.client.WriteEntry(r.Context(), &entry)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusCreated, writeResponse{EntryID: id})
}

func (h *handler) read(w http.ResponseWriter, r *http.Request) {
	entry, err := h.client.ReadEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusOK, entry)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	valid, err := h.client.VerifyEntry(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, signing.ErrUnavailable) {
		netutil.WriteJSON(w, http.StatusOK, verifyResponse{Valid: false, Unavailable: true})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusOK, verifyResponse{Valid: valid})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			netutil.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	entries, err := h.client.ListEntries(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusOK, listResponse{Entries: entries})
}

// fail maps an error's Kind onto an HTTP status. Faults are logged;
// expected rejections are not.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case KindDuplicate:
		status = http.StatusConflict
	case KindNotFound:
		status = http.StatusNotFound
	case KindInvalid:
		status = http.StatusBadRequest
	case KindNetwork, KindRemote:
		status = http.StatusBadGateway
	}
	if !kind.Expected() {
		h.logger.Error("ledger request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind.String(),
			"error", err,
		)
	}
	netutil.WriteError(w, status, err.Error())
}
