// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/dnaledger/lib/netutil"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// DefaultTimeout bounds every remote ledger request.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures NewHTTP.
type HTTPConfig struct {
	// BaseURL is the ledger service root, e.g.
	// "https://ledger.example.com/v1". Required.
	BaseURL string

	// HTTPClient is used for all requests. Defaults to a client with
	// Timeout applied. A provided client's own Timeout is kept.
	HTTPClient *http.Client

	// Timeout bounds each request when HTTPClient is nil. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// HTTP is a Client for a remote ledger service. It never retries;
// transport failures are returned as *NetworkError.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Client = (*HTTP)(nil)

// NewHTTP creates a remote ledger client.
func NewHTTP(config HTTPConfig) (*HTTP, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("ledger: base URL %q must be an absolute http or https URL", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTP{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

type writeResponse struct {
	EntryID string `json:"entry_id"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
	// Unavailable is set when the service could not check the
	// signature at all.
	Unavailable bool `json:"unavailable,omitempty"`
}

type listResponse struct {
	Entries []Entry `json:"entries"`
}

// WriteEntry implements Client. The hash is computed locally as well,
// so a service that answers with a different id is reported as an
// error rather than trusted.
func (c *HTTP) WriteEntry(ctx context.Context, entry *Entry) (string, error) {
	if err := entry.Seal(); err != nil {
		return "", err
	}
	if err := entry.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("ledger: encoding entry: %w", err)
	}

	var response writeResponse
	if err := c.do(ctx, http.MethodPost, "/entries", body, &response); err != nil {
		return "", err
	}
	if response.EntryID != entry.ImmutableHash {
		return "", &RemoteError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("service returned id %s for entry %s", response.EntryID, entry.ImmutableHash),
		}
	}
	return response.EntryID, nil
}

// ReadEntry implements Client.
func (c *HTTP) ReadEntry(ctx context.Context, id string) (*Entry, error) {
	var entry Entry
	if err := c.do(ctx, http.MethodGet, "/entries/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// VerifyEntry implements Client.
func (c *HTTP) VerifyEntry(ctx context.Context, id string) (bool, error) {
	var response verifyResponse
	if err := c.do(ctx, http.MethodGet, "/entries/"+url.PathEscape(id)+"/verify", nil, &response); err != nil {
		return false, err
	}
	if response.Unavailable {
		return false, fmt.Errorf("ledger: remote verification of %s: %w", id, signing.ErrUnavailable)
	}
	return response.Valid, nil
}

// ListEntries implements Client.
func (c *HTTP) ListEntries(ctx context.Context, limit int) ([]Entry, error) {
	path := "/entries"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var response listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	if response.Entries == nil {
		response.Entries = []Entry{}
	}
	return response.Entries, nil
}

// do performs one request and decodes a 2xx JSON body into result.
// Error statuses map onto the shared sentinels.
func (c *HTTP) do(ctx context.Context, method, path string, body []byte, result any) error {
	endpoint := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ledger: building request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &NetworkError{Op: method, URL: endpoint, Err: err}
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		if err := netutil.DecodeResponse(response.Body, result); err != nil {
			return &RemoteError{StatusCode: response.StatusCode, Message: err.Error()}
		}
		return nil
	case response.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case response.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, errorMessage(response.Body))
	case response.StatusCode == http.StatusBadRequest || response.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidEntry, errorMessage(response.Body))
	default:
		message := errorMessage(response.Body)
		c.logger.Warn("remote ledger returned an error",
			"method", method,
			"url", endpoint,
			"status", response.StatusCode,
			"message", message,
		)
		return &RemoteError{StatusCode: response.StatusCode, Message: message}
	}
}

// errorMessage extracts {"error": "..."} from an error body, falling
// back to the raw text.
func errorMessage(body io.Reader) string {
	raw := netutil.ErrorBody(body)
	var decoded struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(raw), &decoded) == nil && decoded.Error != "" {
		return decoded.Error
	}
	return raw
}
