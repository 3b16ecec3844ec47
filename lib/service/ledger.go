// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/clock"
	"github.com/bureau-foundation/dnaledger/lib/config"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// ErrSigningRequired is returned by Signer when the configuration
// requires signed entries but names no key file.
var ErrSigningRequired = errors.New("service: signing.require is set but signing.key_file is empty")

// LedgerOptions adjusts how OpenLedger opens the configured backend.
type LedgerOptions struct {
	// ReadOnly opens a local chain for inspection only. Remote
	// backends ignore it.
	ReadOnly bool

	// Clock stamps local blocks. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Ledger is an opened ledger backend. Chain is non-nil only for the
// local backend.
type Ledger struct {
	Client ledger.Client
	Chain  *chain.Chain
}

// Close releases the local chain, if any.
func (l *Ledger) Close() error {
	if l.Chain == nil {
		return nil
	}
	return l.Chain.Close()
}

// OpenLedger opens the ledger backend named by cfg.Ledger.Backend.
// Entry signatures on the local backend are checked with the verifier
// cfg selects.
func OpenLedger(cfg *config.Config, options LedgerOptions) (*Ledger, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Ledger.Backend {
	case config.BackendLocal, "":
		opened, err := OpenChain(cfg, options)
		if err != nil {
			return nil, err
		}
		local := ledger.NewLocal(opened, ledger.LocalOptions{
			Verifier:  SigningVerifier(cfg),
			Validator: cfg.Ledger.Validator,
			Logger:    logger,
		})
		return &Ledger{Client: local, Chain: opened}, nil

	case config.BackendHTTP:
		timeout, err := cfg.LedgerTimeout()
		if err != nil {
			return nil, err
		}
		remote, err := ledger.NewHTTP(ledger.HTTPConfig{
			BaseURL: cfg.Ledger.URL,
			Timeout: timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return &Ledger{Client: remote}, nil

	default:
		return nil, fmt.Errorf("ledger.backend %q: must be %q or %q", cfg.Ledger.Backend, config.BackendLocal, config.BackendHTTP)
	}
}

// OpenChain opens the local chain in cfg.Paths.Ledger with the
// configured bound and writer lock. Read-only chains never take the
// lock.
func OpenChain(cfg *config.Config, options LedgerOptions) (*chain.Chain, error) {
	if cfg.Paths.Ledger == "" {
		return nil, errors.New("paths.ledger is required for the local ledger backend")
	}
	opened, err := chain.Open(cfg.Paths.Ledger, chain.Options{
		Clock:     options.Clock,
		Logger:    options.Logger,
		MaxBlocks: cfg.Ledger.MaxBlocks,
		Lock:      cfg.Ledger.Lock && !options.ReadOnly,
		ReadOnly:  options.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", cfg.Paths.Ledger, err)
	}
	return opened, nil
}

// SigningVerifier returns the signature verifier cfg selects.
func SigningVerifier(cfg *config.Config) signing.Verifier {
	if cfg.Signing.Verifier == config.VerifierNone {
		return signing.UnavailableVerifier{Reason: "signature verification disabled by configuration"}
	}
	return signing.Ed25519Verifier{}
}

// Signer loads the configured signing key. It returns (nil, nil) when
// no key file is configured and signing is optional, so the caller
// records unsigned entries.
func Signer(cfg *config.Config) (signing.Signer, error) {
	if cfg.Signing.KeyFile == "" {
		if cfg.Signing.Require {
			return nil, ErrSigningRequired
		}
		return nil, nil
	}
	privateKey, err := signing.LoadPrivateKey(cfg.Signing.KeyFile)
	if err != nil {
		return nil, err
	}
	signer, err := signing.NewKeySigner(privateKey)
	if err != nil {
		return nil, err
	}
	return signer, nil
}
