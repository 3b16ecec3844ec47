// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Ledger backends.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// Signature verifiers.
const (
	VerifierEd25519 = "ed25519"
	VerifierNone    = "none"
)

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Ledger configures where entries are recorded.
	Ledger LedgerConfig `yaml:"ledger"`

	// Signing configures entry signing and verification.
	Signing SigningConfig `yaml:"signing"`

	// Server configures "dnaledger serve".
	Server ServerConfig `yaml:"server"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Ledger  *LedgerConfig  `yaml:"ledger,omitempty"`
	Signing *SigningConfig `yaml:"signing,omitempty"`
	Server  *ServerConfig  `yaml:"server,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for dnaledger data.
	Root string `yaml:"root"`

	// Ledger is the chain directory holding ledger.json.
	Ledger string `yaml:"ledger"`

	// Models is the root of certified model directories.
	Models string `yaml:"models"`

	// Datasets is the base for relative dataset paths. Empty means
	// the working directory.
	Datasets string `yaml:"datasets"`
}

// LedgerConfig configures the ledger client.
type LedgerConfig struct {
	// Backend is "local" (a chain in Paths.Ledger) or "http" (a
	// remote ledger service at URL).
	Backend string `yaml:"backend"`

	// URL is the ledger service base URL for the http backend.
	URL string `yaml:"url"`

	// Timeout bounds each http request. Default: 30s.
	Timeout string `yaml:"timeout"`

	// MaxBlocks bounds the local chain. Zero means the chain default.
	MaxBlocks int `yaml:"max_blocks"`

	// Lock takes the single-writer lock on the local chain.
	// Default: false (development), true (production)
	Lock bool `yaml:"lock"`

	// Validator is recorded on blocks of unsigned entries.
	Validator string `yaml:"validator"`
}

// SigningConfig configures signing.
type SigningConfig struct {
	// KeyFile is the operator-supplied Ed25519 private key. Empty
	// records unsigned entries.
	KeyFile string `yaml:"key_file"`

	// Require refuses to certify without a signing key.
	// Default: false (development), true (production)
	Require bool `yaml:"require"`

	// Verifier is "ed25519" or "none". "none" reports signatures as
	// unverified instead of checking them.
	Verifier string `yaml:"verifier"`
}

// ServerConfig configures the HTTP ledger service.
type ServerConfig struct {
	// Listen is the TCP listen address. Default: 127.0.0.1:8420
	Listen string `yaml:"listen"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "dnaledger")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:   defaultRoot,
			Ledger: filepath.Join(defaultRoot, "ledger"),
			Models: filepath.Join(defaultRoot, "models"),
		},
		Ledger: LedgerConfig{
			Backend: BackendLocal,
			Timeout: "30s",
		},
		Signing: SigningConfig{
			Verifier: VerifierEd25519,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8420",
		},
	}
}

// Load loads configuration from the DNALEDGER_CONFIG environment
// variable. It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("DNALEDGER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DNALEDGER_CONFIG environment variable not set; " +
			"set it to the path of your dnaledger.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: one locked writer, signed entries.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Ledger:  &LedgerConfig{Lock: true},
				Signing: &SigningConfig{Require: true},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Ledger != "" {
			c.Paths.Ledger = overrides.Paths.Ledger
		}
		if overrides.Paths.Models != "" {
			c.Paths.Models = overrides.Paths.Models
		}
		if overrides.Paths.Datasets != "" {
			c.Paths.Datasets = overrides.Paths.Datasets
		}
	}

	if overrides.Ledger != nil {
		if overrides.Ledger.Backend != "" {
			c.Ledger.Backend = overrides.Ledger.Backend
		}
		if overrides.Ledger.URL != "" {
			c.Ledger.URL = overrides.Ledger.URL
		}
		if overrides.Ledger.Timeout != "" {
			c.Ledger.Timeout = overrides.Ledger.Timeout
		}
		if overrides.Ledger.MaxBlocks != 0 {
			c.Ledger.MaxBlocks = overrides.Ledger.MaxBlocks
		}
		// Lock is a bool, so we always apply it from overrides.
		c.Ledger.Lock = overrides.Ledger.Lock
		if overrides.Ledger.Validator != "" {
			c.Ledger.Validator = overrides.Ledger.Validator
		}
	}

	if overrides.Signing != nil {
		if overrides.Signing.KeyFile != "" {
			c.Signing.KeyFile = overrides.Signing.KeyFile
		}
		c.Signing.Require = overrides.Signing.Require
		if overrides.Signing.Verifier != "" {
			c.Signing.Verifier = overrides.Signing.Verifier
		}
	}

	if overrides.Server != nil && overrides.Server.Listen != "" {
		c.Server.Listen = overrides.Server.Listen
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DNALEDGER_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["DNALEDGER_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Ledger = expandVars(c.Paths.Ledger, vars)
	c.Paths.Models = expandVars(c.Paths.Models, vars)
	c.Paths.Datasets = expandVars(c.Paths.Datasets, vars)
	c.Ledger.URL = expandVars(c.Ledger.URL, vars)
	c.Signing.KeyFile = expandVars(c.Signing.KeyFile, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Models == "" {
		errs = append(errs, fmt.Errorf("paths.models is required"))
	}

	switch c.Ledger.Backend {
	case BackendLocal:
		if c.Paths.Ledger == "" {
			errs = append(errs, fmt.Errorf("paths.ledger is required for the local ledger backend"))
		}
	case BackendHTTP:
		if c.Ledger.URL == "" {
			errs = append(errs, fmt.Errorf("ledger.url is required for the http ledger backend"))
		} else if parsed, err := url.Parse(c.Ledger.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("ledger.url must be an absolute http or https URL, got %q", c.Ledger.URL))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger.backend must be one of: %v", []string{BackendLocal, BackendHTTP}))
	}

	if _, err := c.LedgerTimeout(); err != nil {
		errs = append(errs, err)
	}

	if c.Ledger.MaxBlocks < 0 {
		errs = append(errs, fmt.Errorf("ledger.max_blocks must not be negative"))
	}

	verifiers := []string{VerifierEd25519, VerifierNone}
	if !slices.Contains(verifiers, c.Signing.Verifier) {
		errs = append(errs, fmt.Errorf("signing.verifier must be one of: %v", verifiers))
	}
	if c.Signing.Require && c.Signing.KeyFile == "" {
		errs = append(errs, fmt.Errorf("signing.key_file is required when signing.require is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LedgerTimeout parses Ledger.Timeout. An empty value is 30 seconds.
func (c *Config) LedgerTimeout() (time.Duration, error) {
	if c.Ledger.Timeout == "" {
		return 30 * time.Second, nil
	}
	timeout, err := time.ParseDuration(c.Ledger.Timeout)
	if err != nil {
		return 0, fmt.Errorf("ledger.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("ledger.timeout must be positive, got %s", c.Ledger.Timeout)
	}
	return timeout, nil
}

// EnsurePaths creates the configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Root, c.Paths.Models}
	if c.Ledger.Backend == BackendLocal {
		paths = append(paths, c.Paths.Ledger)
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
