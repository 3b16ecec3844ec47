// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/dnaledger/lib/atomicfile"
	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/clock"
)

// File names inside a chain directory.
const (
	LedgerFileName = "ledger.json"
	LockFileName   = "ledger.lock"
)

// DefaultMaxBlocks bounds the chain length, genesis included. Every
// append rewrites the whole file, so the bound keeps an append well
// under a second on ordinary disks.
const DefaultMaxBlocks = 5000

// Errors returned by Chain operations.
var (
	ErrChainFull          = errors.New("chain: maximum block count reached")
	ErrLocked             = errors.New("chain: ledger directory is locked by another writer")
	ErrAlreadyInitialized = errors.New("chain: already initialized")
	ErrNotInitialized     = errors.New("chain: no genesis block")
	ErrReadOnly           = errors.New("chain: opened read-only")
	ErrMalformedLedger    = errors.New("chain: malformed ledger file")
	ErrInvalidChain       = errors.New("chain: chain failed verification")
	ErrClosed             = errors.New("chain: closed")
)

// State is the lifecycle state of a chain.
type State int

const (
	// StateUninitialized: no blocks. Only reachable read-only or with
	// Options.SkipGenesis.
	StateUninitialized State = iota
	// StateGenesisOnly: exactly the genesis block.
	StateGenesisOnly
	// StatePopulated: genesis plus at least one event.
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateGenesisOnly:
		return "genesis-only"
	case StatePopulated:
		return "populated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures Open.
type Options struct {
	// Clock stamps blocks and backup names. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives recovery and verification warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// MaxBlocks bounds the chain length, genesis included. Zero means
	// DefaultMaxBlocks.
	MaxBlocks int

	// Lock takes an exclusive flock on ledger.lock for the lifetime of
	// the Chain. A second locked Open fails with ErrLocked.
	Lock bool

	// ReadOnly opens an existing chain for inspection. Nothing is
	// written: a missing file yields an uninitialized chain, a
	// malformed one is an error wrapping ErrMalformedLedger, and
	// Append fails with ErrReadOnly.
	ReadOnly bool

	// SkipGenesis leaves a new chain uninitialized instead of
	// creating the genesis block. The caller is expected to call
	// CreateGenesis.
	SkipGenesis bool
}

// Filter selects blocks for Blocks.
type Filter struct {
	// EventType keeps only blocks of this type. Empty keeps all.
	EventType string

	// Limit keeps only the newest Limit matching blocks. Zero or
	// negative keeps all.
	Limit int
}

// Chain is an open chain directory. Methods are safe for concurrent
// use; appends are serialized.
type Chain struct {
	mu sync.Mutex

	directory string
	path      string
	clock     clock.Clock
	logger    *slog.Logger
	maxBlocks int
	readOnly  bool
	lock      *fileLock
	closed    bool

	blocks      []Block
	lastUpdated string
	recovered   string
}

// Open loads the chain in directory, creating the directory when
// needed. A malformed ledger file is quarantined (see package
// documentation). Unless SkipGenesis or ReadOnly is set, a chain with
// no blocks gets a genesis block before Open returns.
func Open(directory string, options Options) (*Chain, error) {
	chain := newChain(directory, options)

	if !chain.readOnly {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("chain: creating directory: %w", err)
		}
	}
	if options.Lock && !chain.readOnly {
		lock, err := acquireLock(filepath.Join(directory, LockFileName))
		if err != nil {
			return nil, err
		}
		chain.lock = lock
	}

	if err := chain.load(); err != nil {
		chain.lock.release()
		return nil, err
	}

	if len(chain.blocks) == 0 && !chain.readOnly && !options.SkipGenesis {
		if _, err := chain.CreateGenesis(); err != nil {
			chain.lock.release()
			return nil, err
		}
	}

	if len(chain.blocks) > 0 {
		if report := VerifyBlocks(chain.blocks); !report.Valid {
			chain.logger.Warn("ledger chain failed verification on open",
				"path", chain.path,
				"blocks", report.TotalBlocks,
				"damaged_blocks", len(report.Errors),
				"first_damaged_block", report.Errors[0].BlockID,
			)
		}
	}
	return chain, nil
}

func newChain(directory string, options Options) *Chain {
	chain := &Chain{
		directory: directory,
		path:      filepath.Join(directory, LedgerFileName),
		clock:     options.Clock,
		logger:    options.Logger,
		maxBlocks: options.MaxBlocks,
		readOnly:  options.ReadOnly,
	}
	if chain.clock == nil {
		chain.clock = clock.Real()
	}
	if chain.logger == nil {
		chain.logger = slog.Default()
	}
	if chain.maxBlocks <= 0 {
		chain.maxBlocks = DefaultMaxBlocks
	}
	return chain
}

// load reads the ledger file. A missing file leaves the chain empty.
func (c *Chain) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("chain: reading %s: %w", c.path, err)
	}

	file, parseErr := ParseLedgerFile(data)
	if parseErr == nil {
		c.blocks = file.Blocks
		c.lastUpdated = file.LastUpdated
		if file.BlockCount != len(file.Blocks) {
			c.logger.Warn("ledger block_count disagrees with stored blocks",
				"path", c.path,
				"block_count", file.BlockCount,
				"blocks", len(file.Blocks),
			)
		}
		return nil
	}

	if c.readOnly {
		return fmt.Errorf("%s: %w", c.path, parseErr)
	}
	return c.quarantine(parseErr)
}

// quarantine moves a malformed ledger file aside so a fresh chain can
// be started without destroying the evidence.
func (c *Chain) quarantine(cause error) error {
	backup := filepath.Join(c.directory, "ledger."+clock.BackupStamp(c.clock.Now())+".corrupted.bak")
	if err := os.Rename(c.path, backup); err != nil {
		return fmt.Errorf("chain: quarantining malformed ledger (%v): %w", cause, err)
	}
	atomicfile.SyncDir(c.directory)
	c.recovered = backup
	c.logger.Warn("ledger file malformed, quarantined and starting a new chain",
		"path", c.path,
		"backup", backup,
		"error", cause,
	)
	return nil
}

// ParseLedgerFile decodes ledger file bytes. Block payloads are
// re-encoded in canonical form. Any structural problem (invalid JSON,
// no blocks, a payload that cannot be canonicalized) is an error
// wrapping ErrMalformedLedger. Hash problems are not detected here; use
// VerifyBlocks.
func ParseLedgerFile(data []byte) (LedgerFile, error) {
	var file LedgerFile
	if err := decodeUseNumber(data, &file); err != nil {
		return LedgerFile{}, fmt.Errorf("%w: %v", ErrMalformedLedger, err)
	}
	if len(file.Blocks) == 0 {
		return LedgerFile{}, fmt.Errorf("%w: no blocks", ErrMalformedLedger)
	}
	for i := range file.Blocks {
		if len(file.Blocks[i].Data) == 0 {
			return LedgerFile{}, fmt.Errorf("%w: block at position %d has no data", ErrMalformedLedger, i)
		}
		compacted, err := canonical.Compact(file.Blocks[i].Data)
		if err != nil {
			return LedgerFile{}, fmt.Errorf("%w: block at position %d: %v", ErrMalformedLedger, i, err)
		}
		file.Blocks[i].Data = compacted
	}
	return file, nil
}

// EncodeLedgerFile renders a ledger file the way Chain persists it:
// two-space indented JSON with HTML escaping disabled.
func EncodeLedgerFile(file LedgerFile) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(file); err != nil {
		return nil, fmt.Errorf("chain: encoding ledger file: %w", err)
	}
	return buffer.Bytes(), nil
}

// CreateGenesis appends block 0. It fails with ErrAlreadyInitialized
// when the chain has any block.
func (c *Chain) CreateGenesis() (Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writableLocked(); err != nil {
		return Block{}, err
	}
	if len(c.blocks) > 0 {
		return Block{}, ErrAlreadyInitialized
	}

	now := clock.Timestamp(c.clock.Now())
	block, err := newBlock(0, now, canonical.ZeroDigest, GenesisEventType, GenesisData{
		Message:       "Genesis block",
		LedgerVersion: LedgerVersion,
		CreatedAt:     now,
	}, DefaultValidator)
	if err != nil {
		return Block{}, err
	}
	if err := c.commitLocked(block); err != nil {
		return Block{}, err
	}
	c.logger.Info("ledger genesis block created", "path", c.path, "current_hash", block.CurrentHash)
	return cloneBlock(block), nil
}

// Append adds a block carrying data and persists the chain. data must
// be canonicalizable (see lib/canonical). When data is an object with
// a string "event" field, it must equal eventType. An empty validator
// records DefaultValidator. If persisting fails the in-memory chain is
// unchanged.
func (c *Chain) Append(eventType string, data any, validator string) (Block, error) {
	if eventType == "" {
		return Block{}, errors.New("chain: empty event type")
	}
	if eventType == GenesisEventType {
		return Block{}, fmt.Errorf("chain: event type %q is reserved for block 0", GenesisEventType)
	}
	if validator == "" {
		validator = DefaultValidator
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writableLocked(); err != nil {
		return Block{}, err
	}
	if len(c.blocks) == 0 {
		return Block{}, ErrNotInitialized
	}
	if len(c.blocks) >= c.maxBlocks {
		return Block{}, fmt.Errorf("%w (%d)", ErrChainFull, c.maxBlocks)
	}

	previous := c.blocks[len(c.blocks)-1]
	block, err := newBlock(len(c.blocks), clock.Timestamp(c.clock.Now()), previous.CurrentHash, eventType, data, validator)
	if err != nil {
		return Block{}, err
	}
	if problem := eventTypeProblem(block, block.Data); problem != "" {
		return Block{}, fmt.Errorf("chain: %s", problem)
	}
	if err := c.commitLocked(block); err != nil {
		return Block{}, err
	}
	c.logger.Debug("ledger block appended",
		"block_id", block.BlockID,
		"event_type", eventType,
		"current_hash", block.CurrentHash,
	)
	return cloneBlock(block), nil
}

func newBlock(blockID int, timestamp, previousHash, eventType string, data any, validator string) (Block, error) {
	payload, err := canonical.Marshal(data)
	if err != nil {
		return Block{}, fmt.Errorf("chain: encoding block data: %w", err)
	}
	dataHash := canonical.Digest(payload)
	return Block{
		BlockID:      blockID,
		Timestamp:    timestamp,
		PreviousHash: previousHash,
		CurrentHash:  BlockHash(blockID, timestamp, previousHash, dataHash),
		EventType:    eventType,
		Data:         payload,
		Signatures: Signatures{
			DataHash:  dataHash,
			Validator: validator,
		},
	}, nil
}

// commitLocked persists the chain with block appended and, only on
// success, adopts it in memory.
func (c *Chain) commitLocked(block Block) error {
	blocks := make([]Block, len(c.blocks), len(c.blocks)+1)
	copy(blocks, c.blocks)
	blocks = append(blocks, block)

	lastUpdated := clock.Timestamp(c.clock.Now())
	if err := writeLedger(c.path, LedgerFile{Blocks: blocks, LastUpdated: lastUpdated, BlockCount: len(blocks)}); err != nil {
		return err
	}
	c.blocks = blocks
	c.lastUpdated = lastUpdated
	return nil
}

func writeLedger(path string, file LedgerFile) error {
	data, err := EncodeLedgerFile(file)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("chain: persisting ledger: %w", err)
	}
	return nil
}

func (c *Chain) writableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Verify checks the whole chain. See VerifyBlocks.
func (c *Chain) Verify() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return VerifyBlocks(c.blocks)
}

// Blocks returns copies of the blocks selected by filter, in chain
// order.
func (c *Chain) Blocks(filter Filter) []Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	var selected []Block
	for _, block := range c.blocks {
		if filter.EventType == "" || block.EventType == filter.EventType {
			selected = append(selected, block)
		}
	}
	if filter.Limit > 0 && len(selected) > filter.Limit {
		selected = selected[len(selected)-filter.Limit:]
	}
	return cloneBlocks(selected)
}

// Block returns a copy of the block with the given id.
func (c *Chain) Block(blockID int) (Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blockID < 0 || blockID >= len(c.blocks) {
		return Block{}, false
	}
	return cloneBlock(c.blocks[blockID]), true
}

// Head returns a copy of the newest block.
func (c *Chain) Head() (Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) == 0 {
		return Block{}, false
	}
	return cloneBlock(c.blocks[len(c.blocks)-1]), true
}

// Len returns the number of blocks, genesis included.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// State returns the lifecycle state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch len(c.blocks) {
	case 0:
		return StateUninitialized
	case 1:
		return StateGenesisOnly
	default:
		return StatePopulated
	}
}

// Snapshot returns a copy of the chain in its file form.
func (c *Chain) Snapshot() LedgerFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LedgerFile{
		Blocks:      cloneBlocks(c.blocks),
		LastUpdated: c.lastUpdated,
		BlockCount:  len(c.blocks),
	}
}

// Recovered returns the backup path of a ledger file quarantined by
// Open, or "" if none was.
func (c *Chain) Recovered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recovered
}

// Path returns the ledger file path.
func (c *Chain) Path() string { return c.path }

// MaxBlocks returns the configured block bound.
func (c *Chain) MaxBlocks() int { return c.maxBlocks }

// Close releases the writer lock. Reads remain possible; writes fail
// with ErrClosed.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.lock.release()
	c.lock = nil
	return err
}

// Restore writes file as the ledger of directory, which must not
// already hold one, and opens it. The blocks must pass VerifyBlocks.
// Use it to reinstate a chain from an archive.
func Restore(directory string, file LedgerFile, options Options) (*Chain, error) {
	if options.ReadOnly {
		return nil, ErrReadOnly
	}
	report := VerifyBlocks(file.Blocks)
	if !report.Valid || len(file.Blocks) == 0 {
		return nil, fmt.Errorf("%w: %d of %d blocks damaged", ErrInvalidChain, len(report.Errors), report.TotalBlocks)
	}
	maxBlocks := options.MaxBlocks
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	if len(file.Blocks) > maxBlocks {
		return nil, fmt.Errorf("%w: restoring %d blocks (limit %d)", ErrChainFull, len(file.Blocks), maxBlocks)
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("chain: creating directory: %w", err)
	}
	path := filepath.Join(directory, LedgerFileName)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("chain: checking %s: %w", path, err)
	}

	blocks := cloneBlocks(file.Blocks)
	for i := range blocks {
		compacted, err := canonical.Compact(blocks[i].Data)
		if err != nil {
			return nil, fmt.Errorf("chain: block %d: %w", i, err)
		}
		blocks[i].Data = compacted
	}
	lastUpdated := file.LastUpdated
	if lastUpdated == "" {
		lastUpdated = blocks[len(blocks)-1].Timestamp
	}
	if err := writeLedger(path, LedgerFile{Blocks: blocks, LastUpdated: lastUpdated, BlockCount: len(blocks)}); err != nil {
		return nil, err
	}
	options.SkipGenesis = true
	return Open(directory, options)
}

func decodeUseNumber(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
