// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/chain"
)

// Compression identifies the body compression. The values are stored
// in archive headers and must not change.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// String returns the name ParseCompression accepts.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("archive: unknown compression %q", name)
	}
}

// MaxBodySize bounds the uncompressed body Import accepts.
const MaxBodySize = 256 << 20

const (
	formatVersion = 1
	headerSize    = 14
	trailerSize   = 32
)

var magic = [4]byte{'D', 'N', 'L', 'A'}

// domainKey is the ASCII domain name zero-padded to 32 bytes.
var domainKey = [32]byte{
	'd', 'n', 'a', 'l', 'e', 'd', 'g', 'e', 'r', '.', 'a', 'r', 'c', 'h', 'i', 'v', 'e',
}

// Errors returned by Import.
var (
	ErrNotArchive  = errors.New("archive: not a ledger archive")
	ErrVersion     = errors.New("archive: unsupported format version")
	ErrTruncated   = errors.New("archive: truncated")
	ErrChecksum    = errors.New("archive: checksum mismatch")
	ErrCompression = errors.New("archive: unsupported compression")
)

// Checksum returns the keyed BLAKE3 hash stored in an archive trailer
// for body.
func Checksum(body []byte) [32]byte {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("archive: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(body)
	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// Export writes file to w as an archive. Bodies that do not shrink
// under the requested compression are stored uncompressed, and the
// header records that.
func Export(w io.Writer, file chain.LedgerFile, compression Compression) error {
	body, err := canonical.Marshal(file)
	if err != nil {
		return fmt.Errorf("archive: encoding ledger: %w", err)
	}

	compressed, used, err := compress(body, compression)
	if err != nil {
		return err
	}

	var header [headerSize]byte
	copy(header[0:4], magic[:])
	header[4] = formatVersion
	header[5] = byte(used)
	binary.BigEndian.PutUint64(header[6:14], uint64(len(body)))
	trailer := Checksum(body)

	for _, part := range [][]byte{header[:], compressed, trailer[:]} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("archive: writing: %w", err)
		}
	}
	return nil
}

// Import reads an archive from r and returns the ledger file inside.
// The ledger's blocks are not verified.
func Import(r io.Reader) (chain.LedgerFile, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return chain.LedgerFile{}, fmt.Errorf("%w: header", ErrTruncated)
		}
		return chain.LedgerFile{}, fmt.Errorf("archive: reading header: %w", err)
	}
	if !bytes.Equal(header[0:4], magic[:]) {
		return chain.LedgerFile{}, ErrNotArchive
	}
	if header[4] != formatVersion {
		return chain.LedgerFile{}, fmt.Errorf("%w: %d", ErrVersion, header[4])
	}
	compression := Compression(header[5])
	bodySize := binary.BigEndian.Uint64(header[6:14])
	if bodySize > MaxBodySize {
		return chain.LedgerFile{}, fmt.Errorf("archive: body of %d bytes exceeds the %d byte limit", bodySize, MaxBodySize)
	}

	rest, err := io.ReadAll(io.LimitReader(r, MaxBodySize+trailerSize+1))
	if err != nil {
		return chain.LedgerFile{}, fmt.Errorf("archive: reading body: %w", err)
	}
	if len(rest) < trailerSize {
		return chain.LedgerFile{}, fmt.Errorf("%w: no checksum trailer", ErrTruncated)
	}
	compressed := rest[:len(rest)-trailerSize]
	var trailer [32]byte
	copy(trailer[:], rest[len(rest)-trailerSize:])

	body, err := decompress(compressed, compression, int(bodySize))
	if err != nil {
		return chain.LedgerFile{}, err
	}
	if Checksum(body) != trailer {
		return chain.LedgerFile{}, ErrChecksum
	}

	file, err := chain.ParseLedgerFile(body)
	if err != nil {
		return chain.LedgerFile{}, fmt.Errorf("archive: %w", err)
	}
	return file, nil
}
