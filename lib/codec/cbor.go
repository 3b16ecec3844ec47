// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields so older
// binaries can read index records written by newer ones.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Index records only ever use string keys. any-typed targets
		// must decode to map[string]any so the values can be passed on
		// to encoding/json and lib/canonical.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// NewEncoder returns a deterministic CBOR encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// ReadSequence decodes a CBOR sequence (RFC 8742) of T items from
// data and returns them with the number of bytes they occupy. A
// truncated final item, as left by a writer that crashed mid-append,
// is dropped: valid is then less than len(data), and a writer can
// truncate the file to valid before appending again. Any other
// malformed item is an error.
func ReadSequence[T any](data []byte) (items []T, valid int, err error) {
	rest := data
	for len(rest) > 0 {
		var item T
		remaining, err := decMode.UnmarshalFirst(rest, &item)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return items, valid, nil
			}
			return items, valid, err
		}
		valid += len(rest) - len(remaining)
		rest = remaining
		items = append(items, item)
	}
	return items, valid, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
