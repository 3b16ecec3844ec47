// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf8"
)

// Errors returned by Marshal and related functions.
var (
	// ErrUnsupportedValue covers values with no canonical form: NaN,
	// infinities, cyclic structures, and types JSON cannot represent
	// (functions, channels, complex numbers).
	ErrUnsupportedValue = errors.New("canonical: unsupported value")

	// ErrInvalidUTF8 is returned for strings (values or keys) that are
	// not valid UTF-8.
	ErrInvalidUTF8 = errors.New("canonical: string is not valid UTF-8")
)

// maxDepth bounds recursion in the encoder and in Normalize.
const maxDepth = 1000

// Marshal returns the canonical encoding of value.
func Marshal(value any) ([]byte, error) {
	encoder := &encoder{visiting: make(map[uintptr]struct{})}
	if err := encoder.encode(value, 0); err != nil {
		return nil, err
	}
	return encoder.buffer.Bytes(), nil
}

// Compact decodes arbitrary JSON and returns its canonical encoding.
// Number literals are re-emitted in canonical form. Trailing data after the first JSON
// value is an error.
func Compact(raw []byte) ([]byte, error) {
	value, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return Marshal(value)
}

// Without normalises value, which must encode as a JSON object, and
// returns it as a map with the given keys removed. Used to build
// payloads such as "entry minus signature fields".
func Without(value any, keys ...string) (map[string]any, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	object, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("canonical: expected a JSON object, got %T", normalized)
	}
	for _, key := range keys {
		delete(object, key)
	}
	return object, nil
}

func decode(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("canonical: decoding JSON: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("canonical: trailing data after JSON value")
	}
	return value, nil
}

type encoder struct {
	buffer bytes.Buffer

	// visiting holds the identity of every map and slice on the
	// current recursion path.
	visiting map[uintptr]struct{}
}

func (e *encoder) encode(value any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting exceeds %d levels", ErrUnsupportedValue, maxDepth)
	}

	switch v := value.(type) {
	case nil:
		e.buffer.WriteString("null")
	case bool:
		if v {
			e.buffer.WriteString("true")
		} else {
			e.buffer.WriteString("false")
		}
	case string:
		return e.writeString(v)
	case json.Number:
		return e.writeNumber(v)
	case json.RawMessage:
		decoded, err := decode(v)
		if err != nil {
			return err
		}
		return e.encode(decoded, depth+1)
	case float64:
		return e.writeFloat(v)
	case float32:
		return e.writeFloat(float32Value(v))
	case int:
		e.buffer.WriteString(strconv.FormatInt(int64(v), 10))
	case int8:
		e.buffer.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		e.buffer.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		e.buffer.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		e.buffer.WriteString(strconv.FormatInt(v, 10))
	case uint:
		e.buffer.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint8:
		e.buffer.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		e.buffer.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		e.buffer.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		e.buffer.WriteString(strconv.FormatUint(v, 10))
	case map[string]any:
		return e.writeObject(v, depth)
	case []any:
		return e.writeArray(v, depth)
	default:
		// Structs, typed maps and slices, pointers.
		normalized, err := Normalize(v)
		if err != nil {
			return err
		}
		return e.encode(normalized, depth+1)
	}
	return nil
}

func (e *encoder) writeObject(object map[string]any, depth int) error {
	identity := reflect.ValueOf(object).Pointer()
	if err := e.enter(identity); err != nil {
		return err
	}
	defer e.leave(identity)

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	// Go string ordering is byte-wise, which for UTF-8 is the order
	// the format requires.
	slices.Sort(keys)

	e.buffer.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			e.buffer.WriteByte(',')
		}
		if err := e.writeString(key); err != nil {
			return err
		}
		e.buffer.WriteByte(':')
		if err := e.encode(object[key], depth+1); err != nil {
			return err
		}
	}
	e.buffer.WriteByte('}')
	return nil
}

func (e *encoder) writeArray(array []any, depth int) error {
	if len(array) > 0 {
		identity := reflect.ValueOf(array).Pointer()
		if err := e.enter(identity); err != nil {
			return err
		}
		defer e.leave(identity)
	}

	e.buffer.WriteByte('[')
	for i, element := range array {
		if i > 0 {
			e.buffer.WriteByte(',')
		}
		if err := e.encode(element, depth+1); err != nil {
			return err
		}
	}
	e.buffer.WriteByte(']')
	return nil
}

func (e *encoder) enter(identity uintptr) error {
	if _, cyclic := e.visiting[identity]; cyclic {
		return fmt.Errorf("%w: value contains a cycle", ErrUnsupportedValue)
	}
	e.visiting[identity] = struct{}{}
	return nil
}

func (e *encoder) leave(identity uintptr) {
	delete(e.visiting, identity)
}

const hexDigits = "0123456789abcdef"

// writeString escapes exactly the characters Python's json module
// escapes with ensure_ascii=False.
func (e *encoder) writeString(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	e.buffer.WriteByte('"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		e.buffer.WriteString(s[start:i])
		switch c {
		case '"':
			e.buffer.WriteString(`\"`)
		case '\\':
			e.buffer.WriteString(`\\`)
		case '\n':
			e.buffer.WriteString(`\n`)
		case '\r':
			e.buffer.WriteString(`\r`)
		case '\t':
			e.buffer.WriteString(`\t`)
		case '\b':
			e.buffer.WriteString(`\b`)
		case '\f':
			e.buffer.WriteString(`\f`)
		default:
			e.buffer.WriteString(`\u00`)
			e.buffer.WriteByte(hexDigits[c>>4])
			e.buffer.WriteByte(hexDigits[c&0xF])
		}
		start = i + 1
	}
	e.buffer.WriteString(s[start:])
	e.buffer.WriteByte('"')
	return nil
}
