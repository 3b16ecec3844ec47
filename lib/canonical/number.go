// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Numbers have one canonical form per value, the one Python's json
// module writes:
//
//   - Integers (Go integer kinds, and literals without a fraction or
//     exponent) are plain decimal with every digit kept.
//   - Floats (Go float kinds, and literals with a fraction or
//     exponent) use Python's float repr: the shortest digits that
//     round-trip, fixed notation with a trailing ".0" when integral,
//     and exponent notation such as 1e-05 or 1.5e+16 when the decimal
//     exponent is below -4 or at least 16.
//
// So 1.5 and 1.50 both encode as 1.5, and the float 1.0 encodes as 1.0
// whether it comes from a Go float64 or from a file.

func (e *encoder) writeNumber(number json.Number) error {
	text := number.String()
	if text == "" || !json.Valid([]byte(text)) || (text[0] != '-' && (text[0] < '0' || text[0] > '9')) {
		return fmt.Errorf("canonical: invalid number literal %q", text)
	}
	if !strings.ContainsAny(text, ".eE") {
		if strings.TrimLeft(text, "-0") == "" {
			text = "0"
		}
		e.buffer.WriteString(text)
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("%w: number %s is out of float64 range", ErrUnsupportedValue, text)
		}
		return fmt.Errorf("canonical: invalid number literal %q", text)
	}
	return e.writeFloat(f)
}

func (e *encoder) writeFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	e.buffer.WriteString(formatFloat(f))
	return nil
}

// formatFloat returns Python's repr of f.
func formatFloat(f float64) string {
	// Go's 'e' form already matches Python's exponent form: shortest
	// mantissa and an exponent of at least two digits with a sign.
	scientific := strconv.FormatFloat(f, 'e', -1, 64)
	exponent, err := strconv.Atoi(scientific[strings.IndexByte(scientific, 'e')+1:])
	if err != nil {
		return scientific
	}
	if f != 0 && (exponent < -4 || exponent >= 16) {
		return scientific
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(fixed, '.') {
		fixed += ".0"
	}
	return fixed
}

// float32Value widens f through its shortest decimal form, so a
// float32 encodes the same as the literal encoding/json writes for it.
func float32Value(f float32) float64 {
	widened, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return widened
}
