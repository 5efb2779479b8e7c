// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import "strconv"

// Integer ranges used on the wire
const (
	MinUint8 = 0
	MaxUint8 = 255
	MinInt16 = -32768
	MaxInt16 = 32767
)

// RequireUint8 returns v unchanged if it fits an unsigned byte
func RequireUint8(v int) (int, error) {
	if v < MinUint8 || v > MaxUint8 {
		return 0, &RangeError{Value: v, Min: MinUint8, Max: MaxUint8, Kind: "unsigned byte"}
	}
	return v, nil
}

// RequireUint8String parses s as a base-10 integer and checks it fits an
// unsigned byte. Non-numeric input yields a *FormatError, out of range values
// a *RangeError.
func RequireUint8String(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewFormatError("not an integer", s, err)
	}
	return RequireUint8(v)
}

// RequireInt16 returns v unchanged if it fits a signed 16-bit integer
func RequireInt16(v int) (int, error) {
	if v < MinInt16 || v > MaxInt16 {
		return 0, &RangeError{Value: v, Min: MinInt16, Max: MaxInt16, Kind: "signed 16-bit integer"}
	}
	return v, nil
}

// Limit clamps v to [min, max]. Only meant for computed values, wire input
// must go through the Require functions instead.
func Limit(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
