// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"strconv"
)

// FormatError reports malformed protocol text.
//
// Raw holds the offending input (a whole message, a device entry or a single
// field) and Index the position of a device entry within an interface
// configuration, or -1 when not applicable.
type FormatError struct {
	Msg   string
	Raw   string
	Index int
	Err   error
}

// NewFormatError creates a FormatError without entry index
func NewFormatError(msg, raw string, cause error) *FormatError {
	return &FormatError{Msg: msg, Raw: raw, Index: -1, Err: cause}
}

// Error implements the error interface
func (e *FormatError) Error() string {
	s := e.Msg
	if e.Index >= 0 {
		s += " on entry #" + strconv.Itoa(e.Index)
	}
	if e.Raw != "" || e.Index >= 0 {
		s += ": " + strconv.Quote(e.Raw)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause
func (e *FormatError) Unwrap() error {
	return e.Err
}

// RangeError reports a number outside its required wire range
type RangeError struct {
	Value int
	Min   int
	Max   int
	Kind  string
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("expected %s in [%d, %d], got %d", e.Kind, e.Min, e.Max, e.Value)
}
