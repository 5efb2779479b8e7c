// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// MaxMessageSize bounds a single framed message
const MaxMessageSize = 64 * 1024

// SplitMessages is a bufio.SplitFunc yielding one message per token, without
// the terminating separator. A separator preceded by the escape character is
// part of the message. Empty messages and line breaks between messages are
// discarded.
func SplitMessages(data []byte, atEOF bool) (int, []byte, error) {
	start := skipGaps(data, 0)

	if end, ok := findSeparator(data, start); ok {
		return end + 1, data[start:end], nil
	}

	if atEOF {
		end := len(data)
		for end > start && isLineBreak(data[end-1]) {
			end--
		}
		if end > start {
			return len(data), data[start:end], nil
		}
		return len(data), nil, nil
	}

	// Drop the gap while waiting for the rest
	return start, nil, nil
}

// skipGaps returns the first index at or after i that starts a message
func skipGaps(data []byte, i int) int {
	for i < len(data) && (isLineBreak(data[i]) || data[i] == mobiflight.CommandSeparator) {
		i++
	}
	return i
}

// findSeparator returns the index of the first unescaped separator at or
// after start.
func findSeparator(data []byte, start int) (int, bool) {
	escaped := false
	for i := start; i < len(data); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch data[i] {
		case mobiflight.EscapeCharacter:
			escaped = true
		case mobiflight.CommandSeparator:
			return i, true
		}
	}
	return 0, false
}

func isLineBreak(b byte) bool {
	return b == '\r' || b == '\n'
}

// Framer reads messages from a byte stream. A message longer than
// MaxMessageSize is dropped up to its separator and reported as a
// *wire.FormatError; reading continues with the next message.
type Framer struct {
	scanner *bufio.Scanner

	discarding bool
	escaped    bool
	dropped    int
}

// overflowToken marks a dropped oversized message. Real tokens are never empty.
var overflowToken = []byte{}

// NewFramer creates a framer over r
func NewFramer(r io.Reader) *Framer {
	f := &Framer{scanner: bufio.NewScanner(r)}
	f.scanner.Buffer(make([]byte, 0, 256), MaxMessageSize)
	f.scanner.Split(f.split)
	return f
}

func (f *Framer) split(data []byte, atEOF bool) (int, []byte, error) {
	if f.discarding {
		return f.discard(data, atEOF)
	}
	advance, token, err := SplitMessages(data, atEOF)
	if token == nil && !atEOF && len(data) >= MaxMessageSize {
		// Buffer full without a separator
		f.discarding = true
		f.escaped = false
		f.dropped = 0
		return f.discard(data, atEOF)
	}
	return advance, token, err
}

// discard consumes input up to and including the next unescaped separator
func (f *Framer) discard(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if f.escaped {
			f.escaped = false
			continue
		}
		switch b {
		case mobiflight.EscapeCharacter:
			f.escaped = true
		case mobiflight.CommandSeparator:
			f.discarding = false
			f.dropped += i
			return i + 1, overflowToken, nil
		}
	}
	f.dropped += len(data)
	if atEOF {
		f.discarding = false
		return len(data), overflowToken, nil
	}
	return len(data), nil, nil
}

// Next returns the next raw message, or io.EOF when the stream ends
func (f *Framer) Next() (string, error) {
	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	token := f.scanner.Bytes()
	if len(token) == 0 {
		return "", wire.NewFormatError(
			fmt.Sprintf("message exceeds %d bytes, dropped %d bytes", MaxMessageSize, f.dropped), "", nil)
	}
	return string(token), nil
}

// ReadMessage returns the next message together with its raw form. A
// decode failure is returned with the raw text so callers can keep reading.
func (f *Framer) ReadMessage() (mobiflight.Message, string, error) {
	raw, err := f.Next()
	if err != nil {
		return nil, "", err
	}
	msg, err := mobiflight.Deserialize(raw)
	return msg, raw, err
}

// IsStreamError reports whether err ends the stream. Decode failures of a
// single message are *wire.FormatError and do not.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	var formatErr *wire.FormatError
	return !errors.As(err, &formatErr)
}

// WriteMessage serializes m and writes it with the command separator
func WriteMessage(w io.Writer, m mobiflight.Message) error {
	_, err := io.WriteString(w, m.Serialize()+string(mobiflight.CommandSeparator))
	return err
}
