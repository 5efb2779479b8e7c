// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"strconv"
	"strings"
)

// Serialize encodes a message as type ID followed by escaped fields.
// The command separator is not appended; that is up to the transport.
func Serialize(m Message) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(m.TypeID())))

	for _, field := range m.Fields() {
		sb.WriteByte(FieldSeparator)
		escapeField(&sb, field)
	}

	return sb.String()
}

// escapeField writes s, prefixing every special character with the escape
// character. Works on bytes; all special characters are ASCII so multi-byte
// UTF-8 sequences pass through untouched.
func escapeField(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isSpecial(b) {
			sb.WriteByte(EscapeCharacter)
		}
		sb.WriteByte(b)
	}
}

func isSpecial(b byte) bool {
	return b == EscapeCharacter || b == FieldSeparator || b == CommandSeparator
}

// EscapeField returns s with all special characters escaped
func EscapeField(s string) string {
	var sb strings.Builder
	escapeField(&sb, s)
	return sb.String()
}
