// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mobiflight implements the text serial protocol spoken by MobiFlight
// firmware.
//
// A message is a command type ID followed by comma separated fields, e.g.
// "6,MyEncoder,2". Messages are terminated by ';' on the wire. The separator
// characters and the escape character itself are escaped with '/'.
//
// This package encodes and decodes single, already isolated messages; splitting
// a byte stream into messages is left to the transport.
package mobiflight

// Protocol framing characters
const (
	FieldSeparator   = ','
	CommandSeparator = ';'
	EscapeCharacter  = '/' // not a typo, the firmware escapes with a forward slash
)

// Direction describes which way a message type may travel
type Direction int

// Direction values
const (
	ReceivedOnly Direction = iota
	SentOnly
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case ReceivedOnly:
		return "RECEIVED_ONLY"
	case SentOnly:
		return "SENT_ONLY"
	case Bidirectional:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

// Firmware versions the outbound requests have been checked against
var testedFirmwareVersions = map[string]bool{
	"2.5.1": true,
}

// TestedFirmwareVersions lists the firmware versions known to work with the
// messages sent by this package.
func TestedFirmwareVersions() []string {
	out := make([]string, 0, len(testedFirmwareVersions))
	for v := range testedFirmwareVersions {
		out = append(out, v)
	}
	return out
}
