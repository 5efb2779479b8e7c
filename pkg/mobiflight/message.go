// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// Message is implemented by the generic CommandMessage and all specialized
// message types. Use a type switch to get at the specialized fields.
type Message interface {
	// TypeID returns the message type as encoded on the wire
	TypeID() uint8
	// Type returns the resolved command type, if known
	Type() (CommandType, bool)
	// Fields returns a copy of the field values, in order
	Fields() []string
	// Serialize encodes the message without the trailing command separator
	Serialize() string
	// IsCritical reports whether the message may alter physical or
	// electrical state of the module
	IsCritical() bool
	// IsTestedVersion reports whether the message has been checked against
	// the given firmware version
	IsTestedVersion(version string) bool
	// Direction returns which way the message may travel
	Direction() Direction

	String() string
}

// CommandMessage is a generic message: a type ID and its raw field values.
// It is immutable.
type CommandMessage struct {
	typeID    uint8
	cmdType   CommandType
	knownType bool
	fields    []string
}

// NewCommandMessage creates a generic message of a known type
func NewCommandMessage(t CommandType, fields ...string) *CommandMessage {
	return &CommandMessage{
		typeID:    t.Code(),
		cmdType:   t,
		knownType: true,
		fields:    copyFields(fields),
	}
}

// NewRawCommandMessage creates a generic message from a numeric type ID,
// which does not need to be known.
func NewRawCommandMessage(typeID int, fields ...string) (*CommandMessage, error) {
	id, err := wire.RequireUint8(typeID)
	if err != nil {
		return nil, fmt.Errorf("message type: %w", err)
	}
	t, known := CommandTypeFromCode(id)
	return &CommandMessage{
		typeID:    uint8(id),
		cmdType:   t,
		knownType: known,
		fields:    copyFields(fields),
	}, nil
}

func copyFields(fields []string) []string {
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// TypeID returns the message type as encoded on the wire
func (m *CommandMessage) TypeID() uint8 {
	return m.typeID
}

// Type returns the resolved command type; false if the type ID is unknown
func (m *CommandMessage) Type() (CommandType, bool) {
	return m.cmdType, m.knownType
}

// Fields returns a copy of the field values
func (m *CommandMessage) Fields() []string {
	return copyFields(m.fields)
}

// NumFields returns the number of fields
func (m *CommandMessage) NumFields() int {
	return len(m.fields)
}

// Field returns the i-th field
func (m *CommandMessage) Field(i int) string {
	return m.fields[i]
}

// Serialize encodes the message, see Serialize
func (m *CommandMessage) Serialize() string {
	return Serialize(m)
}

// IsCritical defaults to true; only messages known to be harmless say otherwise
func (m *CommandMessage) IsCritical() bool {
	return true
}

// IsTestedVersion defaults to false
func (m *CommandMessage) IsTestedVersion(version string) bool {
	return false
}

// Direction defaults to ReceivedOnly
func (m *CommandMessage) Direction() Direction {
	return ReceivedOnly
}

func (m *CommandMessage) String() string {
	var sb strings.Builder
	sb.WriteString("CommandMessage(")
	sb.WriteString(strconv.Itoa(int(m.typeID)))
	if m.knownType {
		sb.WriteString("/")
		sb.WriteString(m.cmdType.String())
	}
	for _, f := range m.fields {
		sb.WriteString(", ")
		sb.WriteString(strconv.Quote(f))
	}
	sb.WriteString(")")
	return sb.String()
}

// requireFields checks the exact number of fields a specialization expects
func (m *CommandMessage) requireFields(expected int) error {
	if len(m.fields) != expected {
		return fmt.Errorf("unexpected number of fields, got %d, expected %d", len(m.fields), expected)
	}
	return nil
}
