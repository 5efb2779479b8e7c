// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import "fmt"

// AnomalyType represents different kinds of suspicious but decodable messages
type AnomalyType int

const (
	AnomalyUnknownType AnomalyType = iota
	AnomalyUnexpectedDirection
	AnomalyUnparsedConfiguration
	AnomalyUntestedFirmware
	AnomalyEmptyName
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyUnknownType:
		return "UNKNOWN_TYPE"
	case AnomalyUnexpectedDirection:
		return "UNEXPECTED_DIRECTION"
	case AnomalyUnparsedConfiguration:
		return "UNPARSED_CONFIGURATION"
	case AnomalyUntestedFirmware:
		return "UNTESTED_FIRMWARE"
	case AnomalyEmptyName:
		return "EMPTY_NAME"
	default:
		return "UNKNOWN"
	}
}

// ValidationError describes an anomaly found in a received message
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateReceived checks a message received from a module for anomalies.
// Returns an empty slice if nothing looks odd.
func ValidateReceived(m Message) []ValidationError {
	errors := []ValidationError{}

	if _, ok := m.Type(); !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownType,
			Message: fmt.Sprintf("Unknown message type %d", m.TypeID()),
			Details: map[string]interface{}{"type_id": m.TypeID()},
		})
	}

	if m.Direction() == SentOnly || isHostOnly(m) {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnexpectedDirection,
			Message: fmt.Sprintf("%s is only sent by the host", FormatCommandType(m.TypeID())),
			Details: map[string]interface{}{"type_id": m.TypeID()},
		})
	}

	switch msg := m.(type) {
	case *ConfigurationInfoMessage:
		if msg.Configuration() == nil {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnparsedConfiguration,
				Message: fmt.Sprintf("Unparseable device configuration: %v", msg.ParseError()),
				Details: map[string]interface{}{"raw": msg.RawConfiguration()},
			})
		}

	case *IdentificationInfoMessage:
		if !NewGetConfigMessage().IsTestedVersion(msg.Version()) {
			errors = append(errors, ValidationError{
				Type:    AnomalyUntestedFirmware,
				Message: fmt.Sprintf("Firmware version %s has not been tested", msg.Version()),
				Details: map[string]interface{}{"version": msg.Version(), "tested": TestedFirmwareVersions()},
			})
		}

	case *EncoderChangeMessage:
		if msg.Name() == "" {
			errors = append(errors, emptyNameError("ENCODER_CHANGE"))
		}

	case *DigitalInputMultiplexerChangeMessage:
		if msg.Name() == "" {
			errors = append(errors, emptyNameError("DIG_IN_MUX_CHANGE"))
		}
	}

	return errors
}

// hostOnlyCommands are never sent by a module
var hostOnlyCommands = map[CommandType]bool{
	CommandSetPin:    true,
	CommandGetInfo:   true,
	CommandGetConfig: true,
}

func isHostOnly(m Message) bool {
	t, ok := m.Type()
	return ok && hostOnlyCommands[t]
}

func emptyNameError(kind string) ValidationError {
	return ValidationError{
		Type:    AnomalyEmptyName,
		Message: kind + " without device name",
		Details: map[string]interface{}{},
	}
}
