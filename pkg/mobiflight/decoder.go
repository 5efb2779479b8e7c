// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"strconv"
	"strings"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// Deserialize decodes a single message (without command separator).
//
// The result is a specialized message if one exists for the type, otherwise
// the generic *CommandMessage. Unknown type IDs are not an error. All errors
// are *wire.FormatError carrying the raw input.
func Deserialize(raw string) (Message, error) {
	fields, err := splitFields(raw)
	if err != nil {
		return nil, err
	}

	typeIDString := fields[0]
	if typeIDString == "" {
		return nil, wire.NewFormatError("missing type on command message", raw, nil)
	}

	typeID, err := strconv.Atoi(typeIDString)
	if err != nil {
		return nil, wire.NewFormatError("failed to parse type from command message (not an integer)", raw, err)
	}

	msg, err := NewRawCommandMessage(typeID, fields[1:]...)
	if err != nil {
		return nil, wire.NewFormatError("failed to parse type from command message (out of range)", raw, err)
	}

	refined, err := refine(msg)
	if err != nil {
		return nil, wire.NewFormatError("failed to decode command message", raw, err)
	}

	return refined, nil
}

// splitFields unescapes and splits in a single pass so that escaped
// separators never end a field. The result always has at least one element.
func splitFields(raw string) ([]string, error) {
	var fields []string
	var collector strings.Builder
	inEscape := false

	for i := 0; i < len(raw); i++ {
		b := raw[i]
		switch {
		case inEscape:
			collector.WriteByte(b)
			inEscape = false
		case b == EscapeCharacter:
			inEscape = true
		case b == FieldSeparator:
			fields = append(fields, collector.String())
			collector.Reset()
		default:
			collector.WriteByte(b)
		}
	}

	if inEscape {
		return nil, wire.NewFormatError("open escape on command message", raw, nil)
	}

	return append(fields, collector.String()), nil
}

// refine turns a generic message into its specialization. Types without a
// specialization are returned unchanged.
func refine(msg *CommandMessage) (Message, error) {
	t, ok := msg.Type()
	if !ok {
		return msg, nil
	}

	switch t {
	case CommandEncoderChange:
		return newEncoderChangeMessage(msg)
	case CommandDigInMuxChange:
		return newDigitalInputMultiplexerChangeMessage(msg)
	case CommandInfo:
		return decodeInfo(msg)
	case CommandInitModule, CommandSetModule, CommandSetPin, CommandSetStepper, CommandSetServo,
		CommandStatus, CommandButtonChange, CommandStepperChange, CommandGetInfo, CommandSetConfig,
		CommandGetConfig, CommandResetConfig, CommandSaveConfig, CommandConfigSaved,
		CommandActivateConfig, CommandConfigActivated, CommandSetPowerSavingMode, CommandSetName,
		CommandGenNewSerial, CommandResetStepper, CommandSetZeroStepper, CommandTrigger,
		CommandResetBoard, CommandSetLCDDisplayI2C, CommandSetModuleBrightness,
		CommandSetShiftRegisterPins, CommandAnalogChange, CommandInputShifterChange,
		CommandSetStepperSpeedAccel, CommandSetCustomDevice, CommandDebug:
		return msg, nil
	default:
		return msg, nil
	}
}
