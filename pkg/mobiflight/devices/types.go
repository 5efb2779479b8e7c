// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package devices parses the hardware description MobiFlight firmware reports
// in reply to GET_CONFIG.
//
// The firmware encodes each hardware component ("device") as
// <type>.<parameters>.<name> and joins devices with ':'. Only encoders,
// digital input multiplexers and outputs are modeled.
package devices

import (
	"fmt"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// DeviceType identifies a hardware component type
type DeviceType int

// Device type values
const (
	DeviceNotSet DeviceType = iota
	DeviceButton
	DeviceEncoderSingleDetent
	DeviceOutput
	DeviceLEDSegmentDeprecated
	DeviceStepperDeprecated1
	DeviceServo
	DeviceLCDDisplayI2C
	DeviceEncoder
	DeviceStepperDeprecated2
	DeviceOutputShifter
	DeviceAnalogInputDeprecated
	DeviceInputShifter
	DeviceMuxDriver
	DeviceDigitalInputMultiplexer
	DeviceStepper
	DeviceLEDSegmentMulti
	DeviceCustomDevice
	DeviceAnalogInput
)

type deviceTypeInfo struct {
	name       string
	code       int
	deprecated bool
}

// Firmware encodings; deprecated types are still reported by old firmware.
var deviceTypeTable = map[DeviceType]deviceTypeInfo{
	DeviceNotSet:                  {"NOT_SET", 0, false},
	DeviceButton:                  {"BUTTON", 1, false},
	DeviceEncoderSingleDetent:     {"ENCODER_SINGLE_DETENT", 2, false},
	DeviceOutput:                  {"OUTPUT", 3, false},
	DeviceLEDSegmentDeprecated:    {"LED_SEGMENT_DEPRECATED", 4, true},
	DeviceStepperDeprecated1:      {"STEPPER_DEPRECATED_1", 5, true},
	DeviceServo:                   {"SERVO", 6, false},
	DeviceLCDDisplayI2C:           {"LCD_DISPLAY_I2C", 7, false},
	DeviceEncoder:                 {"ENCODER", 8, false},
	DeviceStepperDeprecated2:      {"STEPPER_DEPRECATED_2", 9, true},
	DeviceOutputShifter:           {"OUTPUT_SHIFTER", 10, false},
	DeviceAnalogInputDeprecated:   {"ANALOG_INPUT_DEPRECATED", 11, true},
	DeviceInputShifter:            {"INPUT_SHIFTER", 12, false},
	DeviceMuxDriver:               {"MUX_DRIVER", 13, false},
	DeviceDigitalInputMultiplexer: {"DIGITAL_INPUT_MULTIPLEXER", 14, false},
	DeviceStepper:                 {"STEPPER", 15, false},
	DeviceLEDSegmentMulti:         {"LED_SEGMENT_MULTI", 16, false},
	DeviceCustomDevice:            {"CUSTOM_DEVICE", 17, false},
	DeviceAnalogInput:             {"ANALOG_INPUT", 18, false},
}

var deviceTypes = wire.MustRegistry(deviceTypeEntries())

func deviceTypeEntries() []wire.Entry[DeviceType] {
	entries := make([]wire.Entry[DeviceType], 0, len(deviceTypeTable))
	for t := DeviceNotSet; t <= DeviceAnalogInput; t++ {
		info, ok := deviceTypeTable[t]
		if !ok {
			panic(fmt.Sprintf("devices: no encoding for device type %d", int(t)))
		}
		entries = append(entries, wire.Entry[DeviceType]{Symbol: t, Code: info.code})
	}
	return entries
}

// DeviceTypeFromCode resolves a firmware device type ID
func DeviceTypeFromCode(code int) (DeviceType, bool) {
	return deviceTypes.FromCode(code)
}

// AllDeviceTypes returns every known device type in encoding order
func AllDeviceTypes() []DeviceType {
	return deviceTypes.Symbols()
}

// Code returns the firmware encoding of the device type
func (t DeviceType) Code() uint8 {
	c, ok := deviceTypes.Code(t)
	if !ok {
		panic(fmt.Sprintf("devices: no encoding for device type %d", int(t)))
	}
	return c
}

// Deprecated reports whether the firmware source marks the type as deprecated
func (t DeviceType) Deprecated() bool {
	return deviceTypeTable[t].deprecated
}

func (t DeviceType) String() string {
	if info, ok := deviceTypeTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}
