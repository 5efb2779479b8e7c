// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"fmt"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// CommandType identifies a message type
type CommandType int

// Command types
const (
	CommandInitModule CommandType = iota
	CommandSetModule
	CommandSetPin
	CommandSetStepper
	CommandSetServo
	CommandStatus
	CommandEncoderChange
	CommandButtonChange
	CommandStepperChange
	CommandGetInfo
	CommandInfo
	CommandSetConfig
	CommandGetConfig
	CommandResetConfig
	CommandSaveConfig
	CommandConfigSaved
	CommandActivateConfig
	CommandConfigActivated
	CommandSetPowerSavingMode
	CommandSetName
	CommandGenNewSerial
	CommandResetStepper
	CommandSetZeroStepper
	CommandTrigger
	CommandResetBoard
	CommandSetLCDDisplayI2C
	CommandSetModuleBrightness
	CommandSetShiftRegisterPins
	CommandAnalogChange
	CommandInputShifterChange
	CommandDigInMuxChange
	CommandSetStepperSpeedAccel
	CommandSetCustomDevice
	CommandDebug

	numCommandTypes
)

var commandTypeNames = [numCommandTypes]string{
	"INIT_MODULE", "SET_MODULE", "SET_PIN", "SET_STEPPER", "SET_SERVO", "STATUS",
	"ENCODER_CHANGE", "BUTTON_CHANGE", "STEPPER_CHANGE", "GET_INFO", "INFO",
	"SET_CONFIG", "GET_CONFIG", "RESET_CONFIG", "SAVE_CONFIG", "CONFIG_SAVED",
	"ACTIVATE_CONFIG", "CONFIG_ACTIVATED", "SET_POWER_SAVING_MODE", "SET_NAME",
	"GEN_NEW_SERIAL", "RESET_STEPPER", "SET_ZERO_STEPPER", "TRIGGER", "RESET_BOARD",
	"SET_LCD_DISPLAY_I2C", "SET_MODULE_BRIGHTNESS", "SET_SHIFT_REGISTER_PINS",
	"ANALOG_CHANGE", "INPUT_SHIFTER_CHANGE", "DIG_IN_MUX_CHANGE",
	"SET_STEPPER_SPEED_ACCEL", "SET_CUSTOM_DEVICE", "DEBUG",
}

// Firmware encodings. Everything is sequential except DEBUG.
var commandTypes = wire.MustRegistry([]wire.Entry[CommandType]{
	{Symbol: CommandInitModule, Code: 0},
	{Symbol: CommandSetModule, Code: 1},
	{Symbol: CommandSetPin, Code: 2},
	{Symbol: CommandSetStepper, Code: 3},
	{Symbol: CommandSetServo, Code: 4},
	{Symbol: CommandStatus, Code: 5},
	{Symbol: CommandEncoderChange, Code: 6},
	{Symbol: CommandButtonChange, Code: 7},
	{Symbol: CommandStepperChange, Code: 8},
	{Symbol: CommandGetInfo, Code: 9},
	{Symbol: CommandInfo, Code: 10},
	{Symbol: CommandSetConfig, Code: 11},
	{Symbol: CommandGetConfig, Code: 12},
	{Symbol: CommandResetConfig, Code: 13},
	{Symbol: CommandSaveConfig, Code: 14},
	{Symbol: CommandConfigSaved, Code: 15},
	{Symbol: CommandActivateConfig, Code: 16},
	{Symbol: CommandConfigActivated, Code: 17},
	{Symbol: CommandSetPowerSavingMode, Code: 18},
	{Symbol: CommandSetName, Code: 19},
	{Symbol: CommandGenNewSerial, Code: 20},
	{Symbol: CommandResetStepper, Code: 21},
	{Symbol: CommandSetZeroStepper, Code: 22},
	{Symbol: CommandTrigger, Code: 23},
	{Symbol: CommandResetBoard, Code: 24},
	{Symbol: CommandSetLCDDisplayI2C, Code: 25},
	{Symbol: CommandSetModuleBrightness, Code: 26},
	{Symbol: CommandSetShiftRegisterPins, Code: 27},
	{Symbol: CommandAnalogChange, Code: 28},
	{Symbol: CommandInputShifterChange, Code: 29},
	{Symbol: CommandDigInMuxChange, Code: 30},
	{Symbol: CommandSetStepperSpeedAccel, Code: 31},
	{Symbol: CommandSetCustomDevice, Code: 32},
	{Symbol: CommandDebug, Code: 255},
})

// CommandTypeFromCode resolves a firmware message type ID
func CommandTypeFromCode(code int) (CommandType, bool) {
	return commandTypes.FromCode(code)
}

// AllCommandTypes returns every known command type
func AllCommandTypes() []CommandType {
	return commandTypes.Symbols()
}

// Code returns the firmware encoding of the command type
func (t CommandType) Code() uint8 {
	c, ok := commandTypes.Code(t)
	if !ok {
		panic(fmt.Sprintf("mobiflight: no encoding for command type %d", int(t)))
	}
	return c
}

func (t CommandType) String() string {
	if t >= 0 && t < numCommandTypes {
		return commandTypeNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", int(t))
}
