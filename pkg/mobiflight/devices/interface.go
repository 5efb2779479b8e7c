// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// Firmware interface format delimiters
const (
	DeviceDelimiter    = ':'
	ParameterDelimiter = '.'
)

// InterfaceConfiguration is the ordered list of devices a module reports.
// It is immutable once parsed.
type InterfaceConfiguration struct {
	devices []Device
}

// Devices returns a copy of the described hardware components
func (c *InterfaceConfiguration) Devices() []Device {
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Len returns the number of devices
func (c *InterfaceConfiguration) Len() int {
	return len(c.devices)
}

// Device returns the i-th device
func (c *InterfaceConfiguration) Device(i int) Device {
	return c.devices[i]
}

// Outputs returns all output devices, in order
func (c *InterfaceConfiguration) Outputs() []*Output {
	var out []*Output
	for _, d := range c.devices {
		if o, ok := d.(*Output); ok {
			out = append(out, o)
		}
	}
	return out
}

// FindByName returns the first device with the given name
func (c *InterfaceConfiguration) FindByName(name string) (Device, bool) {
	for _, d := range c.devices {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

func (c *InterfaceConfiguration) String() string {
	var sb strings.Builder
	sb.WriteString("InterfaceConfiguration(")
	for i, d := range c.devices {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "#%d=%s", i, d)
	}
	sb.WriteString(")")
	return sb.String()
}

// ParseInterfaceConfiguration parses the device list reported by MobiFlight
// firmware, e.g. "8.3.4.1.MyEncoder:3.5.MyOutput:".
//
// Only the final entry may be empty (the firmware terminates every device,
// including the last one). Any failure is a *wire.FormatError naming the
// offending entry.
func ParseInterfaceConfiguration(s string) (*InterfaceConfiguration, error) {
	entries := strings.Split(s, string(DeviceDelimiter))
	devices := make([]Device, 0, len(entries))

	for i, entry := range entries {
		if entry == "" {
			if i == len(entries)-1 {
				break
			}
			return nil, entryError("empty device string", i, entry, nil)
		}

		delim := strings.IndexByte(entry, ParameterDelimiter)
		if delim < 0 {
			return nil, entryError("missing parameter delimiter", i, entry, nil)
		}
		if delim == 0 {
			return nil, entryError("blank type ID", i, entry, nil)
		}

		// A single leading plus sign is accepted, a minus sign is not
		code, err := strconv.ParseUint(strings.TrimPrefix(entry[:delim], "+"), 10, 32)
		if err != nil {
			return nil, entryError("bad type ID", i, entry, err)
		}

		deviceType, ok := DeviceTypeFromCode(int(code))
		if !ok {
			return nil, entryError(fmt.Sprintf("unknown type ID %d", code), i, entry, nil)
		}

		device, err := decodeDevice(deviceType, entry[delim+1:])
		if err != nil {
			return nil, entryError(fmt.Sprintf("decoding %s failed", deviceType), i, entry, err)
		}

		devices = append(devices, device)
	}

	return &InterfaceConfiguration{devices: devices}, nil
}

// ErrUnsupportedDevice is returned for device types without a decoder
var ErrUnsupportedDevice = errors.New("unsupported device type")

// decodeDevice dispatches on the device type; types not modeled here are
// rejected even though their wire code is known.
func decodeDevice(t DeviceType, remainder string) (Device, error) {
	switch t {
	case DeviceEncoder:
		return ParseEncoder(remainder)
	case DeviceDigitalInputMultiplexer:
		return ParseDigitalInputMultiplexer(remainder)
	case DeviceOutput:
		return ParseOutput(remainder)
	case DeviceNotSet, DeviceButton, DeviceEncoderSingleDetent, DeviceLEDSegmentDeprecated,
		DeviceStepperDeprecated1, DeviceServo, DeviceLCDDisplayI2C, DeviceStepperDeprecated2,
		DeviceOutputShifter, DeviceAnalogInputDeprecated, DeviceInputShifter, DeviceMuxDriver,
		DeviceStepper, DeviceLEDSegmentMulti, DeviceCustomDevice, DeviceAnalogInput:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDevice, t)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDevice, t)
	}
}

func entryError(msg string, index int, entry string, cause error) *wire.FormatError {
	return &wire.FormatError{Msg: msg, Raw: entry, Index: index, Err: cause}
}
