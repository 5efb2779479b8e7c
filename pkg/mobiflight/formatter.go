// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
)

// FormatCommandType returns the human-readable name for a message type ID
func FormatCommandType(typeID uint8) string {
	if t, ok := CommandTypeFromCode(int(typeID)); ok {
		return t.String()
	}
	return "UNKNOWN"
}

// FormatMessage formats a message into a human-readable string
func FormatMessage(ts time.Time, m Message) string {
	timestamp := ts.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (%d) fields=%d\n", timestamp, FormatCommandType(m.TypeID()), m.TypeID(), len(m.Fields()))
	return result + FormatPayload(m)
}

// FormatPayload formats the decoded fields of a message
func FormatPayload(m Message) string {
	switch msg := m.(type) {
	case *EncoderChangeMessage:
		dir := "counter-clockwise"
		if msg.Event().Clockwise() {
			dir = "clockwise"
		}
		speed := ""
		if msg.Event().Fast() {
			speed = ", fast"
		}
		return fmt.Sprintf("  Encoder: %q, Event: %s (%s%s)\n", msg.Name(), msg.Event(), dir, speed)

	case *DigitalInputMultiplexerChangeMessage:
		return fmt.Sprintf("  Multiplexer: %q, Channel: %d, Event: %s\n", msg.Name(), msg.Channel(), msg.Event())

	case *IdentificationInfoMessage:
		return fmt.Sprintf("  Type: %s\n  Name: %s\n  Serial: %s\n  Version: %s (core %s)\n",
			msg.MobiflightType(), msg.Name(), msg.Serial(), msg.Version(), msg.CoreVersion())

	case *ConfigurationInfoMessage:
		if msg.Configuration() == nil {
			return fmt.Sprintf("  Configuration: unparseable (%v)\n  Raw: %q\n", msg.ParseError(), msg.RawConfiguration())
		}
		return FormatInterfaceConfiguration(msg.Configuration())

	case *SetPinMessage:
		mode := "PWM"
		if IsDigitalState(msg.State()) {
			mode = "digital"
		}
		return fmt.Sprintf("  Pin: %d, State: %d (%s)\n", msg.Pin(), msg.State(), mode)

	case *GetInfoMessage, *GetConfigMessage:
		return "  (no payload)\n"
	}

	fields := m.Fields()
	if len(fields) == 0 {
		return "  (no payload)\n"
	}
	var sb strings.Builder
	for i, f := range fields {
		fmt.Fprintf(&sb, "  Field %d: %q\n", i, f)
	}
	return sb.String()
}

// FormatInterfaceConfiguration lists the devices of a configuration, one per line
func FormatInterfaceConfiguration(c *devices.InterfaceConfiguration) string {
	if c.Len() == 0 {
		return "  Devices: none\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  Devices: %d\n", c.Len())
	for i, d := range c.Devices() {
		fmt.Fprintf(&sb, "    #%d %s\n", i, FormatDevice(d))
	}
	return sb.String()
}

// FormatDevice formats a single device descriptor
func FormatDevice(d devices.Device) string {
	switch dev := d.(type) {
	case *devices.Encoder:
		return fmt.Sprintf("%-26s %-20q pins=%d,%d type=%d", dev.Type(), dev.Name(), dev.Pin1, dev.Pin2, dev.EncoderType)
	case *devices.DigitalInputMultiplexer:
		return fmt.Sprintf("%-26s %-20q data=%d sel=%v registers=%d", dev.Type(), dev.Name(), dev.DataPin, dev.SelectPins, dev.NumRegisters)
	case *devices.Output:
		return fmt.Sprintf("%-26s %-20q pin=%d", dev.Type(), dev.Name(), dev.Pin)
	default:
		return d.String()
	}
}
