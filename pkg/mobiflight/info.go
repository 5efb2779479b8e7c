// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
	"github.com/rs/zerolog/log"
)

// decodeInfo picks the INFO specialization. The firmware sends both the
// module identification and the device configuration as INFO, so this
// guesses from the first field: configurations start with a device type
// digit, MobiFlight interface type names start with a letter.
func decodeInfo(msg *CommandMessage) (Message, error) {
	if len(msg.fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	first := msg.fields[0]
	if first != "" {
		r, _ := utf8.DecodeRuneInString(first)
		if !unicode.IsDigit(r) {
			return newIdentificationInfoMessage(msg)
		}
	}
	return newConfigurationInfoMessage(msg)
}

// IdentificationInfoMessage identifies a module (INFO reply to GET_INFO)
type IdentificationInfoMessage struct {
	CommandMessage
	mobiflightType string
	name           string
	serial         string
	version        string
	coreVersion    string
}

func newIdentificationInfoMessage(msg *CommandMessage) (*IdentificationInfoMessage, error) {
	if err := msg.requireFields(5); err != nil {
		return nil, err
	}
	return &IdentificationInfoMessage{
		CommandMessage: *msg,
		mobiflightType: msg.fields[0],
		name:           msg.fields[1],
		serial:         msg.fields[2],
		version:        msg.fields[3],
		coreVersion:    msg.fields[4],
	}, nil
}

// MobiflightType returns the interface type, e.g. "MobiFlight Mega"
func (m *IdentificationInfoMessage) MobiflightType() string {
	return m.mobiflightType
}

// Name returns the user-assigned module name
func (m *IdentificationInfoMessage) Name() string {
	return m.name
}

// Serial returns the module serial
func (m *IdentificationInfoMessage) Serial() string {
	return m.serial
}

// Version returns the firmware version
func (m *IdentificationInfoMessage) Version() string {
	return m.version
}

// CoreVersion returns the firmware core version
func (m *IdentificationInfoMessage) CoreVersion() string {
	return m.coreVersion
}

func (m *IdentificationInfoMessage) String() string {
	return fmt.Sprintf("IdentificationInfoMessage(mfType=%q, name=%q, serial=%q, version=%q, coreVersion=%q)",
		m.mobiflightType, m.name, m.serial, m.version, m.coreVersion)
}

// ConfigurationInfoMessage carries the device configuration of a module
// (INFO reply to GET_CONFIG).
//
// If the device list cannot be parsed the message is still valid:
// Configuration returns nil and the raw text stays available.
type ConfigurationInfoMessage struct {
	CommandMessage
	rawConfiguration string
	configuration    *devices.InterfaceConfiguration
	parseErr         error
}

func newConfigurationInfoMessage(msg *CommandMessage) (*ConfigurationInfoMessage, error) {
	if err := msg.requireFields(1); err != nil {
		return nil, err
	}

	raw := msg.fields[0]
	parsed, err := devices.ParseInterfaceConfiguration(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("failed to parse interface configuration")
		parsed = nil
	}

	return &ConfigurationInfoMessage{
		CommandMessage:   *msg,
		rawConfiguration: raw,
		configuration:    parsed,
		parseErr:         err,
	}, nil
}

// RawConfiguration returns the device list as sent by the firmware
func (m *ConfigurationInfoMessage) RawConfiguration() string {
	return m.rawConfiguration
}

// Configuration returns the parsed device list, nil if it could not be parsed
func (m *ConfigurationInfoMessage) Configuration() *devices.InterfaceConfiguration {
	return m.configuration
}

// ParseError returns why the device list could not be parsed, if it could not
func (m *ConfigurationInfoMessage) ParseError() error {
	return m.parseErr
}

func (m *ConfigurationInfoMessage) String() string {
	if m.configuration != nil {
		return "ConfigurationInfoMessage(" + m.configuration.String() + ")"
	}
	return fmt.Sprintf("ConfigurationInfoMessage(unparseable, raw=%q)", m.rawConfiguration)
}
