// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

// GetInfoMessage requests the module identification (GET_INFO)
type GetInfoMessage struct {
	CommandMessage
}

// NewGetInfoMessage creates a GET_INFO request
func NewGetInfoMessage() *GetInfoMessage {
	return &GetInfoMessage{CommandMessage: *NewCommandMessage(CommandGetInfo)}
}

// IsCritical returns false; the request only reads
func (m *GetInfoMessage) IsCritical() bool { return false }

// IsTestedVersion checks the version against the tested firmware versions
func (m *GetInfoMessage) IsTestedVersion(version string) bool {
	return testedFirmwareVersions[version]
}

// Direction returns SentOnly
func (m *GetInfoMessage) Direction() Direction { return SentOnly }

func (m *GetInfoMessage) String() string { return "GetInfoMessage()" }

// GetConfigMessage requests the device configuration (GET_CONFIG)
type GetConfigMessage struct {
	CommandMessage
}

// NewGetConfigMessage creates a GET_CONFIG request
func NewGetConfigMessage() *GetConfigMessage {
	return &GetConfigMessage{CommandMessage: *NewCommandMessage(CommandGetConfig)}
}

// IsCritical returns false; the request only reads
func (m *GetConfigMessage) IsCritical() bool { return false }

// IsTestedVersion checks the version against the tested firmware versions
func (m *GetConfigMessage) IsTestedVersion(version string) bool {
	return testedFirmwareVersions[version]
}

// Direction returns SentOnly
func (m *GetConfigMessage) Direction() Direction { return SentOnly }

func (m *GetConfigMessage) String() string { return "GetConfigMessage()" }
