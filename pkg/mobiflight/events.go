// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"fmt"
	"strconv"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// EncoderEvent is a rotation step reported by an encoder
type EncoderEvent int

// Encoder event values, as encoded by the firmware
const (
	EncoderLeft      EncoderEvent = 0
	EncoderLeftFast  EncoderEvent = 1
	EncoderRight     EncoderEvent = 2
	EncoderRightFast EncoderEvent = 3
)

// Clockwise reports the rotation direction
func (e EncoderEvent) Clockwise() bool {
	return e == EncoderRight || e == EncoderRightFast
}

// Fast reports whether the encoder was turned quickly
func (e EncoderEvent) Fast() bool {
	return e == EncoderLeftFast || e == EncoderRightFast
}

func (e EncoderEvent) String() string {
	switch e {
	case EncoderLeft:
		return "LEFT"
	case EncoderLeftFast:
		return "LEFT_FAST"
	case EncoderRight:
		return "RIGHT"
	case EncoderRightFast:
		return "RIGHT_FAST"
	default:
		return fmt.Sprintf("EncoderEvent(%d)", int(e))
	}
}

func parseEncoderEvent(s string) (EncoderEvent, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, wire.NewFormatError("encoder event is not an integer", s, err)
	}
	switch e := EncoderEvent(v); e {
	case EncoderLeft, EncoderLeftFast, EncoderRight, EncoderRightFast:
		return e, nil
	}
	return 0, wire.NewFormatError(fmt.Sprintf("unsupported encoder event encoding %d", v), s, nil)
}

// MultiplexerEvent is a state change of a digital input multiplexer channel
type MultiplexerEvent int

// Multiplexer event values, as encoded by the firmware
const (
	MultiplexerPress   MultiplexerEvent = 0
	MultiplexerRelease MultiplexerEvent = 1
)

// Active reports whether the input is pressed
func (e MultiplexerEvent) Active() bool {
	return e == MultiplexerPress
}

func (e MultiplexerEvent) String() string {
	switch e {
	case MultiplexerPress:
		return "PRESS"
	case MultiplexerRelease:
		return "RELEASE"
	default:
		return fmt.Sprintf("MultiplexerEvent(%d)", int(e))
	}
}

func parseMultiplexerEvent(s string) (MultiplexerEvent, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, wire.NewFormatError("multiplexer event is not an integer", s, err)
	}
	switch e := MultiplexerEvent(v); e {
	case MultiplexerPress, MultiplexerRelease:
		return e, nil
	}
	return 0, wire.NewFormatError(fmt.Sprintf("unsupported multiplexer event encoding %d", v), s, nil)
}

// EncoderChangeMessage reports an encoder rotation (ENCODER_CHANGE)
type EncoderChangeMessage struct {
	CommandMessage
	name  string
	event EncoderEvent
}

func newEncoderChangeMessage(msg *CommandMessage) (*EncoderChangeMessage, error) {
	if err := msg.requireFields(2); err != nil {
		return nil, err
	}
	event, err := parseEncoderEvent(msg.fields[1])
	if err != nil {
		return nil, err
	}
	return &EncoderChangeMessage{
		CommandMessage: *msg,
		name:           msg.fields[0],
		event:          event,
	}, nil
}

// Name returns the configured name of the encoder
func (m *EncoderChangeMessage) Name() string {
	return m.name
}

// Event returns the rotation event
func (m *EncoderChangeMessage) Event() EncoderEvent {
	return m.event
}

func (m *EncoderChangeMessage) String() string {
	return fmt.Sprintf("EncoderChangeMessage(%q, %s)", m.name, m.event)
}

// DigitalInputMultiplexerChangeMessage reports a multiplexer input change
// (DIG_IN_MUX_CHANGE)
type DigitalInputMultiplexerChangeMessage struct {
	CommandMessage
	name    string
	channel int
	event   MultiplexerEvent
}

func newDigitalInputMultiplexerChangeMessage(msg *CommandMessage) (*DigitalInputMultiplexerChangeMessage, error) {
	if err := msg.requireFields(3); err != nil {
		return nil, err
	}
	channel, err := wire.RequireUint8String(msg.fields[1])
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}
	event, err := parseMultiplexerEvent(msg.fields[2])
	if err != nil {
		return nil, err
	}
	return &DigitalInputMultiplexerChangeMessage{
		CommandMessage: *msg,
		name:           msg.fields[0],
		channel:        channel,
		event:          event,
	}, nil
}

// Name returns the configured name of the multiplexer
func (m *DigitalInputMultiplexerChangeMessage) Name() string {
	return m.name
}

// Channel returns the multiplexer channel that changed
func (m *DigitalInputMultiplexerChangeMessage) Channel() int {
	return m.channel
}

// Event returns the state change
func (m *DigitalInputMultiplexerChangeMessage) Event() MultiplexerEvent {
	return m.event
}

func (m *DigitalInputMultiplexerChangeMessage) String() string {
	return fmt.Sprintf("DigitalInputMultiplexerChangeMessage(%q, channel %d, %s)", m.name, m.channel, m.event)
}
