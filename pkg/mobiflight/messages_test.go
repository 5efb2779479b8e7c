// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"errors"
	"testing"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Command Type Registry Tests
// ============================================================

func TestCommandType_Bijection(t *testing.T) {
	seen := map[uint8]CommandType{}
	for _, ct := range AllCommandTypes() {
		code := ct.Code()
		prev, dup := seen[code]
		require.False(t, dup, "duplicate encoding %d for %s and %s", code, prev, ct)
		seen[code] = ct

		back, ok := CommandTypeFromCode(int(code))
		require.True(t, ok)
		assert.Equal(t, ct, back)
	}
	assert.Len(t, seen, int(numCommandTypes))
}

func TestCommandType_Encodings(t *testing.T) {
	assert.Equal(t, uint8(2), CommandSetPin.Code())
	assert.Equal(t, uint8(6), CommandEncoderChange.Code())
	assert.Equal(t, uint8(9), CommandGetInfo.Code())
	assert.Equal(t, uint8(10), CommandInfo.Code())
	assert.Equal(t, uint8(12), CommandGetConfig.Code())
	assert.Equal(t, uint8(30), CommandDigInMuxChange.Code())
	assert.Equal(t, uint8(255), CommandDebug.Code())
	assert.Equal(t, "DIG_IN_MUX_CHANGE", CommandDigInMuxChange.String())

	_, ok := CommandTypeFromCode(33)
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", FormatCommandType(33))
	assert.Panics(t, func() { _ = CommandType(99).Code() })
}

// ============================================================
// Encoder Change Tests
// ============================================================

func TestEncoderChangeMessage(t *testing.T) {
	tests := []struct {
		raw       string
		event     EncoderEvent
		clockwise bool
		fast      bool
	}{
		{"6,MyEncoder,0", EncoderLeft, false, false},
		{"6,MyEncoder,1", EncoderLeftFast, false, true},
		{"6,MyEncoder,2", EncoderRight, true, false},
		{"6,MyEncoder,3", EncoderRightFast, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			msg, err := Deserialize(tt.raw)
			require.NoError(t, err)

			enc, ok := msg.(*EncoderChangeMessage)
			require.True(t, ok, "got %T", msg)
			assert.Equal(t, "MyEncoder", enc.Name())
			assert.Equal(t, tt.event, enc.Event())
			assert.Equal(t, tt.clockwise, enc.Event().Clockwise())
			assert.Equal(t, tt.fast, enc.Event().Fast())
			assert.Equal(t, ReceivedOnly, enc.Direction())
			assert.True(t, enc.IsCritical())
			assert.False(t, enc.IsTestedVersion("2.5.1"))
			assert.Equal(t, tt.raw, enc.Serialize())
		})
	}
}

func TestEncoderChangeMessage_Errors(t *testing.T) {
	for _, raw := range []string{"6,MyEncoder,4", "6,MyEncoder,-1", "6,MyEncoder,x", "6,MyEncoder", "6,MyEncoder,1,1"} {
		_, err := Deserialize(raw)
		var formatErr *wire.FormatError
		assert.ErrorAs(t, err, &formatErr, raw)
	}
}

func TestEncoderChangeMessage_FieldCountReported(t *testing.T) {
	_, err := Deserialize("6,MyEncoder")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1, expected 2")
}

// ============================================================
// Multiplexer Change Tests
// ============================================================

func TestDigitalInputMultiplexerChangeMessage(t *testing.T) {
	msg, err := Deserialize("30,My/,Mux,12,0")
	require.NoError(t, err)

	mux, ok := msg.(*DigitalInputMultiplexerChangeMessage)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "My,Mux", mux.Name())
	assert.Equal(t, 12, mux.Channel())
	assert.Equal(t, MultiplexerPress, mux.Event())
	assert.True(t, mux.Event().Active())

	msg, err = Deserialize("30,Mux,0,1")
	require.NoError(t, err)
	assert.False(t, msg.(*DigitalInputMultiplexerChangeMessage).Event().Active())
}

func TestDigitalInputMultiplexerChangeMessage_Errors(t *testing.T) {
	for _, raw := range []string{"30,Mux,256,0", "30,Mux,x,0", "30,Mux,1,2", "30,Mux,1"} {
		_, err := Deserialize(raw)
		var formatErr *wire.FormatError
		assert.ErrorAs(t, err, &formatErr, raw)
	}
}

// ============================================================
// Info Disambiguation Tests
// ============================================================

func TestInfo_Identification(t *testing.T) {
	msg, err := Deserialize("10,MobiFlight Mega,Cockpit,SN-1a2b3c,2.5.1,1.0.0")
	require.NoError(t, err)

	id, ok := msg.(*IdentificationInfoMessage)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "MobiFlight Mega", id.MobiflightType())
	assert.Equal(t, "Cockpit", id.Name())
	assert.Equal(t, "SN-1a2b3c", id.Serial())
	assert.Equal(t, "2.5.1", id.Version())
	assert.Equal(t, "1.0.0", id.CoreVersion())

	_, err = Deserialize("10,MobiFlight Mega,Cockpit")
	assert.Error(t, err)
}

func TestInfo_Configuration(t *testing.T) {
	msg, err := Deserialize("10,3.0.2.my_output")
	require.NoError(t, err)

	cfg, ok := msg.(*ConfigurationInfoMessage)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "3.0.2.my_output", cfg.RawConfiguration())
	require.NotNil(t, cfg.Configuration())
	require.Equal(t, 1, cfg.Configuration().Len())

	out, ok := cfg.Configuration().Device(0).(*devices.Output)
	require.True(t, ok)
	assert.Equal(t, 0, out.Pin)
	assert.Equal(t, "2.my_output", out.Name())
}

func TestInfo_EmptyFirstFieldIsConfiguration(t *testing.T) {
	msg, err := Deserialize("10,")
	require.NoError(t, err)
	cfg, ok := msg.(*ConfigurationInfoMessage)
	require.True(t, ok, "got %T", msg)
	require.NotNil(t, cfg.Configuration())
	assert.Equal(t, 0, cfg.Configuration().Len())
}

func TestInfo_UnparseableConfigurationIsRetained(t *testing.T) {
	// the firmware separates devices with ':', which needs no escaping
	msg, err := Deserialize("10,3.5.A::1.2.Button")
	require.NoError(t, err)

	cfg, ok := msg.(*ConfigurationInfoMessage)
	require.True(t, ok, "got %T", msg)
	assert.Nil(t, cfg.Configuration())
	assert.Equal(t, "3.5.A::1.2.Button", cfg.RawConfiguration())
	assert.Error(t, cfg.ParseError())
	assert.Contains(t, cfg.String(), "unparseable")
}

func TestInfo_ConfigurationFieldCount(t *testing.T) {
	_, err := Deserialize("10,3.5.A,extra")
	assert.Error(t, err)
}

// ============================================================
// Request Tests
// ============================================================

func TestRequests(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{NewGetInfoMessage(), "9"},
		{NewGetConfigMessage(), "12"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.msg.Serialize())
		assert.False(t, tt.msg.IsCritical())
		assert.Equal(t, SentOnly, tt.msg.Direction())
		assert.True(t, tt.msg.IsTestedVersion("2.5.1"))
		assert.False(t, tt.msg.IsTestedVersion("1.0.0"))
	}
}

// ============================================================
// Set Pin Tests
// ============================================================

func TestSetPin_DutyCycleFraction(t *testing.T) {
	msg, err := NewSetPinMessage(WithPin(5), WithDutyCycleFraction(0.5))
	require.NoError(t, err)

	assert.Equal(t, "2,5,128", msg.Serialize())
	assert.Equal(t, 5, msg.Pin())
	assert.Equal(t, 128, msg.State())
	assert.True(t, msg.IsCritical())
	assert.Equal(t, SentOnly, msg.Direction())
	assert.True(t, msg.IsTestedVersion("2.5.1"))
}

func TestSetPin_FractionClamped(t *testing.T) {
	tests := []struct {
		fraction float64
		want     int
	}{
		{-1, 0},
		{0, 0},
		{1, 255},
		{2.5, 255},
		{0.25, 64},
	}
	for _, tt := range tests {
		msg, err := NewSetPinMessage(WithPin(1), WithDutyCycleFraction(tt.fraction))
		require.NoError(t, err)
		assert.Equal(t, tt.want, msg.State(), "fraction %v", tt.fraction)
	}
}

func TestSetPin_Digital(t *testing.T) {
	on, err := NewSetPinMessage(WithPin(13), Enable())
	require.NoError(t, err)
	assert.Equal(t, "2,13,255", on.Serialize())
	assert.True(t, IsDigitalState(on.State()))

	off, err := NewSetPinMessage(WithPin(13), WithDigitalState(false))
	require.NoError(t, err)
	assert.Equal(t, "2,13,0", off.Serialize())

	pwm, err := NewSetPinMessage(WithPin(13), WithDutyCycleValue(1000))
	require.NoError(t, err)
	assert.Equal(t, "2,13,1000", pwm.Serialize())
	assert.False(t, IsDigitalState(pwm.State()))
}

func TestSetPin_FromDevice(t *testing.T) {
	cfg, err := devices.ParseInterfaceConfiguration("8.3.4.1.Enc:3.7.Led:")
	require.NoError(t, err)

	msg, err := NewSetPinMessage(WithDevice(cfg.Device(1)), Disable())
	require.NoError(t, err)
	assert.Equal(t, 7, msg.Pin())

	msg, err = NewSetPinMessage(WithOutput(cfg.Outputs()[0]), Enable())
	require.NoError(t, err)
	assert.Equal(t, 7, msg.Pin())

	_, err = NewSetPinMessage(WithDevice(cfg.Device(0)), Enable())
	assert.Error(t, err)
}

func TestSetPin_MissingValues(t *testing.T) {
	_, err := NewSetPinMessage(WithPin(5))
	assert.True(t, errors.Is(err, ErrStateUnset))

	_, err = NewSetPinMessage(Enable())
	assert.True(t, errors.Is(err, ErrPinUnset))

	_, err = NewSetPinMessage()
	assert.True(t, errors.Is(err, ErrPinUnset))
	assert.True(t, errors.Is(err, ErrStateUnset))
}

func TestSetPin_InvalidOptions(t *testing.T) {
	_, err := NewSetPinMessage(WithPin(256), Enable())
	var rangeErr *wire.RangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = NewSetPinMessage(WithPin(1), WithDutyCycleValue(40000))
	assert.ErrorAs(t, err, &rangeErr)
}

func TestSetPin_ReceivedStaysGeneric(t *testing.T) {
	msg, err := Deserialize("2,5,128")
	require.NoError(t, err)
	_, ok := msg.(*CommandMessage)
	assert.True(t, ok)
}
