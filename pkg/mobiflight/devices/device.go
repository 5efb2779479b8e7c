// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// Device is one hardware component described by the firmware
type Device interface {
	Type() DeviceType
	Name() string
	String() string
}

var (
	encoderPattern     = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)\.(.*)$`)
	multiplexerPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)\.(\d+)\.(\d+)\.(\d+)\.(.*)$`)
	outputPattern      = regexp.MustCompile(`^(\d+)\.(.*)$`)
)

// Encoder is a rotary encoder
type Encoder struct {
	Pin1        int
	Pin2        int
	EncoderType int
	name        string
}

// Type returns DeviceEncoder
func (e *Encoder) Type() DeviceType { return DeviceEncoder }

// Name returns the name used to refer to this encoder
func (e *Encoder) Name() string { return e.name }

func (e *Encoder) String() string {
	return fmt.Sprintf("Encoder(%s, %q, pin1=%d, pin2=%d, type=%d)", DeviceEncoder, e.name, e.Pin1, e.Pin2, e.EncoderType)
}

// ParseEncoder decodes pin1.pin2.type.name
func ParseEncoder(s string) (*Encoder, error) {
	pins, name, err := match(encoderPattern, s)
	if err != nil {
		return nil, err
	}
	return &Encoder{Pin1: pins[0], Pin2: pins[1], EncoderType: pins[2], name: name}, nil
}

// DigitalInputMultiplexer is a multiplexer chip read through data and select pins
type DigitalInputMultiplexer struct {
	DataPin      int
	SelectPins   [4]int
	NumRegisters int
	name         string
}

// Type returns DeviceDigitalInputMultiplexer
func (m *DigitalInputMultiplexer) Type() DeviceType { return DeviceDigitalInputMultiplexer }

// Name returns the name used to refer to this multiplexer
func (m *DigitalInputMultiplexer) Name() string { return m.name }

func (m *DigitalInputMultiplexer) String() string {
	sel := make([]string, len(m.SelectPins))
	for i, p := range m.SelectPins {
		sel[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("DigitalInputMultiplexer(%s, %q, pinData=%d, pinsSel=[%s], numRegisters=%d)",
		DeviceDigitalInputMultiplexer, m.name, m.DataPin, strings.Join(sel, ", "), m.NumRegisters)
}

// ParseDigitalInputMultiplexer decodes data.sel0.sel1.sel2.sel3.registers.name
func ParseDigitalInputMultiplexer(s string) (*DigitalInputMultiplexer, error) {
	params, name, err := match(multiplexerPattern, s)
	if err != nil {
		return nil, err
	}
	return &DigitalInputMultiplexer{
		DataPin:      params[0],
		SelectPins:   [4]int{params[1], params[2], params[3], params[4]},
		NumRegisters: params[5],
		name:         name,
	}, nil
}

// Output is a single digital or PWM output pin
type Output struct {
	Pin  int
	name string
}

// Type returns DeviceOutput
func (o *Output) Type() DeviceType { return DeviceOutput }

// Name returns the name used to refer to this output
func (o *Output) Name() string { return o.name }

func (o *Output) String() string {
	return fmt.Sprintf("Output(%s, %q, pin=%d)", DeviceOutput, o.name, o.Pin)
}

// ParseOutput decodes pin.name
func ParseOutput(s string) (*Output, error) {
	params, name, err := match(outputPattern, s)
	if err != nil {
		return nil, err
	}
	return &Output{Pin: params[0], name: name}, nil
}

// NewOutput creates an output descriptor, mainly for hosts that know their
// wiring without asking the module.
func NewOutput(pin int, name string) (*Output, error) {
	if _, err := wire.RequireUint8(pin); err != nil {
		return nil, err
	}
	return &Output{Pin: pin, name: name}, nil
}

// match applies an anchored pattern whose last group is the free-text name
// and converts all other groups to unsigned bytes.
func match(pattern *regexp.Regexp, s string) ([]int, string, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, "", wire.NewFormatError("invalid syntax", s, nil)
	}
	groups := m[1 : len(m)-1]
	params := make([]int, len(groups))
	for i, g := range groups {
		v, err := wire.RequireUint8String(g)
		if err != nil {
			return nil, "", wire.NewFormatError(fmt.Sprintf("invalid parameter #%d", i), s, err)
		}
		params[i] = v
	}
	return params, m[len(m)-1], nil
}
