// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// Digital pin states; any other value drives the pin with PWM
const (
	PinStateOff = 0x00
	PinStateOn  = 0xFF
)

// Errors returned by NewSetPinMessage
var (
	ErrPinUnset   = errors.New("pin must be defined")
	ErrStateUnset = errors.New("state/duty cycle must be defined")
)

// SetPinMessage sets an output pin (SET_PIN).
//
// The firmware performs no safety checks on the pin, so this is always a
// critical operation.
type SetPinMessage struct {
	CommandMessage
	pin   int
	state int
}

// Pin returns the pin being set
func (m *SetPinMessage) Pin() int {
	return m.pin
}

// State returns the digital state or PWM duty value
func (m *SetPinMessage) State() int {
	return m.state
}

// IsCritical returns true
func (m *SetPinMessage) IsCritical() bool { return true }

// IsTestedVersion checks the version against the tested firmware versions
func (m *SetPinMessage) IsTestedVersion(version string) bool {
	return testedFirmwareVersions[version]
}

// Direction returns SentOnly
func (m *SetPinMessage) Direction() Direction { return SentOnly }

func (m *SetPinMessage) String() string {
	return fmt.Sprintf("SetPinMessage(pin=%d, state=%d)", m.pin, m.state)
}

// IsDigitalState reports whether value fully enables or disables a pin
// rather than driving it with PWM.
func IsDigitalState(value int) bool {
	return value == PinStateOn || value == PinStateOff
}

// SetPinOption configures a SetPinMessage
type SetPinOption func(*setPinConfig) error

type setPinConfig struct {
	pin      int
	state    int
	hasPin   bool
	hasState bool
}

// NewSetPinMessage builds a SET_PIN message. Options are applied in order,
// later ones overriding earlier ones; the message is only built if a pin and
// a state have both been given and no option failed.
func NewSetPinMessage(opts ...SetPinOption) (*SetPinMessage, error) {
	var cfg setPinConfig
	var errs []error
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			errs = append(errs, err)
		}
	}

	if !cfg.hasPin {
		errs = append(errs, ErrPinUnset)
	}
	if !cfg.hasState {
		errs = append(errs, ErrStateUnset)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	pin, err := wire.RequireInt16(cfg.pin)
	if err != nil {
		return nil, fmt.Errorf("pin: %w", err)
	}
	state, err := wire.RequireInt16(cfg.state)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	return &SetPinMessage{
		CommandMessage: *NewCommandMessage(CommandSetPin, strconv.Itoa(pin), strconv.Itoa(state)),
		pin:            pin,
		state:          state,
	}, nil
}

// WithPin selects the pin by number
func WithPin(pin int) SetPinOption {
	return func(c *setPinConfig) error {
		p, err := wire.RequireUint8(pin)
		if err != nil {
			return fmt.Errorf("pin: %w", err)
		}
		c.pin = p
		c.hasPin = true
		return nil
	}
}

// WithOutput selects the pin of an output reported by the module
func WithOutput(o *devices.Output) SetPinOption {
	return WithPin(o.Pin)
}

// WithDevice selects the pin of a device; only outputs are supported
func WithDevice(d devices.Device) SetPinOption {
	if o, ok := d.(*devices.Output); ok {
		return WithOutput(o)
	}
	return func(*setPinConfig) error {
		return fmt.Errorf("unsupported device: %v", d)
	}
}

// Enable switches the pin fully on
func Enable() SetPinOption {
	return withState(PinStateOn)
}

// Disable switches the pin fully off
func Disable() SetPinOption {
	return withState(PinStateOff)
}

// WithDigitalState switches the pin fully on or off
func WithDigitalState(on bool) SetPinOption {
	if on {
		return Enable()
	}
	return Disable()
}

// WithDutyCycleFraction drives the pin with PWM; fraction is clamped to
// [0, 1] and scaled to 0..255.
func WithDutyCycleFraction(fraction float64) SetPinOption {
	return func(c *setPinConfig) error {
		if math.IsNaN(fraction) {
			return errors.New("duty cycle fraction is not a number")
		}
		c.state = wire.Limit(int(math.Round(math.Max(0, math.Min(1, fraction))*255)), 0, 255)
		c.hasState = true
		return nil
	}
}

// WithDutyCycleValue drives the pin with a raw duty value
func WithDutyCycleValue(value int) SetPinOption {
	return func(c *setPinConfig) error {
		v, err := wire.RequireInt16(value)
		if err != nil {
			return fmt.Errorf("duty cycle value: %w", err)
		}
		c.state = v
		c.hasState = true
		return nil
	}
}

func withState(state int) SetPinOption {
	return func(c *setPinConfig) error {
		c.state = state
		c.hasState = true
		return nil
	}
}
