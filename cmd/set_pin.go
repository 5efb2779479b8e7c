// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

// setPinRequest mirrors the set_pin flags; nil pointers mean "not given"
type setPinRequest struct {
	pin    *int
	device string
	on     bool
	off    bool
	duty   *float64
	value  *int
}

var (
	setPinFlags   setPinRequest
	setPinPin     int
	setPinDuty    float64
	setPinValue   int
	setPinForce   bool
	setPinTimeout int
)

var setPinCmd = &cobra.Command{
	Use:   "set_pin",
	Short: "Drive an output pin",
	Long: `Send a SET_PIN command to the board.

The pin is given with --pin, or with --device naming an output from the board's
configuration (which is fetched first). Exactly one of --on, --off, --duty
(0.0 to 1.0) or --value (raw 0 to 255) sets the state.

When tested_versions_only is set in the config file, the firmware version is
checked first and untested firmware is refused unless --force is given.`,
	Example: `  mfstat set_pin -p /dev/ttyACM0 --pin 13 --on
  mfstat set_pin -p /dev/ttyACM0 --device GearLed --duty 0.5`,
	RunE: runSetPin,
}

func init() {
	rootCmd.AddCommand(setPinCmd)
	setPinCmd.Flags().IntVar(&setPinPin, "pin", 0, "Pin number")
	setPinCmd.Flags().StringVar(&setPinFlags.device, "device", "", "Output device name from the board configuration")
	setPinCmd.Flags().BoolVar(&setPinFlags.on, "on", false, "Switch fully on")
	setPinCmd.Flags().BoolVar(&setPinFlags.off, "off", false, "Switch off")
	setPinCmd.Flags().Float64Var(&setPinDuty, "duty", 0, "Duty cycle fraction (0.0 to 1.0)")
	setPinCmd.Flags().IntVar(&setPinValue, "value", 0, "Raw state value")
	setPinCmd.Flags().BoolVar(&setPinForce, "force", false, "Send even if the firmware version is untested")
	setPinCmd.Flags().IntVar(&setPinTimeout, "timeout", 5, "Seconds to wait for the board configuration")
	setPinCmd.MarkFlagsMutuallyExclusive("pin", "device")
	setPinCmd.MarkFlagsMutuallyExclusive("on", "off", "duty", "value")
}

// stateOption picks the single state option of r
func (r setPinRequest) stateOption() (mobiflight.SetPinOption, error) {
	var opts []mobiflight.SetPinOption
	if r.on {
		opts = append(opts, mobiflight.Enable())
	}
	if r.off {
		opts = append(opts, mobiflight.Disable())
	}
	if r.duty != nil {
		opts = append(opts, mobiflight.WithDutyCycleFraction(*r.duty))
	}
	if r.value != nil {
		opts = append(opts, mobiflight.WithDutyCycleValue(*r.value))
	}

	switch len(opts) {
	case 0:
		return nil, errors.New("one of --on, --off, --duty or --value is required")
	case 1:
		return opts[0], nil
	default:
		return nil, errors.New("only one of --on, --off, --duty or --value may be given")
	}
}

// build turns the request into a message. board may be nil when no device
// lookup is needed.
func (r setPinRequest) build(board *boardInfo) (*mobiflight.SetPinMessage, error) {
	state, err := r.stateOption()
	if err != nil {
		return nil, err
	}

	opts := []mobiflight.SetPinOption{state}
	switch {
	case r.pin != nil:
		opts = append(opts, mobiflight.WithPin(*r.pin))
	case r.device != "":
		if board == nil || board.configuration == nil || board.configuration.Configuration() == nil {
			return nil, fmt.Errorf("device %q: board configuration unavailable", r.device)
		}
		dev, ok := board.configuration.Configuration().FindByName(r.device)
		if !ok {
			return nil, fmt.Errorf("device %q not found in board configuration", r.device)
		}
		opts = append(opts, mobiflight.WithDevice(dev))
	}

	return mobiflight.NewSetPinMessage(opts...)
}

func runSetPin(cmd *cobra.Command, args []string) error {
	req := setPinFlags
	if cmd.Flags().Changed("pin") {
		pin := setPinPin
		req.pin = &pin
	}
	if cmd.Flags().Changed("duty") {
		duty := setPinDuty
		req.duty = &duty
	}
	if cmd.Flags().Changed("value") {
		value := setPinValue
		req.value = &value
	}
	if req.pin == nil && req.device == "" {
		return errors.New("one of --pin or --device is required")
	}

	// Fail on bad flags before touching the link
	if req.pin != nil {
		if _, err := req.build(nil); err != nil {
			return err
		}
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var board *boardInfo
	checkVersion := settings.TestedVersionsOnly && !setPinForce
	if checkVersion || req.device != "" {
		board, err = queryBoard(cmd.Context(), s, time.Duration(setPinTimeout)*time.Second)
		if err != nil {
			return err
		}
	}

	msg, err := req.build(board)
	if err != nil {
		return err
	}

	if checkVersion {
		if board.identification == nil {
			return errors.New("firmware version unknown; use --force to send anyway")
		}
		if version := board.identification.Version(); !msg.IsTestedVersion(version) {
			return fmt.Errorf("firmware %s is untested; use --force to send anyway", version)
		}
	}

	if err := s.send(msg); err != nil {
		return fmt.Errorf("send SET_PIN: %w", err)
	}
	log.Info().Int("pin", msg.Pin()).Int("state", msg.State()).Str("raw", msg.Serialize()).Msg("sent")
	fmt.Printf("Sent %s on %s\n", msg, s.info)
	return nil
}
