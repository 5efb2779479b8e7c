// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/mfstat/internal/config"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
)

var (
	infoTimeout int
	infoFormat  string
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Query board identification and device configuration",
	Long: `Send GET_INFO and GET_CONFIG and print the board's reply.

The identification (board type, name, serial, firmware and core versions) and
the configured devices are printed as text or YAML. A warning is shown when the
firmware version has not been tested with this tool.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().IntVar(&infoTimeout, "timeout", 5, "Seconds to wait for the board to answer")
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "text", "Output format (text, yaml)")
}

// boardInfo collects the replies to GET_INFO and GET_CONFIG
type boardInfo struct {
	identification *mobiflight.IdentificationInfoMessage
	configuration  *mobiflight.ConfigurationInfoMessage
}

func (b *boardInfo) complete() bool {
	return b.identification != nil && b.configuration != nil
}

// absorb keeps the INFO replies and ignores everything else
func (b *boardInfo) absorb(m mobiflight.Message) {
	switch msg := m.(type) {
	case *mobiflight.IdentificationInfoMessage:
		b.identification = msg
	case *mobiflight.ConfigurationInfoMessage:
		b.configuration = msg
	}
}

// boardDescriptor is the YAML form of boardInfo
type boardDescriptor struct {
	Connection  string             `yaml:"connection,omitempty"`
	Type        string             `yaml:"type"`
	Name        string             `yaml:"name"`
	Serial      string             `yaml:"serial"`
	Version     string             `yaml:"version"`
	CoreVersion string             `yaml:"core_version"`
	Tested      bool               `yaml:"tested"`
	Devices     []deviceDescriptor `yaml:"devices"`
	ConfigError string             `yaml:"config_error,omitempty"`
	RawConfig   string             `yaml:"raw_config,omitempty"`
}

type deviceDescriptor struct {
	Index      int    `yaml:"index"`
	Type       string `yaml:"type"`
	Code       uint8  `yaml:"code"`
	Deprecated bool   `yaml:"deprecated,omitempty"`
	Name       string `yaml:"name"`
	Label      string `yaml:"label,omitempty"`
	Detail     string `yaml:"detail"`
}

func describeBoard(b *boardInfo, connection string, cfg config.Config) boardDescriptor {
	d := boardDescriptor{Connection: connection, Devices: []deviceDescriptor{}}

	if id := b.identification; id != nil {
		d.Type = id.MobiflightType()
		d.Name = id.Name()
		d.Serial = id.Serial()
		d.Version = id.Version()
		d.CoreVersion = id.CoreVersion()
		d.Tested = isTestedVersion(id.Version())
	}

	if c := b.configuration; c != nil {
		if c.Configuration() == nil {
			d.ConfigError = c.ParseError().Error()
			d.RawConfig = c.RawConfiguration()
		} else {
			for i, dev := range c.Configuration().Devices() {
				d.Devices = append(d.Devices, describeDevice(i, dev, cfg))
			}
		}
	}
	return d
}

func describeDevice(i int, dev devices.Device, cfg config.Config) deviceDescriptor {
	d := deviceDescriptor{
		Index:      i,
		Type:       dev.Type().String(),
		Code:       dev.Type().Code(),
		Deprecated: dev.Type().Deprecated(),
		Name:       dev.Name(),
		Detail:     dev.String(),
	}
	if label := cfg.Label(dev.Name()); label != dev.Name() {
		d.Label = label
	}
	return d
}

func isTestedVersion(version string) bool {
	for _, v := range mobiflight.TestedFirmwareVersions() {
		if v == version {
			return true
		}
	}
	return false
}

func runInfo(cmd *cobra.Command, args []string) error {
	switch infoFormat {
	case "text", "yaml":
	default:
		return fmt.Errorf("unknown format %q (use text or yaml)", infoFormat)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := queryBoard(cmd.Context(), s, time.Duration(infoTimeout)*time.Second)
	if err != nil {
		return err
	}

	if b.identification != nil && !isTestedVersion(b.identification.Version()) {
		log.Warn().
			Str("version", b.identification.Version()).
			Strs("tested", mobiflight.TestedFirmwareVersions()).
			Msg("firmware version has not been tested")
	}

	desc := describeBoard(b, s.info, settings)
	if infoFormat == "yaml" {
		return writeBoardYAML(os.Stdout, desc)
	}
	writeBoardText(os.Stdout, desc)
	return nil
}

// queryBoard sends GET_INFO and GET_CONFIG and waits for both replies
func queryBoard(ctx context.Context, s *session, timeout time.Duration) (*boardInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgChan := make(chan received, 16)
	errChan := make(chan error, 1)
	go s.readLoop(ctx, msgChan, errChan)

	if err := s.send(mobiflight.NewGetInfoMessage()); err != nil {
		return nil, fmt.Errorf("send GET_INFO: %w", err)
	}
	if err := s.send(mobiflight.NewGetConfigMessage()); err != nil {
		return nil, fmt.Errorf("send GET_CONFIG: %w", err)
	}

	b := &boardInfo{}
	for !b.complete() {
		select {
		case r := <-msgChan:
			if r.err != nil {
				log.Debug().Err(r.err).Str("raw", r.raw).Msg("ignoring undecodable message")
				continue
			}
			b.absorb(r.msg)

		case err := <-errChan:
			return nil, fmt.Errorf("read error: %w", err)

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if b.identification == nil && b.configuration == nil {
					return nil, fmt.Errorf("no reply within %s", timeout)
				}
				log.Warn().Msg("board answered only one of GET_INFO and GET_CONFIG")
				return b, nil
			}
			return nil, ctx.Err()
		}
	}
	return b, nil
}

func writeBoardYAML(w io.Writer, d boardDescriptor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

func writeBoardText(w io.Writer, d boardDescriptor) {
	fmt.Fprintf(w, "Connection:   %s\n", d.Connection)
	fmt.Fprintf(w, "Board Type:   %s\n", d.Type)
	fmt.Fprintf(w, "Name:         %s\n", d.Name)
	fmt.Fprintf(w, "Serial:       %s\n", d.Serial)
	tested := "tested"
	if !d.Tested {
		tested = "UNTESTED"
	}
	fmt.Fprintf(w, "Firmware:     %s (core %s, %s)\n", d.Version, d.CoreVersion, tested)

	if d.ConfigError != "" {
		fmt.Fprintf(w, "\nConfiguration could not be parsed: %s\n", d.ConfigError)
		fmt.Fprintf(w, "Raw: %q\n", d.RawConfig)
		return
	}

	fmt.Fprintf(w, "\nDevices (%d):\n", len(d.Devices))
	for _, dev := range d.Devices {
		label := ""
		if dev.Label != "" {
			label = fmt.Sprintf(" [%s]", dev.Label)
		}
		deprecated := ""
		if dev.Deprecated {
			deprecated = " (deprecated)"
		}
		fmt.Fprintf(w, "  #%-3d %s%s%s\n", dev.Index, strings.TrimSpace(dev.Detail), label, deprecated)
	}
}
