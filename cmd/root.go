// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/internal/config"
	"github.com/Thermoquad/mfstat/internal/logging"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// General flags
	configPath  string
	logLevel    string
	capturePath string

	// Loaded before every command
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "mfstat",
	Short: "MobiFlight Serial Protocol Analyzer",
	Long: `mfstat - A CLI tool for talking to MobiFlight boards and analyzing their
text serial protocol.

Messages are decoded as they arrive, checked for anomalies and can be recorded
to a capture file for later replay.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Defaults can be set in mfstat.toml (or the file given by --config); explicit
flags override the file.

For WebSocket authentication, the password is read from the MFSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default mfstat.toml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&capturePath, "capture", "", "Record traffic to a capture file")
}

// loadSettings merges the config file under the flags and sets up logging
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portName
	}
	if flags.Changed("baud") {
		cfg.BaudRate = baudRate
	}
	if flags.Changed("url") {
		cfg.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings = cfg

	logging.ConfigureRuntime(settings.LogLevel)
	if settings.Path != "" {
		log.Debug().Str("path", settings.Path).Msg("loaded config")
	}
	return nil
}

// ExecuteContext runs the root command with ctx available to every command
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
