// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw message log in human-readable format",
	Long: `Continuously decode and display MobiFlight protocol messages as they arrive.

Each message is shown with timestamp, command type and decoded fields. Messages
that fail to decode are shown with the raw text and the reason.

Use --capture to record the session for later replay.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("mfstat - Raw Message Log\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		r, err := s.receive()
		if err != nil {
			// For WebSocket connections a read error usually means
			// the connection is permanently closed
			if isClosed(err) {
				log.Info().Msg("connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		if r.err != nil {
			fmt.Printf("[%s] [ERROR] %v\n", r.at.Format("15:04:05.000"), r.err)
			continue
		}
		fmt.Print(mobiflight.FormatMessage(r.at, r.msg))
	}
}
