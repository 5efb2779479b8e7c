// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var (
	packetTestTimeout int
	packetTestProbe   bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid MobiFlight message",
	Long: `Wait for a valid MobiFlight message on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any message
that decodes cleanly. Messages that fail to decode are counted and skipped.
With --probe (the default) a GET_INFO request is sent first so an idle board
answers.

Exit codes:
  0 - Message received before timeout
  1 - Timeout reached without receiving a valid message
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a message")
	packetTestCmd.Flags().BoolVar(&packetTestProbe, "probe", true, "Send GET_INFO before waiting")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("mfstat - Packet Test\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid MobiFlight message...\n\n")

	if packetTestProbe {
		if err := s.send(mobiflight.NewGetInfoMessage()); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}

	msgChan := make(chan received, 16)
	errChan := make(chan error, 1)
	go s.readLoop(ctx, msgChan, errChan)

	timeout := time.After(time.Duration(packetTestTimeout) * time.Second)
	invalid := 0
	for {
		select {
		case r := <-msgChan:
			if r.err != nil {
				invalid++
				continue
			}
			if invalid > 0 {
				fmt.Printf("(skipped %d undecodable messages)\n", invalid)
			}
			fmt.Printf("SUCCESS: Received valid message\n")
			fmt.Printf("  Type: %s (%d)\n", mobiflight.FormatCommandType(r.msg.TypeID()), r.msg.TypeID())
			fmt.Printf("  Fields: %d\n", len(r.msg.Fields()))
			fmt.Printf("  Raw: %q\n", r.raw)
			os.Exit(0)

		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid message received within %d seconds\n", packetTestTimeout)
			os.Exit(1)
		}
	}
}
