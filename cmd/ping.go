// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trips with GET_INFO",
	Long: `Send GET_INFO repeatedly and wait for the identification reply.

This verifies bidirectional traffic through a serial port or WebSocket bridge
and reports the round-trip time of each request.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("mfstat - Ping Test\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	msgs := make(chan received, 16)
	errc := make(chan error, 1)
	go s.readLoop(ctx, msgs, errc)

	successCount := 0
	failCount := 0

pings:
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		if err := s.send(mobiflight.NewGetInfoMessage()); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		id, err := awaitIdentification(ctx, msgs, errc, time.Duration(pingTimeout)*time.Second)
		switch {
		case errors.Is(err, errNoIdentification):
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		case err != nil:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount++
			break pings
		default:
			fmt.Printf("INFO from %s (%s), rtt=%v\n", id.Name(), id.Version(), time.Since(startTime).Round(time.Millisecond))
			successCount++
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(pingCount-successCount)/float64(pingCount)*100)

	if failCount > 0 || successCount < pingCount {
		os.Exit(1)
	}
	return nil
}
