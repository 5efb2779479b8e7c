// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/mfstat/internal/transport"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var (
	discoveryTimeout  int
	discoveryParallel int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find MobiFlight boards on the serial ports",
	Long: `Send GET_INFO on every serial port and list the boards that answer.

Ports are probed in parallel. Boards that reset when the port opens may need a
longer --timeout.

Examples:
  # Probe every port
  mfstat discovery

  # Probe one port
  mfstat discovery --port /dev/ttyACM0

Exit codes:
  0 - Discovery successful (at least one board found)
  1 - Discovery failed (no boards answered)
  2 - Ports could not be listed`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 3, "Seconds to wait for each port to answer")
	discoveryCmd.Flags().IntVar(&discoveryParallel, "parallel", 4, "Ports probed at once")
}

// discoveredBoard is a port that answered GET_INFO
type discoveredBoard struct {
	port string
	info *mobiflight.IdentificationInfoMessage
	rtt  time.Duration
}

// errNoIdentification means the link answered with nothing usable
var errNoIdentification = errors.New("no identification received")

// awaitIdentification waits for an identification reply on msgs
func awaitIdentification(ctx context.Context, msgs <-chan received, errc <-chan error, timeout time.Duration) (*mobiflight.IdentificationInfoMessage, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case r := <-msgs:
			if r.err != nil {
				log.Debug().Err(r.err).Str("raw", r.raw).Msg("ignoring undecodable message")
				continue
			}
			if id, ok := r.msg.(*mobiflight.IdentificationInfoMessage); ok {
				return id, nil
			}
		case err := <-errc:
			return nil, err
		case <-deadline.C:
			return nil, errNoIdentification
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// probePort opens port and asks it for identification
func probePort(ctx context.Context, port string, baud int, timeout time.Duration) (discoveredBoard, error) {
	conn, err := transport.OpenSerial(port, baud)
	if err != nil {
		return discoveredBoard{}, err
	}
	s := &session{conn: conn, info: port, framer: transport.NewFramer(conn)}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan received, 16)
	errc := make(chan error, 1)
	go s.readLoop(ctx, msgs, errc)

	start := time.Now()
	if err := s.send(mobiflight.NewGetInfoMessage()); err != nil {
		return discoveredBoard{}, err
	}
	id, err := awaitIdentification(ctx, msgs, errc, timeout)
	if err != nil {
		return discoveredBoard{}, err
	}
	return discoveredBoard{port: port, info: id, rtt: time.Since(start)}, nil
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports := []string{settings.Port}
	if settings.Port == "" {
		var err error
		ports, err = serial.GetPortsList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Port listing failed: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Printf("mfstat - Board Discovery\n")
	fmt.Printf("Ports: %d @ %d baud\n", len(ports), settings.BaudRate)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	var (
		mu     sync.Mutex
		boards []discoveredBoard
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(discoveryParallel, 1))
	for _, port := range ports {
		g.Go(func() error {
			board, err := probePort(ctx, port, settings.BaudRate, time.Duration(discoveryTimeout)*time.Second)
			if err != nil {
				log.Debug().Err(err).Str("port", port).Msg("no board")
				return nil
			}
			mu.Lock()
			boards = append(boards, board)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(boards, func(i, j int) bool { return boards[i].port < boards[j].port })
	for _, b := range boards {
		fmt.Printf("Board found:\n")
		fmt.Printf("  Port: %s\n", b.port)
		fmt.Printf("  Type: %s\n", b.info.MobiflightType())
		fmt.Printf("  Name: %s\n", b.info.Name())
		fmt.Printf("  Serial: %s\n", b.info.Serial())
		fmt.Printf("  Firmware: %s (core %s)\n", b.info.Version(), b.info.CoreVersion())
		fmt.Printf("  Answered in: %v\n\n", b.rtt.Round(time.Millisecond))
	}

	fmt.Printf("--- Discovery summary ---\n")
	fmt.Printf("Ports probed: %d\n", len(ports))
	fmt.Printf("Boards found: %d\n", len(boards))

	if len(boards) == 0 {
		fmt.Printf("No boards discovered. Check connection and board power.\n")
		os.Exit(1)
	}
	return nil
}
