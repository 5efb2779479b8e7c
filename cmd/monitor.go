// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor traffic, detect anomalies and drive outputs",
	Long: `Track decode failures and anomalous messages with statistics.

This command validates each message and detects:
  - Messages that fail to decode (bad type IDs, dangling escapes, bad fields)
  - Unknown command types
  - Host-only commands arriving from the board
  - Device configurations that cannot be parsed
  - Firmware versions that have not been tested

By default, only errors are displayed. Use --show-all to display valid messages too.

In the terminal UI, press 'i' to query the board, and 's' to type a set-pin
command such as "13 on", "13 0.5", "13 value 200" or "GearLed off".`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all messages (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if useTUI {
		return runTUIMode(ctx, s)
	}
	return runTextMode(ctx, s, os.Stdout)
}

// runTUIMode runs the monitor in the terminal UI
func runTUIMode(ctx context.Context, s *session) error {
	m := initialModel(s.info, statsInterval, showAll, s.send)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	msgChan := make(chan received, 64)
	errChan := make(chan error, 1)
	go s.readLoop(ctx, msgChan, errChan)

	go func() {
		for {
			select {
			case r := <-msgChan:
				p.Send(linkDataMsg(r))
			case err := <-errChan:
				p.Send(linkClosedMsg{err: err})
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	// Ask for identification so the header fills in
	go func() {
		if err := s.send(mobiflight.NewGetInfoMessage()); err != nil {
			p.Send(sentMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs the monitor as a plain log
func runTextMode(ctx context.Context, s *session, out io.Writer) error {
	fmt.Fprintf(out, "mfstat - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", s.info)
	fmt.Fprintf(out, "Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Fprintf(out, "Mode: All messages\n")
	} else {
		fmt.Fprintf(out, "Mode: Errors only\n")
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	stats := mobiflight.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	msgChan := make(chan received, 64)
	errChan := make(chan error, 1)
	go s.readLoop(ctx, msgChan, errChan)

	for {
		select {
		case r := <-msgChan:
			printMonitored(out, stats, r, showAll)

		case err := <-errChan:
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-statsTicker.C:
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			fmt.Fprintln(out)

		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			return nil
		}
	}
}

// printMonitored updates stats with r and prints it if it is an error or showAll is set
func printMonitored(out io.Writer, stats *mobiflight.Statistics, r received, showAll bool) {
	timestamp := r.at.Format("15:04:05.000")

	if r.err != nil {
		stats.Update(nil, r.err, nil)
		fmt.Fprintf(out, "[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, r.err)
		fmt.Fprintf(out, "  >>> MESSAGE REJECTED <<<\n\n")
		return
	}

	anomalies := mobiflight.ValidateReceived(r.msg)
	stats.Update(r.msg, nil, anomalies)

	if len(anomalies) > 0 {
		fmt.Fprintf(out, "[%s] \033[1;33mANOMALY:\033[0m %s (%d)\n", timestamp, mobiflight.FormatCommandType(r.msg.TypeID()), r.msg.TypeID())
		for i, a := range anomalies {
			fmt.Fprintf(out, "  Issue %d: %s\n", i+1, a.Message)
		}
		fmt.Fprintf(out, "  Raw: %q\n\n", r.raw)
		return
	}

	if showAll {
		fmt.Fprint(out, mobiflight.FormatMessage(r.at, r.msg))
	}
}
