// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/internal/capture"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var (
	replayErrorsOnly bool
	replayStats      bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Decode a recorded capture file",
	Long: `Decode every frame of a capture recorded with --capture and print it the
way raw_log does, with the original timestamps. Sent frames are marked with >>.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only show frames that failed to decode or have anomalies")
	replayCmd.Flags().BoolVar(&replayStats, "stats", true, "Print statistics at the end")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	stats := mobiflight.NewStatistics()

	header, err := capture.Replay(cmd.Context(), f, func(frame capture.Frame, msg mobiflight.Message, decodeErr error) error {
		printReplayFrame(out, stats, frame, msg, decodeErr)
		return nil
	})
	if err != nil {
		return err
	}

	if replayStats {
		fmt.Fprintf(out, "\nSession %s started %s", header.Session, header.Started.Format("2006-01-02 15:04:05"))
		if header.Connection != "" {
			fmt.Fprintf(out, " (%s)", header.Connection)
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, stats.String())
	}
	return nil
}

func printReplayFrame(out io.Writer, stats *mobiflight.Statistics, frame capture.Frame, msg mobiflight.Message, decodeErr error) {
	prefix := ""
	if frame.Direction == mobiflight.SentOnly {
		prefix = ">> "
	}

	if decodeErr != nil {
		stats.Update(nil, decodeErr, nil)
		fmt.Fprintf(out, "%s[%s] [ERROR] %v\n", prefix, frame.Timestamp.Format("15:04:05.000"), decodeErr)
		return
	}

	// Host requests are expected in the sent direction
	var anomalies []mobiflight.ValidationError
	if frame.Direction != mobiflight.SentOnly {
		anomalies = mobiflight.ValidateReceived(msg)
		stats.Update(msg, nil, anomalies)
	}

	if replayErrorsOnly && len(anomalies) == 0 {
		return
	}
	fmt.Fprint(out, prefix+mobiflight.FormatMessage(frame.Timestamp, msg))
	for _, a := range anomalies {
		fmt.Fprintf(out, "  Anomaly: %s: %s\n", a.Type, a.Message)
	}
}
