// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/mfstat/internal/transport"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

var decodeValidate bool

var decodeCmd = &cobra.Command{
	Use:   "decode [message...]",
	Short: "Decode messages without a connection",
	Long: `Decode MobiFlight messages given as arguments, or read from stdin when no
arguments are given. Stdin is framed on the command separator like a live link,
so a pasted serial log can be decoded directly.

A trailing separator on an argument is optional. Exits non-zero if any message
fails to decode.`,
	Example: `  mfstat decode '8,MyEncoder,2;'
  mfstat decode < serial.log`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeValidate, "validate", true, "Report anomalies in decoded messages")
}

// errDecodeFailed is returned when at least one message did not decode
var errDecodeFailed = errors.New("some messages failed to decode")

func runDecode(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) > 0 {
		in = strings.NewReader(strings.Join(terminate(args), ""))
	}
	return decodeStream(in, cmd.OutOrStdout(), decodeValidate)
}

// terminate ends every argument with a separator. An argument that already
// has one yields an empty message, which the framer skips.
func terminate(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a + string(mobiflight.CommandSeparator)
	}
	return out
}

// decodeStream frames r, decodes every message and writes the result to w
func decodeStream(r io.Reader, w io.Writer, validate bool) error {
	framer := transport.NewFramer(r)
	stats := mobiflight.NewStatistics()
	now := time.Now()

	for {
		msg, _, decodeErr := framer.ReadMessage()
		if errors.Is(decodeErr, io.EOF) {
			break
		}
		if transport.IsStreamError(decodeErr) {
			return decodeErr
		}
		if decodeErr != nil {
			stats.Update(nil, decodeErr, nil)
			fmt.Fprintf(w, "[ERROR] %v\n", decodeErr)
			continue
		}

		var anomalies []mobiflight.ValidationError
		if validate {
			anomalies = mobiflight.ValidateReceived(msg)
		}
		stats.Update(msg, nil, anomalies)

		fmt.Fprint(w, mobiflight.FormatMessage(now, msg))
		for _, a := range anomalies {
			fmt.Fprintf(w, "  Anomaly: %s: %s\n", a.Type, a.Message)
		}
	}

	if stats.FormatErrors > 0 {
		return fmt.Errorf("%w: %d of %d", errDecodeFailed, stats.FormatErrors, stats.TotalMessages)
	}
	return nil
}
