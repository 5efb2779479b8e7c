// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// mfstat - MobiFlight Serial Protocol Analyzer
//
// A CLI tool for talking to MobiFlight boards and decoding their text
// serial protocol in human-readable format.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/mfstat/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
