// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package main

import (
	"fmt"

	"github.com/gatewayforge/fleetwatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single sweep and print emitted events",
		Long:  "Fetch one fleet-status snapshot, evaluate every rule against it, dispatch the resulting events, and print them. Useful for operators verifying thresholds.",
		RunE:  runSweep,
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	mon := wireMonitor(cfg)
	out := cmd.OutOrStdout()

	if err := mon.Sweep(cmd.Context()); err != nil {
		return err
	}

	events := mon.Recent(0)
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "Sweep complete: no events emitted")
		return err
	}

	_, _ = fmt.Fprintf(out, "Sweep complete: %d event(s) emitted\n", len(events))
	for _, ev := range events {
		_, _ = fmt.Fprintf(out, "  [%s] %s -> %s: %v\n", ev.Priority, ev.Type, ev.Target, ev.Payload["message"])
	}
	return nil
}
