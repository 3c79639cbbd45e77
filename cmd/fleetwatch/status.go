// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package main

import (
	"fmt"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/monitor"
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show monitor status",
		Long:  "Query the running daemon's status endpoint and display sweep and suppression state.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:9300", "daemon address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	mc := newMonitorClient(addr)
	var st monitor.Status
	if err := mc.getJSON("/api/v1/status", &st); err != nil {
		if fwerr.HasCode(err, fwerr.CodeCLIMonitorNotRunning) {
			_, _ = fmt.Fprintf(out, "Monitor at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Monitor at %s: %s\n", addr, err)
		return nil
	}

	state := "stopped"
	if st.Running {
		state = "running"
	}
	_, _ = fmt.Fprintf(out, "Monitor at %s: %s\n", addr, state)
	_, _ = fmt.Fprintf(out, "  sweeps: %d (last at %s)\n", st.SweepCount, formatSweepTime(st.LastSweepAt))
	if st.LastSweepError != "" {
		_, _ = fmt.Fprintf(out, "  last sweep error: %s\n", st.LastSweepError)
	}
	if s := st.Snapshot; s != nil {
		_, _ = fmt.Fprintf(out, "  fleet: %d instances, %d degraded, %d failed, %d bootstrapping\n",
			s.TotalInstances, s.DegradedInstances, s.FailedInstances, s.BootstrappingInstances)
		_, _ = fmt.Fprintf(out, "  cost deviation: %+.1f%%\n", s.Cost.DeviationPct)
	}
	_, _ = fmt.Fprintf(out, "  suppressions: %d instance, %d provider\n",
		st.InstanceSuppressions, st.ProviderSuppressions)
	return nil
}

func formatSweepTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
