// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/config"
	"github.com/gatewayforge/fleetwatch/internal/fleetapi"
	"github.com/gatewayforge/fleetwatch/internal/monitor"
	"github.com/gatewayforge/fleetwatch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the fleet monitor daemon",
		Long:  "Load configuration, start the sweep loop, and serve the status API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override status server listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mon := wireMonitor(cfg)

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, mon)
	if err != nil {
		return err
	}

	mon.Start(ctx)
	defer mon.Stop()

	slog.Info("status server listening", "addr", cfg.Server.Listen)
	return srv.Start(ctx)
}

// wireMonitor assembles the monitor from configuration: fleet API client,
// dispatcher with the static consumer table, and the optional audit trail.
func wireMonitor(cfg *config.Config) *monitor.Monitor {
	client := fleetapi.New(cfg.API.BaseURL, cfg.API.Key,
		time.Duration(cfg.API.FetchTimeoutSeconds)*time.Second)

	dispatcher := monitor.NewDispatcher(cfg.Resolver(),
		time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second, slog.Default())

	var recorder monitor.Recorder
	if cfg.Audit.Enabled {
		recorder = client
	}

	return monitor.New(monitor.Config{
		SweepInterval: time.Duration(cfg.Monitor.SweepIntervalSeconds) * time.Second,
		Thresholds:    cfg.Thresholds(),
	}, client, dispatcher, recorder, slog.Default())
}
