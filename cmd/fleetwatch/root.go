// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/gatewayforge/fleetwatch/internal/config"
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root fleetwatch command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetwatch",
		Short:         "fleetwatch is a fleet health monitor",
		Long:          "Fleetwatch polls the fleet-management API, evaluates health rules against the aggregate status snapshot, and notifies downstream consumer agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags mapping to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newSweepCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fwerr.Errorf(fwerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover fleetwatch.yaml from standard locations.
		v.SetConfigName("fleetwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/fleetwatch")
		v.AddConfigPath("/etc/fleetwatch")
		// No config file is fine, defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fwerr.Errorf(fwerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere: bootstrap a commented default.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				_ = v.ReadInConfig()
			}
		}
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	return nil
}
