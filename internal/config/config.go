// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/gatewayforge/fleetwatch/internal/monitor"
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level fleetwatch configuration.
type Config struct {
	API       APIConfig         `mapstructure:"api"`
	Monitor   MonitorConfig     `mapstructure:"monitor"`
	Consumers map[string]string `mapstructure:"consumers"`
	Dispatch  DispatchConfig    `mapstructure:"dispatch"`
	Server    ServerConfig      `mapstructure:"server"`
	Audit     AuditConfig       `mapstructure:"audit"`
}

// APIConfig locates the fleet-management service.
type APIConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	Key                 string `mapstructure:"key"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"`
}

// MonitorConfig controls sweep cadence and rule thresholds.
type MonitorConfig struct {
	SweepIntervalSeconds int              `mapstructure:"sweep_interval_seconds"`
	Thresholds           ThresholdsConfig `mapstructure:"thresholds"`
}

// ThresholdsConfig mirrors monitor.Thresholds for file/env overrides.
type ThresholdsConfig struct {
	DegradedHealthScore     int     `mapstructure:"degraded_health_score"`
	CostDeviationPct        float64 `mapstructure:"cost_deviation_pct"`
	ProvisionQueueDepth     int     `mapstructure:"provision_queue_depth"`
	ProviderHealthScore     int     `mapstructure:"provider_health_score"`
	AlertSuppressionMinutes int     `mapstructure:"alert_suppression_minutes"`
}

// DispatchConfig controls event delivery.
type DispatchConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ServerConfig controls the daemon's status HTTP surface.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AuditConfig toggles the audit trail on the fleet-management API.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.fetch_timeout_seconds", 15)
	v.SetDefault("monitor.sweep_interval_seconds", 300)
	v.SetDefault("monitor.thresholds.degraded_health_score", monitor.DefaultDegradedHealthScore)
	v.SetDefault("monitor.thresholds.cost_deviation_pct", monitor.DefaultCostDeviationPct)
	v.SetDefault("monitor.thresholds.provision_queue_depth", monitor.DefaultProvisionQueueDepth)
	v.SetDefault("monitor.thresholds.provider_health_score", monitor.DefaultProviderHealthScore)
	v.SetDefault("monitor.thresholds.alert_suppression_minutes", monitor.DefaultAlertSuppressionMinutes)
	v.SetDefault("dispatch.timeout_seconds", 10)
	v.SetDefault("server.listen", "127.0.0.1:9300")
	v.SetDefault("audit.enabled", true)
}

// SetupEnv binds environment variable overrides with the FLEETWATCH_
// prefix (dots become underscores, e.g. FLEETWATCH_API_BASE_URL).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("FLEETWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults only when path
// is empty) with environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fwerr.Errorf(fwerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a fully populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fwerr.Errorf(fwerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Thresholds converts the file representation into monitor knobs.
func (c *Config) Thresholds() monitor.Thresholds {
	return monitor.Thresholds{
		DegradedHealthScore:     c.Monitor.Thresholds.DegradedHealthScore,
		CostDeviationPct:        c.Monitor.Thresholds.CostDeviationPct,
		ProvisionQueueDepth:     c.Monitor.Thresholds.ProvisionQueueDepth,
		ProviderHealthScore:     c.Monitor.Thresholds.ProviderHealthScore,
		AlertSuppressionMinutes: c.Monitor.Thresholds.AlertSuppressionMinutes,
	}
}

// Resolver builds the static target-to-address table for the dispatcher.
// Targets absent from the consumers map stay unaddressed on purpose.
func (c *Config) Resolver() monitor.StaticResolver {
	r := make(monitor.StaticResolver, len(c.Consumers))
	for target, addr := range c.Consumers {
		if addr == "" {
			continue
		}
		r[monitor.Target(target)] = strings.TrimRight(addr, "/")
	}
	return r
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateAPI()...)
	errs = append(errs, c.validateMonitor()...)
	errs = append(errs, c.validateConsumers()...)
	errs = append(errs, c.validateServer()...)

	return errs
}

func (c *Config) validateAPI() []error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: api.base_url must not be empty"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: api.base_url must be an absolute URL, got %q", c.API.BaseURL))
	}

	if c.API.FetchTimeoutSeconds <= 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: api.fetch_timeout_seconds must be greater than 0, got %d", c.API.FetchTimeoutSeconds))
	}

	return errs
}

func (c *Config) validateMonitor() []error {
	var errs []error

	if c.Monitor.SweepIntervalSeconds <= 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: monitor.sweep_interval_seconds must be greater than 0, got %d", c.Monitor.SweepIntervalSeconds))
	}

	if c.Dispatch.TimeoutSeconds <= 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: dispatch.timeout_seconds must be greater than 0, got %d", c.Dispatch.TimeoutSeconds))
	}

	errs = append(errs, c.Thresholds().Validate()...)

	return errs
}

func (c *Config) validateConsumers() []error {
	var errs []error

	for target, addr := range c.Consumers {
		if addr == "" {
			// An empty address means "known target, deliberately
			// unaddressed", same as omitting the key entirely.
			continue
		}
		if u, err := url.Parse(addr); err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
				"config: consumers.%s must be an absolute URL, got %q", target, addr))
		}
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}
