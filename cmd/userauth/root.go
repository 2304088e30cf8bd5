// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/logging"
	"github.com/holomush/userauth/internal/xdg"
)

// serviceName labels every log record.
const serviceName = "userauth"

// rootOptions holds flags shared by all subcommands.
type rootOptions struct {
	configFile string
}

// NewRootCmd creates the root command for the userauth CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "userauth",
		Short: "userauth - user authentication service",
		Long: `userauth registers users, checks passwords, and manages cookie sessions
and password resets. The API is guarded by HTTP Basic or session authentication.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file path (default $XDG_CONFIG_HOME/userauth/config.yaml when present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(opts, nil))
	cmd.AddCommand(NewMigrateCmd(opts, nil))
	cmd.AddCommand(NewRedactCmd(opts))
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewConfigCmd(opts))

	return cmd
}

// configPath returns the --config value, or the XDG config file when it exists.
// An empty result means no file is read.
func (o *rootOptions) configPath() string {
	if o.configFile != "" {
		return o.configFile
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadConfig reads and validates the configuration for cmd.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath(), cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logOptions(cfg config.LogConfig) logging.Options {
	return logging.Options{
		PIIFields: cfg.PIIFields,
		Redaction: cfg.Redaction,
		Separator: cfg.Separator,
	}
}

// setupLogging installs the redacting default logger.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(serviceName, version, cfg.Log.Format, logOptions(cfg.Log))
}
