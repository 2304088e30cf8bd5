// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"net/url"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/userauth/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  `Print the configuration after merging the file, environment and flags. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath(), cmd.Flags())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(maskSecrets(*cfg))
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	})

	return cmd
}

// maskSecrets hides the redis password and any password in the database URL.
func maskSecrets(cfg config.Config) config.Config {
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
	if u, err := url.Parse(cfg.Storage.DatabaseURL); err == nil && u.User != nil {
		cfg.Storage.DatabaseURL = u.Redacted()
	}
	return cfg
}
