// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // oops error from config
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file against the schema and value rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = xdg.ConfigFile()
			}
			return runConfigValidate(cmd, path)
		},
	})

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.Redacted().YAML()
			if err != nil {
				return err //nolint:wrapcheck // oops error from config
			}
			cmd.Print(string(out))
			return nil
		},
	}
	addConfigFlags(show.Flags())
	cmd.AddCommand(show)

	return cmd
}

func runConfigValidate(cmd *cobra.Command, path string) error {
	if err := config.ValidateFile(path); err != nil {
		return err //nolint:wrapcheck // oops error from config
	}
	// Schema checks structure; Load applies the value rules on top of defaults.
	if _, err := config.Load(config.Options{File: path}); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	cmd.Printf("%s is valid\n", path)
	return nil
}
