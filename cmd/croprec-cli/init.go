package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agroassist/croprec/croprec"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		// An existing config may be unreadable; init must not depend on it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = croprec.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat config: %w", err)
			}
			cfg := croprec.DefaultConfig()
			if cmd.Flags().Changed("base-url") {
				cfg.Endpoints = croprec.EndpointConfig{BaseURL: root.baseURL}
				cfg.ApplyDefaults()
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := croprec.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
