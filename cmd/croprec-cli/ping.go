package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the prediction service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := root.client().Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping %s: %w", root.cfg.Endpoints.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", root.cfg.Endpoints.BaseURL, msg)
			return nil
		},
	}
}
