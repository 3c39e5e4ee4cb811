package main

import (
	"github.com/spf13/cobra"

	"agroassist/croprec/croprec"
	"agroassist/croprec/internal/logging"
	"agroassist/croprec/internal/tui"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Fill in the form interactively in the terminal",
		Long:  "Fill in the form interactively in the terminal. Logs go to log.file from the config only.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.NewFileOnly(root.cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()
			defer func() { _ = logger.Sync() }()

			client := croprec.NewClient(root.cfg, croprec.WithLogger(logger))
			session, err := croprec.NewSession(client,
				croprec.WithSessionLogger(logger),
				croprec.WithDetailedErrors(root.cfg.DetailedErrors))
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), session)
		},
	}
}
