package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agroassist/croprec/croprec"
	"agroassist/croprec/internal/logging"
)

// rootOptions carries the persistent flags and what PersistentPreRunE builds
// from them.
type rootOptions struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	verbose    bool
	detailed   bool

	cfg      croprec.Config
	logger   *zap.Logger
	closeLog func()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "croprec-cli",
		Short:         "Crop recommendation client",
		Long:          "Send soil and climate measurements to the prediction service and persist the crops you pick.",
		Version:       croprec.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/croprec/config.yaml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Service base URL; overrides the config endpoints")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (default from config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.detailed, "detailed-errors", false, "Name the failure kind in status messages")

	cmd.AddCommand(
		newPredictCmd(opts),
		newSaveCmd(opts),
		newBatchCmd(opts),
		newPingCmd(opts),
		newInitCmd(opts),
		newTUICmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := croprec.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.Endpoints = croprec.EndpointConfig{BaseURL: o.baseURL}
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if o.detailed {
		cfg.DetailedErrors = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	o.cfg = cfg
	o.logger = logger
	o.closeLog = closeLog
	logger.Debug("config loaded",
		zap.String("predict_url", cfg.Endpoints.PredictURL),
		zap.String("save_url", cfg.Endpoints.SaveURL),
		zap.Duration("timeout", cfg.Timeout))
	return nil
}

func (o *rootOptions) teardown() {
	if o.logger != nil {
		_ = o.logger.Sync()
	}
	if o.closeLog != nil {
		o.closeLog()
	}
}

func (o *rootOptions) client() *croprec.Client {
	return croprec.NewClient(o.cfg, croprec.WithLogger(o.logger))
}

func (o *rootOptions) session() (*croprec.Session, error) {
	return croprec.NewSession(o.client(),
		croprec.WithSessionLogger(o.logger),
		croprec.WithDetailedErrors(o.cfg.DetailedErrors))
}
