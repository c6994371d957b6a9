package cli

import (
	"github.com/spf13/cobra"

	service "github.com/okian/tradeboard/internal/app"
	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/pkg/logger"
	"github.com/okian/tradeboard/pkg/metrics"
)

type runFlags struct {
	input       string
	output      string
	top         int
	workers     int
	metricsFile string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the leaderboard and save it",
		Long: `Loads the input, cleans and flattens every trade history, computes
account metrics, ranks the accounts and saves the top rows.

Outputs ending in .db or .sqlite are written as a SQLite table, s3://
locations are uploaded, anything else is a CSV file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := root.setup(ctx)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			override(flags, "input", &cfg.Input, f.input)
			override(flags, "output", &cfg.Output, f.output)
			override(flags, "top", &cfg.TopN, f.top)
			override(flags, "workers", &cfg.Workers, f.workers)
			override(flags, "metrics-file", &cfg.MetricsFile, f.metricsFile)
			if err := validate(cfg); err != nil {
				return err
			}

			svc, err := service.NewFromConfig(cfg,
				service.WithLogger(log.Named("pipeline")),
				service.WithProgress(cmd.OutOrStdout()),
			)
			if err != nil {
				return err
			}
			if _, err := svc.Run(ctx, cfg.Input, cfg.Output, cfg.TopN); err != nil {
				return err
			}

			if cfg.MetricsFile != "" {
				if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
					return err
				}
				log.Info(ctx, "metrics written", logger.String("path", cfg.MetricsFile))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.input, "input", config.DefaultInput, "input CSV path or s3:// location")
	cmd.Flags().StringVar(&f.output, "output", config.DefaultOutput, "output CSV, SQLite or s3:// location")
	cmd.Flags().IntVar(&f.top, "top", config.DefaultTopN, "number of leaderboard rows, ties included")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "concurrent metric workers")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	return cmd
}
