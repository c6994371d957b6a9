// Package cli implements the tradeboard command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/pkg/logger"
)

type rootOptions struct {
	configFile string
	stdout     io.Writer
	stderr     io.Writer
}

// NewRootCommand builds the command tree. Progress lines go to stdout and
// log records to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "tradeboard",
		Short: "Rank trading accounts from their trade histories",
		Long: `tradeboard reads account trade histories from CSV, computes
per-account performance metrics and writes a weighted leaderboard.

Examples:
  tradeboard generate --accounts 100
  tradeboard run --input trade_data.csv --top 20
  tradeboard serve --addr :9080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")

	root.AddCommand(newRunCommand(opts), newServeCommand(opts), newGenerateCommand(opts))
	return root
}

// setup loads configuration and initializes logging.
func (o *rootOptions) setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	if err := logger.InitWithWriter(o.stderr); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(ctx, o.configFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// override copies a flag onto dst only when it was set on the command line.
func override[T any](flags *pflag.FlagSet, name string, dst *T, val T) {
	if flags.Changed(name) {
		*dst = val
	}
}

func validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
