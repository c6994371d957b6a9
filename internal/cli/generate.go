package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/internal/generator"
)

type generateFlags struct {
	accounts int
	output   string
	seed     uint64
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic trade history file",
		Long: `Writes a CSV with one row per account. Histories mix the JSON and
literal encodings and include truncated, empty, non-finite and duplicated
entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := root.setup(ctx)
			if err != nil {
				return err
			}
			if f.accounts < 0 {
				return fmt.Errorf("flags: accounts must not be negative: %d", f.accounts)
			}
			gen := generator.New(
				generator.WithAccounts(f.accounts),
				generator.WithSeed(f.seed),
				generator.WithColumns(cfg.AccountColumn, cfg.HistoryColumn),
				generator.WithLogger(log.Named("generator")),
			)
			sum, err := gen.WriteFile(ctx, f.output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d accounts with %d trades to %s\n", sum.Accounts, sum.Trades, f.output)
			return nil
		},
	}

	cmd.Flags().IntVar(&f.accounts, "accounts", generator.DefaultAccounts, "number of accounts")
	cmd.Flags().StringVar(&f.output, "output", config.DefaultInput, "output CSV path")
	cmd.Flags().Uint64Var(&f.seed, "seed", generator.DefaultSeed, "random seed")
	return cmd
}
