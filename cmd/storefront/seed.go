package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/memohai/storefront/internal/catalog"
	"github.com/memohai/storefront/internal/logger"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Upsert products from a YAML catalog into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logger.Init(cfg.Log.Level, cfg.Log.Format)

			products, err := catalog.LoadFixture(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, closeStore, err := openStore(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Upsert(ctx, products); err != nil {
				return err
			}
			log.Info("catalog seeded", slog.String("driver", cfg.Catalog.Driver), slog.Int("products", len(products)))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(products))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	return cmd
}
