package main

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	dbembed "github.com/memohai/storefront/db"
	"github.com/memohai/storefront/internal/db"
	"github.com/memohai/storefront/internal/logger"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(db.MigrateCommands, "|") + "> [N]",
		Short:     "Apply or roll back the Postgres schema",
		ValidArgs: db.MigrateCommands,
		Args:      cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logger.Init(cfg.Log.Level, cfg.Log.Format)

			migrations, err := fs.Sub(dbembed.MigrationsFS, "migrations")
			if err != nil {
				return fmt.Errorf("embedded migrations: %w", err)
			}
			return db.RunMigrate(log, cfg.Postgres, migrations, args[0], args[1:])
		},
	}
}
